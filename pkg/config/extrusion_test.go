package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gcode-extrude/pkg/errors"
	"gcode-extrude/pkg/gcode"
)

func TestDefaultExtrusionConfig(t *testing.T) {
	ec := DefaultExtrusionConfig()

	cal, err := ec.Calibration()
	require.NoError(t, err)
	assert.Equal(t, gcode.DefaultCalibration(gcode.DefaultReferenceE), cal)

	opts, err := ec.Options()
	require.NoError(t, err)
	assert.Equal(t, gcode.Options{}, opts)
}

func TestFromConfig(t *testing.T) {
	cfg, err := loadString(`
[extrusion]
reference_start: 0, 0
reference_end: 3, 4
reference_e: 1.25
malformed_tokens: skip
preserve_tokens: true
on_error: passthrough
`)
	require.NoError(t, err)

	ec, err := FromConfig(cfg)
	require.NoError(t, err)

	cal, err := ec.Calibration()
	require.NoError(t, err)
	assert.Equal(t, gcode.XY(0, 0), cal.Start)
	assert.Equal(t, gcode.XY(3, 4), cal.End)
	assert.Equal(t, 1.25, cal.ReferenceE)

	opts, err := ec.Options()
	require.NoError(t, err)
	assert.Equal(t, gcode.Options{
		Tokens:         gcode.SkipMalformed,
		Errors:         gcode.PassThrough,
		PreserveTokens: true,
	}, opts)
}

func TestFromConfigMissingSection(t *testing.T) {
	cfg, err := loadString("[other]\nk: v\n")
	require.NoError(t, err)

	ec, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, DefaultExtrusionConfig(), ec)
}

func TestFromConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		code errors.ErrorCode
	}{
		{"unknown option", "[extrusion]\nreference_f: 1\n", errors.ErrConfigValidation},
		{"bad float", "[extrusion]\nreference_e: lots\n", errors.ErrConfigType},
		{"negative e", "[extrusion]\nreference_e: -0.5\n", errors.ErrConfigValidation},
		{"bad point value", "[extrusion]\nreference_end: 1, two\n", errors.ErrConfigType},
		{"bad policy", "[extrusion]\non_error: retry\n", errors.ErrConfigValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadString(tt.data)
			require.NoError(t, err)

			_, err = FromConfig(cfg)
			require.Error(t, err)
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.code, ce.Code)
		})
	}
}

func TestCalibrationPointArity(t *testing.T) {
	ec := DefaultExtrusionConfig()
	ec.ReferenceEnd = []float64{1}

	_, err := ec.Calibration()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference_end")
	assert.True(t, errors.IsConfig(err))
}

func TestLoadExtrusionYAML(t *testing.T) {
	doc := `
extrusion:
  reference_start: [0, 0, 0]
  reference_end: [0, 0, 5]
  reference_e: 2
  on_error: passthrough
`
	ec, err := LoadExtrusionYAML(strings.NewReader(doc))
	require.NoError(t, err)

	cal, err := ec.Calibration()
	require.NoError(t, err)
	assert.Equal(t, gcode.XYZ(0, 0, 5), cal.End)
	assert.Equal(t, 2.0, cal.ReferenceE)
	assert.Equal(t, "reject", ec.MalformedTokens, "unset keys keep defaults")

	opts, err := ec.Options()
	require.NoError(t, err)
	assert.Equal(t, gcode.PassThrough, opts.Errors)
}

func TestLoadExtrusionYAMLEmpty(t *testing.T) {
	for _, doc := range []string{"", "extrusion:\n"} {
		ec, err := LoadExtrusionYAML(strings.NewReader(doc))
		require.NoError(t, err)
		assert.Equal(t, DefaultExtrusionConfig(), ec)
	}
}

func TestLoadExtrusionYAMLUnknownKey(t *testing.T) {
	_, err := LoadExtrusionYAML(strings.NewReader("extrusion:\n  reference_x: 1\n"))
	require.Error(t, err)
}

func TestLoadExtrusion(t *testing.T) {
	dir := t.TempDir()

	ini := filepath.Join(dir, "printer.cfg")
	require.NoError(t, os.WriteFile(ini, []byte("[extrusion]\nreference_e: 0.7\n"), 0o644))
	ec, err := LoadExtrusion(ini)
	require.NoError(t, err)
	assert.Equal(t, 0.7, ec.ReferenceE)

	yml := filepath.Join(dir, "calib.yml")
	require.NoError(t, os.WriteFile(yml, []byte("extrusion:\n  reference_e: 0.9\n"), 0o644))
	ec, err = LoadExtrusion(yml)
	require.NoError(t, err)
	assert.Equal(t, 0.9, ec.ReferenceE)

	absent := filepath.Join(dir, "absent.yaml")
	_, err = LoadExtrusion(absent)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrIO))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), absent)
}

func TestLoadExtrusionErrorLocation(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) string {
		t.Helper()
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
		return p
	}

	tests := []struct {
		name   string
		path   string
		code   errors.ErrorCode
		option string
		line   int
	}{
		{"bad float", write("float.cfg", "[extrusion]\nreference_e: lots\n"), errors.ErrConfigType, "reference_e", 0},
		{"unknown option", write("unknown.cfg", "[extrusion]\nreference_f: 1\n"), errors.ErrConfigValidation, "", 0},
		{"syntax", write("syntax.cfg", "[extrusion]\nreference_e\n"), errors.ErrConfigValidation, "", 2},
		{"yaml", write("calib.yaml", "extrusion:\n  reference_x: 1\n"), errors.ErrConfigValidation, "", 0},
		{"missing", filepath.Join(dir, "absent.cfg"), errors.ErrIO, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec, err := LoadExtrusion(tt.path)
			require.Error(t, err)
			assert.Equal(t, DefaultExtrusionConfig(), ec)

			e, ok := errors.As(err)
			require.True(t, ok, "got %T", err)
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, tt.option, e.Option)
			assert.Equal(t, tt.line, e.Line)
			assert.Equal(t, tt.path, e.File)
			assert.Equal(t, tt.path, e.Context["config_path"])
			assert.True(t, strings.HasPrefix(err.Error(), tt.path), err.Error())
		})
	}
}
