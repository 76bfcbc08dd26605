package config

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"gcode-extrude/pkg/errors"
	"gcode-extrude/pkg/gcode"
)

// ExtrusionSection is the name of the section holding the calibration.
const ExtrusionSection = "extrusion"

// ExtrusionConfig is the calibration and policy set of a rewrite run.
type ExtrusionConfig struct {
	ReferenceStart  []float64 `yaml:"reference_start"`
	ReferenceEnd    []float64 `yaml:"reference_end"`
	ReferenceE      float64   `yaml:"reference_e"`
	MalformedTokens string    `yaml:"malformed_tokens"`
	PreserveTokens  bool      `yaml:"preserve_tokens"`
	OnError         string    `yaml:"on_error"`
}

// DefaultExtrusionConfig returns the stock calibration with rejecting
// token and error policies.
func DefaultExtrusionConfig() ExtrusionConfig {
	return ExtrusionConfig{
		ReferenceStart:  pointValues(gcode.DefaultReferenceStart),
		ReferenceEnd:    pointValues(gcode.DefaultReferenceEnd),
		ReferenceE:      gcode.DefaultReferenceE,
		MalformedTokens: gcode.RejectMalformed.String(),
		OnError:         gcode.Abort.String(),
	}
}

func pointValues(p gcode.Point3) []float64 {
	if p.Z.Valid {
		return []float64{p.X, p.Y, p.Z.Value}
	}
	return []float64{p.X, p.Y}
}

// FromConfig reads the optional [extrusion] section. Options that are not
// present keep their defaults; unknown options are an error.
func FromConfig(c *Config) (ExtrusionConfig, error) {
	ec := DefaultExtrusionConfig()
	if !c.HasSection(ExtrusionSection) {
		return ec, nil
	}
	sec, err := c.GetSection(ExtrusionSection)
	if err != nil {
		return ec, err
	}
	if err := ec.readSection(sec); err != nil {
		return ec, err
	}
	return ec, c.CheckUnusedOptions()
}

func (ec *ExtrusionConfig) readSection(sec *Section) error {
	var err error
	if ec.ReferenceStart, err = sec.GetFloatList("reference_start", ",", ec.ReferenceStart); err != nil {
		return err
	}
	if ec.ReferenceEnd, err = sec.GetFloatList("reference_end", ",", ec.ReferenceEnd); err != nil {
		return err
	}
	zero := 0.0
	if ec.ReferenceE, err = sec.GetFloatWithBounds("reference_e", FloatBounds{MinVal: &zero}, ec.ReferenceE); err != nil {
		return err
	}
	if ec.MalformedTokens, err = sec.GetChoice("malformed_tokens", []string{"reject", "skip"}, ec.MalformedTokens); err != nil {
		return err
	}
	if ec.PreserveTokens, err = sec.GetBool("preserve_tokens", ec.PreserveTokens); err != nil {
		return err
	}
	if ec.OnError, err = sec.GetChoice("on_error", []string{"abort", "passthrough"}, ec.OnError); err != nil {
		return err
	}
	return nil
}

type yamlDocument struct {
	Extrusion *ExtrusionConfig `yaml:"extrusion"`
}

// LoadExtrusionYAML decodes a document with a top-level "extrusion" key.
// Keys left out keep their defaults; unknown keys are an error.
func LoadExtrusionYAML(r io.Reader) (ExtrusionConfig, error) {
	ec := DefaultExtrusionConfig()
	doc := yamlDocument{Extrusion: &ec}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return DefaultExtrusionConfig(), WrapError(ExtrusionSection, "", err)
	}
	if doc.Extrusion == nil {
		// "extrusion:" with no body
		return DefaultExtrusionConfig(), nil
	}
	return *doc.Extrusion, nil
}

// LoadExtrusion loads the calibration from an INI or YAML file, chosen by
// extension. Every failure comes back as an *errors.Error carrying the
// file it was read from.
func LoadExtrusion(path string) (ExtrusionConfig, error) {
	ec, err := loadExtrusion(path)
	if err != nil {
		return DefaultExtrusionConfig(), withPath(err, path)
	}
	return ec, nil
}

func loadExtrusion(path string) (ExtrusionConfig, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return ExtrusionConfig{}, errors.IOError("open config", err)
		}
		defer f.Close()
		return LoadExtrusionYAML(f)
	default:
		c, err := Load(path)
		if err != nil {
			return ExtrusionConfig{}, err
		}
		return FromConfig(c)
	}
}

func withPath(err error, path string) *errors.Error {
	var e *errors.Error
	var ce *ConfigError
	switch {
	case stderrors.As(err, &ce):
		e = ce.AsError()
	case stderrors.As(err, &e):
	default:
		e = errors.Wrap(err, errors.ErrConfigValidation, "invalid configuration")
	}
	if e.File == "" {
		e.SetFile(path)
	}
	return errors.WithConfigPath(e, path)
}

// Calibration converts the reference points into a gcode.Calibration.
// A point needs two (XY) or three (XYZ) values.
func (ec ExtrusionConfig) Calibration() (gcode.Calibration, error) {
	start, err := toPoint("reference_start", ec.ReferenceStart)
	if err != nil {
		return gcode.Calibration{}, err
	}
	end, err := toPoint("reference_end", ec.ReferenceEnd)
	if err != nil {
		return gcode.Calibration{}, err
	}
	return gcode.Calibration{Start: start, End: end, ReferenceE: ec.ReferenceE}, nil
}

func toPoint(option string, v []float64) (gcode.Point3, error) {
	switch len(v) {
	case 2:
		return gcode.XY(v[0], v[1]), nil
	case 3:
		return gcode.XYZ(v[0], v[1], v[2]), nil
	default:
		return gcode.Point3{}, NewConfigError(ExtrusionSection, option,
			fmt.Sprintf("expected 2 or 3 coordinates, got %d", len(v))).AsError()
	}
}

// Options converts the policy names into gcode.Options.
func (ec ExtrusionConfig) Options() (gcode.Options, error) {
	tokens, err := gcode.ParseTokenPolicy(ec.MalformedTokens)
	if err != nil {
		return gcode.Options{}, err
	}
	onError, err := gcode.ParseErrorPolicy(ec.OnError)
	if err != nil {
		return gcode.Options{}, err
	}
	return gcode.Options{
		Tokens:         tokens,
		Errors:         onError,
		PreserveTokens: ec.PreserveTokens,
	}, nil
}
