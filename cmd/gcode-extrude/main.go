// gcode-extrude rewrites the extrusion (E) value of every G1 move in a
// G-code file so that it is proportional to the distance the move travels.
// The ratio comes from a reference move given in the configuration.
//
// Usage:
//
//	gcode-extrude [options] < in.gcode > out.gcode
//
// Options:
//
//	-config string    Calibration file, Klipper-style .cfg or .yaml
//	-e float          Reference extrusion, overrides the config value
//	-in string        Input file (default: stdin)
//	-out string       Output file (default: stdout)
//	-preserve         Keep feed rates and comments on rewritten moves
//	-skip-malformed   Drop unparsable axis words instead of failing
//	-pass-errors      Emit failing lines unchanged instead of stopping
//	-logfile string   Log file path (default: stderr)
//	-metrics string   Write Prometheus text metrics to this file
//	-v                Enable debug logging
//
// Examples:
//
//	# Rewrite with the stock calibration
//	gcode-extrude -in part.gcode -out part.fixed.gcode
//
//	# Calibrated for 0.8 of material over the reference move
//	gcode-extrude -config printer.cfg -e 0.8 -in part.gcode
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gcode-extrude/pkg/config"
	"gcode-extrude/pkg/errors"
	"gcode-extrude/pkg/gcode"
	"gcode-extrude/pkg/log"
	"gcode-extrude/pkg/metrics"
)

func main() {
	configFile := flag.String("config", "", "Calibration file (.cfg or .yaml)")
	refE := flag.Float64("e", 0, "Reference extrusion (overrides config)")
	inFile := flag.String("in", "", "Input file (default: stdin)")
	outFile := flag.String("out", "", "Output file (default: stdout)")
	preserve := flag.Bool("preserve", false, "Keep feed rates and comments on rewritten moves")
	skipMalformed := flag.Bool("skip-malformed", false, "Drop unparsable axis words instead of failing")
	passErrors := flag.Bool("pass-errors", false, "Emit failing lines unchanged instead of stopping")
	logFile := flag.String("logfile", "", "Log file path (default: stderr)")
	logMaxMB := flag.Int("logfile-max-mb", 10, "Rotate the log file after this many megabytes")
	metricsFile := flag.String("metrics", "", "Write Prometheus text metrics to this file")
	verbose := flag.Bool("v", false, "Enable debug logging")

	flag.Parse()

	// -e only overrides when given, so any value reaches validation
	var refEOverride *float64
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "e" {
			refEOverride = refE
		}
	})

	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments %v\n", flag.Args())
		flag.Usage()
		os.Exit(2)
	}

	// Set up logging
	logger := log.New("gcode-extrude")
	closeLog := func() {}
	if *logFile != "" {
		l, w, err := log.NewFileLogger("gcode-extrude", log.RotationConfig{
			Filename: *logFile,
			MaxSize:  int64(*logMaxMB) * 1024 * 1024,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		logger = l
		closeLog = func() { w.Close() }
	}
	log.ConfigureFromEnv(logger)
	if *verbose {
		logger.SetLevel(log.DEBUG)
	}
	log.SetDefaultLogger(logger)

	if err := run(logger, options{
		configFile:    *configFile,
		refE:          refEOverride,
		inFile:        *inFile,
		outFile:       *outFile,
		preserve:      *preserve,
		skipMalformed: *skipMalformed,
		passErrors:    *passErrors,
		metricsFile:   *metricsFile,
	}); err != nil {
		logger.Error("%s", describe(err))
		if *logFile != "" {
			fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		}
		closeLog()
		os.Exit(1)
	}
	closeLog()
}

type options struct {
	configFile    string
	refE          *float64
	inFile        string
	outFile       string
	preserve      bool
	skipMalformed bool
	passErrors    bool
	metricsFile   string
}

func run(logger *log.Logger, o options) error {
	ec := config.DefaultExtrusionConfig()
	if o.configFile != "" {
		var err error
		if ec, err = config.LoadExtrusion(o.configFile); err != nil {
			return err
		}
		logger.Debug("loaded calibration from %s", o.configFile)
	}
	if o.refE != nil {
		ec.ReferenceE = *o.refE
	}
	if o.preserve {
		ec.PreserveTokens = true
	}
	if o.skipMalformed {
		ec.MalformedTokens = gcode.SkipMalformed.String()
	}
	if o.passErrors {
		ec.OnError = gcode.PassThrough.String()
	}

	cal, err := ec.Calibration()
	if err != nil {
		return err
	}
	opts, err := ec.Options()
	if err != nil {
		return err
	}
	proc, err := gcode.NewProcessor(cal, opts)
	if err != nil {
		return err
	}
	proc.SetLogger(logger.WithPrefix("gcode"))

	var rm *metrics.RewriteMetrics
	if o.metricsFile != "" {
		rm = metrics.NewRewriteMetrics()
		proc.SetMetrics(rm)
	}

	r := proc.Ratio()
	logger.WithFields(log.Fields{
		"tokens":   opts.Tokens,
		"on_error": opts.Errors,
		"preserve": opts.PreserveTokens,
	}).Debugf("reference distance %.5fmm, E %.5f, %.6f per mm", r.Distance, r.ReferenceE, r.EPerDistance)

	var in io.Reader = os.Stdin
	if o.inFile != "" {
		f, err := os.Open(o.inFile)
		if err != nil {
			return errors.IOError("open input", err).SetFile(o.inFile)
		}
		defer f.Close()
		in = f
	}

	var out io.Writer = os.Stdout
	var outF *os.File
	if o.outFile != "" {
		f, err := os.Create(o.outFile)
		if err != nil {
			return errors.IOError("create output", err).SetFile(o.outFile)
		}
		outF = f
		out = f
	}

	sum, runErr := proc.Stream(in, out)
	if outF != nil {
		if err := outF.Close(); err != nil && runErr == nil {
			runErr = errors.IOError("close output", err).SetFile(o.outFile)
		}
	}
	if e, ok := errors.As(runErr); ok && o.inFile != "" && e.Line > 0 {
		e.SetFile(o.inFile)
	}

	logger.Info("%d lines, %d moves rewritten, %d errors, %.5f extruded over %.3fmm",
		sum.Lines, sum.Rewritten, sum.Errors, sum.Extruded, sum.Distance)

	if rm != nil {
		if err := os.WriteFile(o.metricsFile, []byte(rm.Gather()), 0o644); err != nil {
			logger.Warn("failed to write metrics: %v", err)
		}
	}
	return runErr
}

// describe prefixes err with the kind of problem it reports.
func describe(err error) string {
	switch {
	case errors.IsConfig(err):
		return fmt.Sprintf("configuration error: %v", err)
	case errors.IsGCode(err):
		return fmt.Sprintf("input error: %v", err)
	case errors.Is(err, errors.ErrIO):
		return fmt.Sprintf("i/o error: %v", err)
	default:
		return err.Error()
	}
}
