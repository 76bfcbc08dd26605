// Package gcode rewrites the extrusion of G1 linear moves.
// It tracks the machine position across a command stream and gives each
// move an E value proportional to the distance it travels, using a ratio
// derived once from a reference move.
package gcode

import (
	"bufio"
	"io"
	"iter"
	"slices"
	"strings"

	"gcode-extrude/pkg/errors"
	"gcode-extrude/pkg/log"
	"gcode-extrude/pkg/metrics"
)

// ErrorPolicy decides what a run does with a line that fails.
type ErrorPolicy int

const (
	// Abort stops the run at the first failing line.
	Abort ErrorPolicy = iota
	// PassThrough emits the failing line unchanged and keeps going. The
	// tracked position is left as it was before that line.
	PassThrough
)

func (p ErrorPolicy) String() string {
	switch p {
	case Abort:
		return "abort"
	case PassThrough:
		return "passthrough"
	default:
		return "unknown"
	}
}

// ParseErrorPolicy parses "abort" or "passthrough".
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "abort", "":
		return Abort, nil
	case "passthrough", "pass-through", "pass":
		return PassThrough, nil
	default:
		return Abort, errors.New(errors.ErrConfigValidation, "unknown error policy "+s).
			SetSection("extrusion").
			SetOption("on_error")
	}
}

// Options controls how lines are tokenized and rendered.
type Options struct {
	Tokens TokenPolicy
	Errors ErrorPolicy

	// PreserveTokens keeps words other than X/Y/Z/E (feed rate, comments)
	// on rewritten lines.
	PreserveTokens bool
}

// State is the value threaded through a run. The zero value is the start
// of a run: no position known, no lines consumed.
type State struct {
	Pos  Position
	Line int
}

// Summary describes a finished (or aborted) run.
type Summary struct {
	Lines     int
	Moves     int
	Rewritten int
	Unchanged int
	Errors    int
	Distance  float64
	Extruded  float64
}

// Processor rewrites G1 lines. It holds only read-only configuration, so
// one Processor may serve any number of runs.
type Processor struct {
	ratio   Ratio
	opts    Options
	logger  *log.Logger
	metrics *metrics.RewriteMetrics
}

// NewProcessor derives the extrusion ratio from cal. A degenerate
// calibration is reported here, before any line is read.
func NewProcessor(cal Calibration, opts Options) (*Processor, error) {
	r, err := NewRatio(cal)
	if err != nil {
		return nil, err
	}
	return &Processor{
		ratio:  r,
		opts:   opts,
		logger: log.GetLogger("gcode"),
	}, nil
}

// SetLogger replaces the processor's logger.
func (p *Processor) SetLogger(l *log.Logger) {
	p.logger = l
}

// SetMetrics attaches a metric set that every run reports into.
func (p *Processor) SetMetrics(m *metrics.RewriteMetrics) {
	p.metrics = m
}

// Ratio returns the ratio the processor was built with.
func (p *Processor) Ratio() Ratio {
	return p.ratio
}

// Options returns the processor's options.
func (p *Processor) Options() Options {
	return p.opts
}

type lineKind int

const (
	kindOpaque lineKind = iota
	kindFirstMove
	kindRewritten
)

func (k lineKind) String() string {
	switch k {
	case kindOpaque:
		return "opaque"
	case kindFirstMove:
		return "first_move"
	default:
		return "rewritten"
	}
}

type stepResult struct {
	kind     lineKind
	distance float64
	e        float64
}

// Step is one fold step. On error the returned state is s and the error
// carries the line number and raw text; the error policy is not applied.
func (p *Processor) Step(s State, line string) (State, string, error) {
	next, out, _, err := p.step(s, line)
	return next, out, err
}

func (p *Processor) step(s State, line string) (State, string, stepResult, error) {
	n := s.Line + 1
	cmd, err := Parse(line, p.opts.Tokens)
	if err != nil {
		return s, "", stepResult{}, lineError(err, n, line)
	}
	m, ok := cmd.(*Move)
	if !ok {
		return State{Pos: s.Pos, Line: n}, line, stepResult{kind: kindOpaque}, nil
	}

	pos, hadPrevious := Track(s.Pos, m)
	end, hasXY := pos.Point()
	if !hadPrevious || !hasXY {
		return State{Pos: pos, Line: n}, line, stepResult{kind: kindFirstMove}, nil
	}
	start, _ := s.Pos.Point()

	distance, e, err := extrusionFor(start, end, p.ratio)
	if err != nil {
		return s, "", stepResult{}, lineError(err, n, line)
	}
	var extra *Move
	if p.opts.PreserveTokens {
		extra = m
	}
	out := Render(end, e, extra)
	return State{Pos: pos, Line: n}, out, stepResult{kind: kindRewritten, distance: distance, e: e}, nil
}

func lineError(err error, n int, raw string) error {
	if e, ok := errors.As(err); ok {
		return e.SetLine(n).SetContext("raw", raw)
	}
	return errors.Wrap(err, errors.ErrGCodeMalformedToken, "unparsable line").
		SetLine(n).
		SetContext("raw", raw)
}

// fold runs one step, applies the error policy and accounts for the line.
func (p *Processor) fold(s State, sum *Summary, line string) (State, string, error) {
	next, out, res, err := p.step(s, line)
	sum.Lines++
	if err != nil {
		sum.Errors++
		code := "unknown"
		if e, ok := errors.As(err); ok {
			code = string(e.Code)
		}
		if p.metrics != nil {
			p.metrics.RecordError(code)
		}
		if p.opts.Errors != PassThrough {
			return s, "", err
		}
		p.logger.WithFields(log.Fields{"line": s.Line + 1, "code": code}).
			Warnf("passing line through unchanged: %v", err)
		return State{Pos: s.Pos, Line: s.Line + 1}, line, nil
	}

	switch res.kind {
	case kindOpaque:
		sum.Unchanged++
	case kindFirstMove:
		sum.Moves++
		sum.Unchanged++
		p.logger.WithField("line", next.Line).Debugf("no previous position, keeping move at %s", next.Pos)
	case kindRewritten:
		sum.Moves++
		sum.Rewritten++
		sum.Distance += res.distance
		sum.Extruded += res.e
		if p.metrics != nil {
			p.metrics.RecordMove(res.distance, res.e)
		}
	}
	if p.metrics != nil {
		p.metrics.RecordLine(res.kind.String())
	}
	return next, out, nil
}

// Lines lazily rewrites a sequence of lines. Each output pairs with the
// input at the same position. Under Abort the sequence ends after yielding
// the first error.
func (p *Processor) Lines(in iter.Seq[string]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var (
			s   State
			sum Summary
		)
		for line := range in {
			next, out, err := p.fold(s, &sum, line)
			if err != nil {
				yield("", err)
				return
			}
			s = next
			if !yield(out, nil) {
				return
			}
		}
	}
}

// Process rewrites a whole slice of lines.
func (p *Processor) Process(lines []string) ([]string, error) {
	out := make([]string, 0, len(lines))
	for l, err := range p.Lines(slices.Values(lines)) {
		if err != nil {
			return out, err
		}
		out = append(out, l)
	}
	return out, nil
}

// Stream reads newline-separated lines from r and writes the rewritten
// lines to w, one "\n"-terminated line per input line. CRLF input is
// accepted. The returned summary covers the lines consumed so far, also
// when an error stops the run.
func (p *Processor) Stream(r io.Reader, w io.Writer) (Summary, error) {
	var (
		s   State
		sum Summary
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	bw := bufio.NewWriter(w)

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		next, out, err := p.fold(s, &sum, line)
		if err != nil {
			if ferr := bw.Flush(); ferr != nil {
				return sum, errors.IOError("write output", ferr)
			}
			return sum, err
		}
		s = next
		if _, err := bw.WriteString(out); err != nil {
			return sum, errors.IOError("write output", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return sum, errors.IOError("write output", err)
		}
	}
	if err := scanner.Err(); err != nil {
		readErr := errors.IOError("read input", err).SetLine(s.Line + 1)
		if ferr := bw.Flush(); ferr != nil {
			readErr.SetContext("flush_error", ferr.Error())
		}
		return sum, readErr
	}
	if err := bw.Flush(); err != nil {
		return sum, errors.IOError("write output", err)
	}

	p.logger.WithFields(log.Fields{
		"lines":     sum.Lines,
		"rewritten": sum.Rewritten,
		"errors":    sum.Errors,
	}).Debugf("stream done, extruded %.5f over %.3fmm", sum.Extruded, sum.Distance)
	return sum, nil
}

// maxLineLength bounds a single input line.
const maxLineLength = 1024 * 1024
