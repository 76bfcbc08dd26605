package gcode

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"gcode-extrude/pkg/errors"
)

// MoveWord is the command word of the only line form the rewriter inspects.
const MoveWord = "G1"

// Command is a tokenized input line, either *Move or *Opaque.
type Command interface {
	// Text returns the line exactly as it was read.
	Text() string
	isCommand()
}

// Opaque is any line that is not a linear move. It is never inspected.
type Opaque struct {
	Raw string
}

func (o *Opaque) Text() string { return o.Raw }
func (*Opaque) isCommand()     {}

// Move is a G1 line with the axis words it carries.
type Move struct {
	X, Y, Z Axis

	// Extra holds the words other than X, Y, Z and E in input order.
	Extra []string

	// Comment is the text after ';', without the semicolon.
	Comment    string
	HasComment bool

	Raw string
}

func (m *Move) Text() string { return m.Raw }
func (*Move) isCommand()     {}

// TokenPolicy decides what happens to an axis word whose value is not a
// finite number.
type TokenPolicy int

const (
	// RejectMalformed fails the line.
	RejectMalformed TokenPolicy = iota
	// SkipMalformed drops the word and leaves the axis absent.
	SkipMalformed
)

func (p TokenPolicy) String() string {
	switch p {
	case RejectMalformed:
		return "reject"
	case SkipMalformed:
		return "skip"
	default:
		return "unknown"
	}
}

// ParseTokenPolicy parses "reject" or "skip".
func ParseTokenPolicy(s string) (TokenPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reject", "":
		return RejectMalformed, nil
	case "skip":
		return SkipMalformed, nil
	default:
		return RejectMalformed, errors.New(errors.ErrConfigValidation, "unknown token policy "+s).
			SetSection("extrusion").
			SetOption("malformed_tokens")
	}
}

// Parse tokenizes a single line. A line is a move iff its first field is
// exactly G1; everything else comes back as *Opaque with a nil error.
func Parse(line string, policy TokenPolicy) (Command, error) {
	body, comment, hasComment := strings.Cut(line, ";")
	fields := strings.Fields(body)
	if len(fields) == 0 || fields[0] != MoveWord {
		return &Opaque{Raw: line}, nil
	}

	m := &Move{Raw: line, Comment: comment, HasComment: hasComment}
	for _, f := range fields[1:] {
		var dst *Axis
		switch f[0] {
		case 'X':
			dst = &m.X
		case 'Y':
			dst = &m.Y
		case 'Z':
			dst = &m.Z
		case 'E':
			// Recomputed on output.
			continue
		default:
			m.Extra = append(m.Extra, f)
			continue
		}
		v, ok := parseCoord(f[1:])
		if !ok {
			if policy == SkipMalformed {
				continue
			}
			return nil, errors.MalformedTokenError(line, f)
		}
		*dst = Some(v)
	}
	return m, nil
}

// reDecimal is the axis value grammar: sign, digits with an optional
// fraction, optional exponent. Hex floats and '_' separators do not match.
var reDecimal = regexp.MustCompile(`^[+-]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)

// parseCoord accepts decimal numbers only; NaN and infinities are rejected.
func parseCoord(s string) (float64, bool) {
	if !reDecimal.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
