package gcode

import (
	"math"
	"strconv"
	"strings"

	"gcode-extrude/pkg/errors"
)

// Calibration is the reference move the extrusion ratio is derived from:
// moving from Start to End dispensed ReferenceE of material.
type Calibration struct {
	Start      Point3
	End        Point3
	ReferenceE float64
}

// Default calibration geometry.
var (
	DefaultReferenceStart = XYZ(138.874, 99.344, 9.913)
	DefaultReferenceEnd   = XYZ(149.087, 109.557, 11.44)
)

// DefaultReferenceE is the extrusion used when none is configured.
const DefaultReferenceE = 0.5

// DefaultCalibration returns the stock reference move with the given
// extrusion amount.
func DefaultCalibration(referenceE float64) Calibration {
	return Calibration{
		Start:      DefaultReferenceStart,
		End:        DefaultReferenceEnd,
		ReferenceE: referenceE,
	}
}

// Ratio is the extrusion-per-distance derived once from a Calibration.
type Ratio struct {
	Distance     float64
	ReferenceE   float64
	EPerDistance float64
}

// NewRatio validates the calibration and derives the ratio. It fails when
// the reference points coincide or when any input is not finite.
func NewRatio(c Calibration) (Ratio, error) {
	if math.IsNaN(c.ReferenceE) || math.IsInf(c.ReferenceE, 0) {
		return Ratio{}, errors.ConfigValidationError("extrusion", "reference_e", "must be a finite number")
	}
	if c.ReferenceE < 0 {
		return Ratio{}, errors.ConfigValidationError("extrusion", "reference_e", "must not be negative")
	}
	if c.ReferenceE == 0 {
		// -0 would render every E as -0.00000
		c.ReferenceE = 0
	}
	if !c.Start.finite() || !c.End.finite() {
		return Ratio{}, errors.DegenerateReferenceError("reference points must be finite")
	}
	d := Distance(c.Start, c.End)
	if d == 0 {
		return Ratio{}, errors.DegenerateReferenceError("reference points coincide")
	}
	if math.IsInf(d, 0) {
		return Ratio{}, errors.DegenerateReferenceError("reference distance overflows")
	}
	return Ratio{
		Distance:     d,
		ReferenceE:   c.ReferenceE,
		EPerDistance: c.ReferenceE / d,
	}, nil
}

// Extrusion returns the material for a move of the given length.
func (r Ratio) Extrusion(distance float64) float64 {
	return distance * r.EPerDistance
}

// Distance is the Euclidean distance between two points. Z takes part only
// when both points define it; otherwise the planar distance is returned.
func Distance(a, b Point3) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	if a.Z.Valid && b.Z.Valid {
		dz := b.Z.Value - a.Z.Value
		return math.Sqrt(dx*dx + dy*dy + dz*dz)
	}
	return math.Sqrt(dx*dx + dy*dy)
}

// Compute returns the rewritten move from start to end together with its
// extrusion value.
func Compute(start, end Point3, r Ratio) (line string, e float64, err error) {
	_, e, err = extrusionFor(start, end, r)
	if err != nil {
		return "", 0, err
	}
	return Render(end, e, nil), e, nil
}

// extrusionFor computes distance and extrusion and rejects non-finite results.
func extrusionFor(start, end Point3, r Ratio) (distance, e float64, err error) {
	distance = Distance(start, end)
	if math.IsNaN(distance) || math.IsInf(distance, 0) {
		return 0, 0, errors.NonFiniteError("", "distance", distance)
	}
	e = r.Extrusion(distance)
	if math.IsNaN(e) || math.IsInf(e, 0) {
		return 0, 0, errors.NonFiniteError("", "extrusion", e)
	}
	return distance, e, nil
}

// Render formats "G1 X.. Y.. [Z.. ]E..". When m is non-nil its extra
// words and comment are appended after E.
func Render(end Point3, e float64, m *Move) string {
	var sb strings.Builder
	sb.Grow(48)
	sb.WriteString(MoveWord)
	sb.WriteString(" X")
	sb.WriteString(formatCoord(end.X))
	sb.WriteString(" Y")
	sb.WriteString(formatCoord(end.Y))
	if end.Z.Valid {
		sb.WriteString(" Z")
		sb.WriteString(formatCoord(end.Z.Value))
	}
	sb.WriteString(" E")
	sb.WriteString(strconv.FormatFloat(e, 'f', 5, 64))
	if m != nil {
		for _, w := range m.Extra {
			sb.WriteByte(' ')
			sb.WriteString(w)
		}
		if m.HasComment {
			sb.WriteString(" ;")
			sb.WriteString(m.Comment)
		}
	}
	return sb.String()
}
