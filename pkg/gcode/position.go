package gcode

import (
	"math"
	"strconv"
)

// Axis is a single coordinate that may not have been established yet.
type Axis struct {
	Value float64
	Valid bool
}

// Some returns a defined axis value.
func Some(v float64) Axis {
	return Axis{Value: v, Valid: true}
}

// Or returns a if it is defined, otherwise fallback.
func (a Axis) Or(fallback Axis) Axis {
	if a.Valid {
		return a
	}
	return fallback
}

func (a Axis) String() string {
	if !a.Valid {
		return "-"
	}
	return formatCoord(a.Value)
}

// Position is the tracked machine position. The zero value means no axis
// has been seen yet.
type Position struct {
	X, Y, Z Axis
}

// HasXY reports whether both planar axes are established.
func (p Position) HasXY() bool {
	return p.X.Valid && p.Y.Valid
}

// Point converts the position to a Point3. ok is false while X or Y is
// still unknown.
func (p Position) Point() (pt Point3, ok bool) {
	if !p.HasXY() {
		return Point3{}, false
	}
	return Point3{X: p.X.Value, Y: p.Y.Value, Z: p.Z}, true
}

func (p Position) String() string {
	return "(" + p.X.String() + ", " + p.Y.String() + ", " + p.Z.String() + ")"
}

// Point3 is a machine position with X and Y defined and an optional Z.
type Point3 struct {
	X, Y float64
	Z    Axis
}

// XY returns a 2D point.
func XY(x, y float64) Point3 {
	return Point3{X: x, Y: y}
}

// XYZ returns a 3D point.
func XYZ(x, y, z float64) Point3 {
	return Point3{X: x, Y: y, Z: Some(z)}
}

// Position returns p as a tracking position.
func (p Point3) Position() Position {
	return Position{X: Some(p.X), Y: Some(p.Y), Z: p.Z}
}

// finite reports whether every defined coordinate is a finite number.
func (p Point3) finite() bool {
	if math.IsNaN(p.X) || math.IsInf(p.X, 0) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
		return false
	}
	return !p.Z.Valid || !(math.IsNaN(p.Z.Value) || math.IsInf(p.Z.Value, 0))
}

// formatCoord renders a coordinate in its shortest round-trip decimal form,
// never using exponent notation.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
