package gcode

// Track applies a move's axis words to the previous position. Axes the move
// does not mention keep their previous value, or stay absent if they never
// had one. hadPrevious reports whether prev had both X and Y; Z does not
// matter for that.
func Track(prev Position, m *Move) (next Position, hadPrevious bool) {
	next = Position{
		X: m.X.Or(prev.X),
		Y: m.Y.Or(prev.Y),
		Z: m.Z.Or(prev.Z),
	}
	return next, prev.HasXY()
}
