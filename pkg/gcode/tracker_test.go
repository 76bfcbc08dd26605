package gcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrack(t *testing.T) {
	tests := []struct {
		name        string
		prev        Position
		move        *Move
		want        Position
		hadPrevious bool
	}{
		{
			name: "first move",
			move: &Move{X: Some(1), Y: Some(2)},
			want: Position{X: Some(1), Y: Some(2)},
		},
		{
			name:        "inherits missing axes",
			prev:        XYZ(1, 2, 3).Position(),
			move:        &Move{X: Some(5)},
			want:        XYZ(5, 2, 3).Position(),
			hadPrevious: true,
		},
		{
			name: "partial previous",
			prev: Position{X: Some(1)},
			move: &Move{Y: Some(4)},
			want: Position{X: Some(1), Y: Some(4)},
		},
		{
			name:        "z only",
			prev:        XY(1, 2).Position(),
			move:        &Move{Z: Some(0.3)},
			want:        XYZ(1, 2, 0.3).Position(),
			hadPrevious: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, had := Track(tt.prev, tt.move)
			assert.Equal(t, tt.want, next)
			assert.Equal(t, tt.hadPrevious, had)
		})
	}
}

func TestTrackDoesNotMutate(t *testing.T) {
	prev := XYZ(1, 2, 3).Position()
	_, _ = Track(prev, &Move{X: Some(9), Y: Some(9), Z: Some(9)})
	assert.Equal(t, XYZ(1, 2, 3).Position(), prev)
}

func TestPositionString(t *testing.T) {
	assert.Equal(t, "(-, -, -)", Position{}.String())
	assert.Equal(t, "(1.5, 2, -)", XY(1.5, 2).Position().String())
}
