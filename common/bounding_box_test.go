package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIoU_Correctness validates the IoU implementation against known test cases
func TestIoU_Correctness(t *testing.T) {
	tests := []struct {
		name     string
		r1       BoundingBox
		r2       BoundingBox
		expected float32
	}{
		{
			name:     "Identical boxes",
			r1:       NewBoundingBox(0, 0, 100, 100),
			r2:       NewBoundingBox(0, 0, 100, 100),
			expected: 1.0,
		},
		{
			name:     "No overlap",
			r1:       NewBoundingBox(0, 0, 100, 100),
			r2:       NewBoundingBox(200, 200, 300, 300),
			expected: 0.0,
		},
		{
			name:     "Touching edges",
			r1:       NewBoundingBox(0, 0, 100, 100),
			r2:       NewBoundingBox(100, 0, 200, 100),
			expected: 0.0,
		},
		{
			name:     "Half overlap",
			r1:       NewBoundingBox(0, 0, 100, 100),
			r2:       NewBoundingBox(50, 50, 150, 150),
			expected: 0.142857, // 2500 / 17500
		},
		{
			name:     "One inside other",
			r1:       NewBoundingBox(0, 0, 100, 100),
			r2:       NewBoundingBox(25, 25, 75, 75),
			expected: 0.25,
		},
		{
			name:     "Fractional coordinates",
			r1:       NewBoundingBox(0.5, 0.5, 10.5, 10.5),
			r2:       NewBoundingBox(5.5, 0.5, 15.5, 10.5),
			expected: 50.0 / 150.0,
		},
		{
			name:     "Both degenerate",
			r1:       NewBoundingBox(10, 10, 10, 10),
			r2:       NewBoundingBox(10, 10, 10, 10),
			expected: 0.0,
		},
		{
			name:     "Inverted box has no area",
			r1:       NewBoundingBox(100, 100, 0, 0),
			r2:       NewBoundingBox(0, 0, 100, 100),
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.r1.IoU(tt.r2)
			assert.InDelta(t, tt.expected, result, 0.001)

			// IoU(A, B) should equal IoU(B, A)
			assert.Equal(t, result, tt.r2.IoU(tt.r1), "IoU not symmetric")

			assert.GreaterOrEqual(t, result, float32(0))
			assert.LessOrEqual(t, result, float32(1))
		})
	}
}

func TestIoU_Self(t *testing.T) {
	boxes := []BoundingBox{
		NewBoundingBox(0, 0, 1, 1),
		NewBoundingBox(48, 240, 195, 371),
		NewBoundingBox(8.25, 12.5, 498.75, 332.125),
		NewBoundingBox(-20, -20, 20, 20),
		// Area 4e-8, below float32 machine epsilon.
		NewBoundingBox(10, 10, 10.0002, 10.0002),
	}
	for _, b := range boxes {
		assert.Equal(t, float32(1), b.IoU(b), "IoU(%s, %s)", b, b)
	}
}

func TestBoundingBox_Area(t *testing.T) {
	assert.Equal(t, float32(10000), NewBoundingBox(0, 0, 100, 100).Area())
	assert.Equal(t, float32(0), NewBoundingBox(0, 0, 0, 100).Area())
	assert.Equal(t, float32(0), NewBoundingBox(50, 50, 10, 10).Area())

	b1 := NewBoundingBox(0, 0, 100, 100)
	b2 := NewBoundingBox(50, 50, 150, 150)
	assert.Equal(t, float32(2500), b1.Intersection(b2))
	assert.Equal(t, float32(17500), b1.Union(b2))
}

func TestBoundingBox_ScaleClamp(t *testing.T) {
	b := NewBoundingBox(-10, 5, 700, 300).Clamp(640, 480)
	assert.Equal(t, NewBoundingBox(0, 5, 640, 300), b)

	s := NewBoundingBox(10, 20, 30, 40).Scale(2, 0.5)
	assert.Equal(t, NewBoundingBox(20, 10, 60, 20), s)

	assert.Equal(t, "(100,100)-(200,300)", NewBoundingBox(100.5, 100.5, 200.5, 300.5).ToRect().String())
}

func TestIoU_NoArea(t *testing.T) {
	line := NewBoundingBox(0, 0, 0, 10)
	point := NewBoundingBox(5, 5, 5, 5)
	assert.Equal(t, float32(0), line.IoU(line))
	assert.Equal(t, float32(0), line.IoU(point))
	assert.Equal(t, float32(0), point.IoU(NewBoundingBox(0, 0, 10, 10)))
}
