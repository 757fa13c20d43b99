// Package common - shared geometry for detections and annotations.
package common

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
)

// BoundingBox represents an axis-aligned box in absolute pixel coordinates.
//
// X1,Y1 is the top-left corner (xmin, ymin) and X2,Y2 the bottom-right corner
// (xmax, ymax). Boxes with X2 <= X1 or Y2 <= Y1 are tolerated and have zero area.
type BoundingBox struct {
	X1 float32 `json:"xmin" yaml:"xmin"`
	Y1 float32 `json:"ymin" yaml:"ymin"`
	X2 float32 `json:"xmax" yaml:"xmax"`
	Y2 float32 `json:"ymax" yaml:"ymax"`
}

// NewBoundingBox creates a box from its corner coordinates.
func NewBoundingBox(x1, y1, x2, y2 float32) BoundingBox {
	return BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%.1f, %.1f), (%.1f, %.1f)", b.X1, b.Y1, b.X2, b.Y2)
}

// Width returns the clipped width of the box.
func (b BoundingBox) Width() float32 {
	return math32.Max(b.X2-b.X1, 0)
}

// Height returns the clipped height of the box.
func (b BoundingBox) Height() float32 {
	return math32.Max(b.Y2-b.Y1, 0)
}

// Area returns the area of the box in pixels. Degenerate boxes have zero area.
func (b BoundingBox) Area() float32 {
	return b.Width() * b.Height()
}

// ToRect converts the bounding box to an image.Rectangle.
//
// This loses the fractional part of the coordinates, so it is only meant for
// drawing. Overlap math stays in float32.
//
// Returns:
//   - An image.Rectangle with canonicalized coordinates.
//
// @example
// box := BoundingBox{X1: 100.5, Y1: 100.5, X2: 200.5, Y2: 300.5}
// rect := box.ToRect() // (100,100)-(200,300)
func (b BoundingBox) ToRect() image.Rectangle {
	return image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2)).Canon()
}

// Intersection calculates the intersection area between two bounding boxes.
//
// Arguments:
//   - other: The other bounding box to calculate intersection with.
//
// Returns:
//   - The area of the clipped overlap rectangle, 0 when the boxes are disjoint.
//
// @example
// box1 := BoundingBox{X1: 0, Y1: 0, X2: 100, Y2: 100}
// box2 := BoundingBox{X1: 50, Y1: 50, X2: 150, Y2: 150}
// area := box1.Intersection(box2) // 2500
func (b BoundingBox) Intersection(other BoundingBox) float32 {
	iw := math32.Min(b.X2, other.X2) - math32.Max(b.X1, other.X1)
	ih := math32.Min(b.Y2, other.Y2) - math32.Max(b.Y1, other.Y1)
	if iw <= 0 || ih <= 0 {
		return 0
	}
	return iw * ih
}

// Union calculates the union area between two bounding boxes.
//
// Arguments:
//   - other: The other bounding box to calculate union with.
//
// Returns:
//   - area(b) + area(other) - intersection.
//
// @example
// box1 := BoundingBox{X1: 0, Y1: 0, X2: 100, Y2: 100}
// box2 := BoundingBox{X1: 50, Y1: 50, X2: 150, Y2: 150}
// area := box1.Union(box2) // 17500
func (b BoundingBox) Union(other BoundingBox) float32 {
	return b.Area() + other.Area() - b.Intersection(other)
}

// IoU calculates the Intersection over Union between two bounding boxes.
//
// Two boxes without any area return 0 rather than NaN. The result is
// symmetric and lies in [0, 1].
//
// Arguments:
//   - other: The other bounding box to calculate IoU with.
//
// Returns:
//   - The IoU value between 0 and 1.
//
// @example
// box1 := BoundingBox{X1: 0, Y1: 0, X2: 100, Y2: 100}
// box2 := BoundingBox{X1: 50, Y1: 50, X2: 150, Y2: 150}
// iou := box1.IoU(box2) // ~0.143 (2500/17500)
func (b BoundingBox) IoU(other BoundingBox) float32 {
	inter := b.Intersection(other)
	union := b.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Scale multiplies every coordinate by the given factors.
func (b BoundingBox) Scale(sx, sy float32) BoundingBox {
	return BoundingBox{X1: b.X1 * sx, Y1: b.Y1 * sy, X2: b.X2 * sx, Y2: b.Y2 * sy}
}

// Clamp restricts the box to [0, width] x [0, height].
func (b BoundingBox) Clamp(width, height float32) BoundingBox {
	return BoundingBox{
		X1: math32.Min(math32.Max(b.X1, 0), width),
		Y1: math32.Min(math32.Max(b.Y1, 0), height),
		X2: math32.Min(math32.Max(b.X2, 0), width),
		Y2: math32.Min(math32.Max(b.Y2, 0), height),
	}
}
