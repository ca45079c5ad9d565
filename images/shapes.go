// Package images - Geometry and letterbox utilities for detection images.
package images

import (
	"image"

	"github.com/chewxy/math32"
)

// Point is a 2D point in pixel space.
type Point struct {
	X, Y float32
}

// Rect is an axis-aligned bounding box given by its top-left (X1, Y1) and
// bottom-right (X2, Y2) corners.
type Rect struct {
	X1, Y1, X2, Y2 float32
}

// FromCenter builds a Rect from a center point and a size.
//
// Arguments:
//   - cx, cy: The center of the box.
//   - w, h: The width and height of the box.
//
// Returns:
//   - Rect: The box in corner form.
func FromCenter(cx, cy, w, h float32) Rect {
	return Rect{
		X1: cx - w/2,
		Y1: cy - h/2,
		X2: cx + w/2,
		Y2: cy + h/2,
	}
}

// Width returns the horizontal extent of the box.
func (r Rect) Width() float32 { return r.X2 - r.X1 }

// Height returns the vertical extent of the box.
func (r Rect) Height() float32 { return r.Y2 - r.Y1 }

// Area returns the area of the box, or 0 when the box is inverted.
func (r Rect) Area() float32 {
	w, h := r.Width(), r.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Valid reports whether all coordinates are finite and the corners are ordered.
func (r Rect) Valid() bool {
	for _, v := range [4]float32{r.X1, r.Y1, r.X2, r.Y2} {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return false
		}
	}
	return r.X1 <= r.X2 && r.Y1 <= r.Y2
}

// Clamp limits every coordinate to [0, width] x [0, height].
func (r Rect) Clamp(width, height float32) Rect {
	return Rect{
		X1: clamp(r.X1, 0, width),
		Y1: clamp(r.Y1, 0, height),
		X2: clamp(r.X2, 0, width),
		Y2: clamp(r.Y2, 0, height),
	}
}

// Rectangle converts the box to an integer image.Rectangle, rounding each corner.
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(
		int(math32.Round(r.X1)),
		int(math32.Round(r.Y1)),
		int(math32.Round(r.X2)),
		int(math32.Round(r.Y2)),
	)
}

// Clamp limits the point to [0, width] x [0, height].
func (p Point) Clamp(width, height float32) Point {
	return Point{X: clamp(p.X, 0, width), Y: clamp(p.Y, 0, height)}
}

// ImagePoint converts the point to an integer image.Point, rounding each coordinate.
func (p Point) ImagePoint() image.Point {
	return image.Point{X: int(math32.Round(p.X)), Y: int(math32.Round(p.Y))}
}

// CalculateIoU returns the Intersection over Union of two boxes.
//
// IoU is the area where two boxes overlap divided by the area they cover
// together:
//
//	IoU = Area(A ∩ B) / (Area(A) + Area(B) - Area(A ∩ B))
//
// The overlap's top-left corner is the larger of the two top-left corners and
// its bottom-right corner is the smaller of the two bottom-right corners. When
// the resulting width or height is not positive the boxes are disjoint (or only
// touch) and the score is 0. A degenerate union also scores 0, so the result is
// always in [0, 1] and never NaN.
//
// Arguments:
//   - a: The first box.
//   - b: The second box.
//
// Returns:
//   - float32: The IoU score in [0, 1].
//
// @example
//
//	a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	b := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//	iou := CalculateIoU(a, b) // 25 / 175 = 0.142857
func CalculateIoU(a, b Rect) float32 {
	ix1 := max(a.X1, b.X1)
	iy1 := max(a.Y1, b.Y1)
	ix2 := min(a.X2, b.X2)
	iy2 := min(a.Y2, b.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0
	}
	inter := interW * interH

	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(v, hi))
}
