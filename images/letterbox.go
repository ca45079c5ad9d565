package images

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	"github.com/nvr-ai/go-yolo/errors"
)

// LetterboxColor is the neutral gray used for padding, the YOLO convention.
var LetterboxColor = color.NRGBA{R: 114, G: 114, B: 114, A: 255}

// Transform records how a source image was placed on a letterbox canvas so
// that coordinates predicted on the canvas can be mapped back.
type Transform struct {
	// Ratio is the uniform scale applied to the source image.
	Ratio float32
	// PadX is the left offset of the scaled image on the canvas.
	PadX float32
	// PadY is the top offset of the scaled image on the canvas.
	PadY float32
	// SrcWidth and SrcHeight are the source image dimensions.
	SrcWidth, SrcHeight float32
}

// ToOriginal maps a canvas point back to source image coordinates.
func (t Transform) ToOriginal(p Point) Point {
	return Point{
		X: (p.X - t.PadX) / t.Ratio,
		Y: (p.Y - t.PadY) / t.Ratio,
	}
}

// ToCanvas maps a source image point onto the canvas.
func (t Transform) ToCanvas(p Point) Point {
	return Point{
		X: p.X*t.Ratio + t.PadX,
		Y: p.Y*t.Ratio + t.PadY,
	}
}

// ClampToSource limits a point to the source image bounds.
func (t Transform) ClampToSource(p Point) Point {
	return p.Clamp(t.SrcWidth, t.SrcHeight)
}

// RectToOriginal maps a canvas box back to source coordinates and clamps it to
// the source image bounds.
func (t Transform) RectToOriginal(r Rect) Rect {
	tl := t.ToOriginal(Point{X: r.X1, Y: r.Y1})
	br := t.ToOriginal(Point{X: r.X2, Y: r.Y2})
	return Rect{X1: tl.X, Y1: tl.Y, X2: br.X, Y2: br.Y}.Clamp(t.SrcWidth, t.SrcHeight)
}

// Letterbox scales img uniformly to fit a width x height canvas, centers it and
// fills the border with LetterboxColor.
//
// The scale is min(width/iw, height/ih); the scaled size is rounded half up and
// the padding is the integer half of the leftover on each axis. The scaled image
// is pasted at exactly (PadX, PadY), so the returned Transform inverts the
// placement without drift.
//
// Arguments:
//   - img: The source image. It is never modified.
//   - width: The canvas width.
//   - height: The canvas height.
//
// Returns:
//   - *image.NRGBA: The width x height canvas.
//   - Transform: The placement of the source on the canvas.
//   - error: ErrInvalidInput if the image is nil or empty, or the target size is not positive.
//
// @example
//
//	canvas, tf, err := images.Letterbox(frame, 640, 640)
//	// 1280x720 -> Ratio 0.5, PadX 0, PadY 140
func Letterbox(img image.Image, width, height int) (*image.NRGBA, Transform, error) {
	if img == nil {
		return nil, Transform{}, errors.Wrap(errors.ErrInvalidInput, "letterbox: nil image")
	}
	if width <= 0 || height <= 0 {
		return nil, Transform{}, errors.Wrapf(errors.ErrInvalidInput,
			"letterbox: target size %dx%d", width, height)
	}

	bounds := img.Bounds()
	iw, ih := bounds.Dx(), bounds.Dy()
	if iw <= 0 || ih <= 0 {
		return nil, Transform{}, errors.Wrapf(errors.ErrInvalidInput,
			"letterbox: empty image %dx%d", iw, ih)
	}

	ratio := math32.Min(float32(width)/float32(iw), float32(height)/float32(ih))
	sw := max(1, min(width, int(math32.Floor(float32(iw)*ratio+0.5))))
	sh := max(1, min(height, int(math32.Floor(float32(ih)*ratio+0.5))))
	padX := (width - sw) / 2
	padY := (height - sh) / 2

	canvas := imaging.New(width, height, LetterboxColor)
	var scaled image.Image = img
	if sw != iw || sh != ih {
		scaled = resize.Resize(uint(sw), uint(sh), img, resize.Lanczos3)
	}
	canvas = imaging.Paste(canvas, scaled, image.Pt(padX, padY))

	return canvas, Transform{
		Ratio:     ratio,
		PadX:      float32(padX),
		PadY:      float32(padY),
		SrcWidth:  float32(iw),
		SrcHeight: float32(ih),
	}, nil
}
