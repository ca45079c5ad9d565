// Package overlay - Draws detections onto images.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/up-zero/gotool/imageutil"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// Style controls how detections are drawn.
type Style struct {
	BoxColor      color.RGBA
	BoxThickness  int
	LineColor     color.RGBA
	LineThickness int
	PointColor    color.RGBA
	PointRadius   int
	TextColor     color.RGBA
	// Labels enables the "label score" caption above each box.
	Labels bool
}

// DefaultStyle draws keypoint outlines in green (0, 192, 0) one pixel wide.
func DefaultStyle() Style {
	return Style{
		BoxColor:      color.RGBA{R: 255, G: 56, B: 56, A: 255},
		BoxThickness:  2,
		LineColor:     color.RGBA{G: 192, A: 255},
		LineThickness: 1,
		PointColor:    color.RGBA{R: 255, G: 157, B: 151, A: 255},
		PointRadius:   3,
		TextColor:     color.RGBA{R: 255, G: 255, B: 255, A: 255},
		Labels:        true,
	}
}

// Draw returns a copy of img with every detection drawn on it: the box, the
// keypoints joined in order into a closed outline, and an optional caption.
//
// Arguments:
//   - img: The source image. It is not modified.
//   - results: The detections, in img pixel coordinates.
//   - label: Returns the caption for a class index. Nil captions with the index.
//   - style: The drawing style.
//
// Returns:
//   - *image.RGBA: The annotated copy.
func Draw(img image.Image, results []postprocess.Result, label func(int) string, style Style) *image.RGBA {
	dst := image.NewRGBA(img.Bounds())
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)

	for _, r := range results {
		if style.BoxThickness > 0 {
			imageutil.DrawThickRectOutline(dst, r.Box.Rectangle(), style.BoxColor, style.BoxThickness)
		}

		pts := make([]image.Point, len(r.KeyPoints))
		for i, kp := range r.KeyPoints {
			pts[i] = kp.ImagePoint()
		}
		if len(pts) > 1 && style.LineThickness > 0 {
			imageutil.DrawThickPolygonOutline(dst, pts, style.LineThickness, style.LineColor)
		}
		if style.PointRadius > 0 {
			for _, p := range pts {
				imageutil.DrawFilledCircle(dst, p, style.PointRadius, style.PointColor)
			}
		}

		if style.Labels {
			text := fmt.Sprintf("%d %.2f", r.Class, r.Score)
			if label != nil {
				text = fmt.Sprintf("%s %.2f", label(r.Class), r.Score)
			}
			caption(dst, text, r.Box.Rectangle().Min, style)
		}
	}

	return dst
}

// caption draws text on a filled background whose bottom-left corner is at
// anchor, moved inside the image when it would fall off the top.
func caption(dst *image.RGBA, text string, anchor image.Point, style Style) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil() + 4
	height := face.Metrics().Height.Ceil() + 2

	top := anchor.Y - height
	if top < dst.Bounds().Min.Y {
		top = anchor.Y
	}
	bg := image.Rect(anchor.X, top, anchor.X+width, top+height).Intersect(dst.Bounds())
	draw.Draw(dst, bg, image.NewUniform(style.BoxColor), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(style.TextColor),
		Face: face,
		Dot:  fixed.P(anchor.X+2, top+face.Metrics().Ascent.Ceil()+1),
	}
	d.DrawString(text)
}
