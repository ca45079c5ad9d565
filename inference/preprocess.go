package inference

import (
	"image"

	"github.com/nvr-ai/go-yolo/errors"
)

// FillCHW writes img into dst as planar RGB (all red values, then green, then
// blue) scaled to [0, 1], which is the [1, 3, H, W] layout YOLO models expect.
//
// Arguments:
//   - img: The image to write. Its bounds must be exactly width x height.
//   - dst: The destination tensor data, at least 3*width*height long.
//   - width: The tensor width.
//   - height: The tensor height.
//
// Returns:
//   - error: ErrInvalidInput if the image or the destination has the wrong size.
func FillCHW(img image.Image, dst []float32, width, height int) error {
	if img == nil {
		return errors.Wrap(errors.ErrInvalidInput, "nil input image")
	}
	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return errors.Wrapf(errors.ErrInvalidInput, "input image is %dx%d, want %dx%d",
			b.Dx(), b.Dy(), width, height)
	}
	channelSize := width * height
	if len(dst) < channelSize*3 {
		return errors.Wrapf(errors.ErrInvalidInput,
			"destination tensor only holds %d floats, needs %d", len(dst), channelSize*3)
	}
	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	if nrgba, ok := img.(*image.NRGBA); ok {
		i := 0
		for y := 0; y < height; y++ {
			row := nrgba.Pix[y*nrgba.Stride:]
			for x := 0; x < width; x++ {
				p := row[x*4:]
				red[i] = float32(p[0]) / 255.0
				green[i] = float32(p[1]) / 255.0
				blue[i] = float32(p[2]) / 255.0
				i++
			}
		}
		return nil
	}

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(bl>>8) / 255.0
			i++
		}
	}
	return nil
}
