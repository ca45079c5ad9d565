package images

import (
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/nvr-ai/go-yolo/errors"
)

// Load reads an image file. WebP files go through the webp codec; JPEG, PNG
// and BMP are decoded by imaging with EXIF orientation applied.
//
// Returns:
//   - image.Image: The decoded image.
//   - error: ErrInvalidInput if the file cannot be read or decoded.
func Load(path string) (image.Image, error) {
	if strings.EqualFold(filepath.Ext(path), ".webp") {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "open %s: %v", path, err)
		}
		defer f.Close()

		img, err := webp.Decode(f)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "decode webp %s: %v", path, err)
		}
		return img, nil
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "open %s: %v", path, err)
	}
	return img, nil
}
