package images

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-yolo/errors"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	src := imaging.New(12, 8, color.NRGBA{R: 200, A: 255})

	pngPath := filepath.Join(dir, "frame.png")
	require.NoError(t, imaging.Save(src, pngPath))

	var buf bytes.Buffer
	require.NoError(t, webp.Encode(&buf, src, &webp.Options{Lossless: true}))
	webpPath := filepath.Join(dir, "frame.WEBP")
	require.NoError(t, os.WriteFile(webpPath, buf.Bytes(), 0o600))

	tests := []struct {
		name string
		path string
	}{
		{"png", pngPath},
		{"webp", webpPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Load(tt.path)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 12, 8), img.Bounds())

			r, _, _, _ := img.At(5, 5).RGBA()
			assert.InDelta(t, 200, r>>8, 2)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "bad.webp")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o600))

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "missing.png")},
		{"missing webp", filepath.Join(dir, "missing.webp")},
		{"corrupt webp", garbage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			assert.True(t, errors.Is(err, errors.ErrInvalidInput))
		})
	}
}
