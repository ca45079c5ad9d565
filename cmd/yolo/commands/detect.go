package commands

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-yolo/errors"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/logger"
	"github.com/nvr-ai/go-yolo/overlay"
	"github.com/nvr-ai/go-yolo/util"
)

// DetectCmd runs detection on a single image or a directory of images.
var DetectCmd = &cobra.Command{
	Use:   "detect [image]",
	Short: "Detect objects and keypoints in images",
	Long: `Detect objects and keypoints in images.

The image comes from the positional argument or, when omitted, from image_path
in the config file. With --dir every image in the directory is processed, with
frame-N files first in frame order.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDetect,
}

func init() {
	DetectCmd.Flags().String("dir", "", "Process every image in this directory")
	DetectCmd.Flags().StringP("output", "o", "", "Save the annotated image to this file (a directory with --dir)")
	DetectCmd.Flags().Bool("show", false, "Display the annotated image in a window")
	DetectCmd.Flags().Bool("no-labels", false, "Do not draw class captions")
}

func runDetect(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	output, _ := cmd.Flags().GetString("output")
	show, _ := cmd.Flags().GetBool("show")
	noLabels, _ := cmd.Flags().GetBool("no-labels")

	cfg, d, err := loadDetector(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	var paths []string
	switch {
	case dir != "":
		files, err := util.ListImageFiles(dir)
		if err != nil {
			return err
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
		if output != "" {
			if err := os.MkdirAll(output, 0o755); err != nil {
				return errors.Wrapf(err, "failed to create output directory %s", output)
			}
		}
	case len(args) == 1:
		paths = []string{args[0]}
	case cfg.ImagePath != "":
		paths = []string{cfg.ImagePath}
	default:
		return errors.Wrap(errors.ErrInvalidInput, "no image given: pass a path, --dir, or set image_path")
	}

	style := overlay.DefaultStyle()
	style.Labels = !noLabels
	modelCfg, _ := d.Config()
	label := labeler(modelCfg)
	log := logger.Named("detect")

	var window *gocv.Window
	if show {
		window = gocv.NewWindow("yolo detect")
		defer window.Close()
	}

	for _, path := range paths {
		img, err := images.Load(path)
		if err != nil {
			return err
		}

		results, stats, err := d.RunWithStats(cmd.Context(), img)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			log.Errorw("detection failed", logger.FieldPath, path, logger.FieldError, err)
			continue
		}

		fmt.Printf("%s: detected %d objects (%.1f ms)\n", path, len(results), float64(stats.Total.Microseconds())/1000)
		for _, r := range results {
			fmt.Printf("  %-12s %.2f  [%.0f %.0f %.0f %.0f]\n",
				label(r.Class), r.Score, r.Box.X1, r.Box.Y1, r.Box.X2, r.Box.Y2)
		}

		if output == "" && window == nil {
			continue
		}
		annotated := overlay.Draw(img, results, label, style)

		if output != "" {
			dst := output
			if dir != "" {
				dst = batchOutputPath(output, path)
			}
			if err := imaging.Save(annotated, dst, imaging.JPEGQuality(95)); err != nil {
				if dir == "" {
					return errors.Wrapf(err, "failed to save %s", dst)
				}
				log.Errorw("failed to save annotated image", logger.FieldPath, dst, logger.FieldError, err)
				continue
			}
			log.Infow("saved annotated image", logger.FieldPath, dst)
		}

		if window != nil {
			if key := display(window, annotated, 0); key == 27 || key == 'q' {
				break
			}
		}
	}

	return nil
}

// saveExtensions are the output formats imaging can encode.
var saveExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".gif": true, ".tif": true, ".tiff": true,
}

// batchOutputPath names the annotated copy of src inside dir. Inputs in a
// format imaging cannot encode, such as WebP, are written as JPEG.
func batchOutputPath(dir, src string) string {
	base := filepath.Base(src)
	ext := filepath.Ext(base)
	if !saveExtensions[strings.ToLower(ext)] {
		base = strings.TrimSuffix(base, ext) + ".jpg"
	}
	return filepath.Join(dir, base)
}

// display shows img in window and waits for a key press. A delay of 0 waits
// indefinitely.
func display(window *gocv.Window, img image.Image, delay int) int {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		logger.Logger.Warnw("failed to convert image for display", logger.FieldError, err)
		return -1
	}
	defer mat.Close()

	// gocv expects BGR.
	gocv.CvtColor(mat, &mat, gocv.ColorRGBToBGR)
	window.IMShow(mat)
	return window.WaitKey(delay)
}
