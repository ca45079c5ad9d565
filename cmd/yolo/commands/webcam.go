package commands

import (
	"fmt"
	"image"
	"image/color"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-yolo/errors"
	"github.com/nvr-ai/go-yolo/logger"
	"github.com/nvr-ai/go-yolo/overlay"
)

// WebcamCmd runs live detection on a camera stream.
var WebcamCmd = &cobra.Command{
	Use:   "webcam",
	Short: "Run live detection on a video capture device",
	RunE:  runWebcam,
}

func init() {
	WebcamCmd.Flags().Int("device", 0, "Video capture device ID")
}

func runWebcam(cmd *cobra.Command, args []string) error {
	deviceID, _ := cmd.Flags().GetInt("device")

	_, d, err := loadDetector(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	webcam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidInput, "failed to open video device %d: %v", deviceID, err)
	}
	defer webcam.Close()

	window := gocv.NewWindow("yolo webcam")
	defer window.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	modelCfg, _ := d.Config()
	label := labeler(modelCfg)
	style := overlay.DefaultStyle()
	log := logger.Named("webcam")

	fps := 0.0
	frameCount := 0
	lastTime := time.Now()

	log.Infow("reading camera", "device", deviceID)
	for ctx.Err() == nil {
		if ok := webcam.Read(&frame); !ok {
			return errors.Wrapf(errors.ErrInvalidInput, "cannot read device %d", deviceID)
		}
		if frame.Empty() {
			continue
		}

		frameCount++
		now := time.Now()
		if elapsed := now.Sub(lastTime).Seconds(); elapsed >= 1.0 {
			fps = float64(frameCount) / elapsed
			frameCount = 0
			lastTime = now
		}

		img, err := frame.ToImage()
		if err != nil {
			log.Warnw("failed to convert frame", logger.FieldError, err)
			continue
		}

		results, err := d.Run(ctx, img)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Errorw("detection failed", logger.FieldError, err)
			continue
		}

		annotated := overlay.Draw(img, results, label, style)
		mat, err := gocv.ImageToMatRGB(annotated)
		if err != nil {
			log.Warnw("failed to convert annotated frame", logger.FieldError, err)
			continue
		}
		gocv.CvtColor(mat, &mat, gocv.ColorRGBToBGR)
		gocv.PutText(&mat, fmt.Sprintf("FPS: %.1f  objects: %d", fps, len(results)),
			image.Pt(10, 24), gocv.FontHersheySimplex, 0.7, color.RGBA{G: 255, A: 255}, 2)

		window.IMShow(mat)
		key := window.WaitKey(1)
		mat.Close()
		if key == 27 || key == 'q' {
			break
		}
	}

	return nil
}
