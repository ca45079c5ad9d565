// Package postprocess - Postprocessing utilities for models.
package postprocess

import "github.com/nvr-ai/go-yolo/images"

// Result represents a single detection result.
type Result struct {
	// The bounding box of the result, in source image pixels.
	Box images.Rect
	// The confidence score of the result.
	Score float32
	// The predicted class index of the result.
	Class int
	// The keypoints of the result, in source image pixels. Nil when the model
	// predicts no keypoints.
	KeyPoints []images.Point
}
