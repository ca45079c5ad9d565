// Package model - Definitions shared by every detection model.
package model

import (
	"github.com/nvr-ai/go-yolo/errors"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// Family is the family of models, used to pick a class label set.
type Family string

const (
	// ModelFamilyCOCO is the COCO model family.
	ModelFamilyCOCO Family = "coco"
	// ModelFamilyYOLO is the YOLO model family.
	ModelFamilyYOLO Family = "yolo"
)

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameYOLOv8 is the name of the YOLOv8 model.
	ModelNameYOLOv8 Name = "yolov8"
	// ModelNameYOLO11 is the name of the YOLO11 model. It shares the YOLOv8 head.
	ModelNameYOLO11 Name = "yolo11"
)

// Defaults for a detector configuration.
const (
	DefaultInputSize           = 640
	DefaultConfidenceThreshold = float32(0.55)
	DefaultIoUThreshold        = float32(0.25)
	DefaultMaxCandidates       = 3000
)

// Config is the configuration of a detection model. It is immutable once a
// detector has been initialized with it.
type Config struct {
	Name   Name   `json:"name"   yaml:"name"`
	Family Family `json:"family" yaml:"family"`
	// Path is the location of the model file.
	Path string `json:"path" yaml:"path"`
	// InputWidth and InputHeight are the letterbox canvas size in pixels.
	InputWidth  int `json:"input_width"  yaml:"input_width"`
	InputHeight int `json:"input_height" yaml:"input_height"`
	// NumClasses is the number of class scores per anchor.
	NumClasses int `json:"num_classes" yaml:"num_classes"`
	// NumPoints is the number of keypoints per anchor.
	NumPoints int `json:"num_points" yaml:"num_points"`
	// ConfidenceThreshold is the exclusive lower bound on a detection score.
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold"`
	// IoUThreshold is the overlap above which NMS suppresses a detection.
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"`
	// MaxCandidates caps the detections entering NMS.
	MaxCandidates int `json:"max_candidates" yaml:"max_candidates"`
	// ClassAware restricts suppression to detections of the same class.
	ClassAware bool `json:"class_aware" yaml:"class_aware"`
	// Layout is the arrangement of the raw output buffer.
	Layout postprocess.Layout `json:"layout" yaml:"layout"`
}

// DefaultConfig returns a YOLOv8 configuration with a 640x640 input, the
// default thresholds and per-class NMS.
//
// Arguments:
//   - path: The model file.
//   - numClasses: The number of classes predicted by the model.
//   - numPoints: The number of keypoints predicted by the model.
//
// Returns:
//   - Config: The configuration.
func DefaultConfig(path string, numClasses, numPoints int) Config {
	return Config{
		Name:                ModelNameYOLOv8,
		Family:              ModelFamilyYOLO,
		Path:                path,
		InputWidth:          DefaultInputSize,
		InputHeight:         DefaultInputSize,
		NumClasses:          numClasses,
		NumPoints:           numPoints,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		IoUThreshold:        DefaultIoUThreshold,
		MaxCandidates:       DefaultMaxCandidates,
		ClassAware:          true,
		Layout:              postprocess.DefaultLayout(),
	}
}

// Validate checks the configuration.
//
// Returns:
//   - error: ErrInvalidInput describing the first bad field.
func (c Config) Validate() error {
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return errors.Wrapf(errors.ErrInvalidInput, "input size must be positive, got %dx%d",
			c.InputWidth, c.InputHeight)
	}
	if c.IoUThreshold < 0 || c.IoUThreshold > 1 {
		return errors.Wrapf(errors.ErrInvalidInput, "iou threshold must be in [0, 1], got %v", c.IoUThreshold)
	}
	if c.MaxCandidates <= 0 {
		return errors.Wrapf(errors.ErrInvalidInput, "max candidates must be positive, got %d", c.MaxCandidates)
	}
	return c.Decoder().Validate()
}

// Decoder returns the output decoder for the configuration.
func (c Config) Decoder() postprocess.Decoder {
	return postprocess.Decoder{
		NumClasses:          c.NumClasses,
		NumPoints:           c.NumPoints,
		ConfidenceThreshold: c.ConfidenceThreshold,
		MaxCandidates:       c.MaxCandidates,
		Layout:              c.Layout,
	}
}

// NMS returns the suppression settings for the configuration.
func (c Config) NMS() *postprocess.NMSConfig {
	return &postprocess.NMSConfig{
		IoUThreshold: c.IoUThreshold,
		ClassAware:   c.ClassAware,
	}
}

// Output is the postprocessed output of one forward pass.
type Output struct {
	// Anchors is the number of anchors in the raw output.
	Anchors int
	// Candidates is the number of anchors above the confidence threshold.
	Candidates int
	// Detections are the results that survived the candidate cap and NMS.
	Detections []postprocess.Result
}

// Truncated reports whether the candidate cap dropped detections.
func (o *Output) Truncated(maxCandidates int) bool {
	return maxCandidates > 0 && o.Candidates > maxCandidates
}

// Model turns raw inference output into detections.
type Model interface {
	Config() Config
	PostProcess(output []float32, tf images.Transform) (*Output, error)
}

// NewModelArgs is the arguments for creating a new model.
type NewModelArgs struct {
	Name   Name   `json:"name"   yaml:"name"`
	Config Config `json:"config" yaml:"config"`
}
