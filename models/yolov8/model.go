// Package yolov8 - YOLOv8 and YOLO11 detection and pose heads.
package yolov8

import (
	"github.com/nvr-ai/go-yolo/errors"
	"github.com/nvr-ai/go-yolo/models/model"
)

// YOLOv8 is the instance of the YOLOv8 model.
type YOLOv8 struct {
	config model.Config
}

// Config returns the configuration of the model.
//
// Returns:
//   - The configuration of the YOLOv8 model.
func (m *YOLOv8) Config() model.Config {
	return m.config
}

// NewModel creates a new model.
//
// Arguments:
//   - args: The arguments for creating a new model.
//
// Returns:
//   - The model.
//   - ErrInvalidInput if the configuration is not usable.
func NewModel(args model.NewModelArgs) (*YOLOv8, error) {
	cfg := args.Config
	if args.Name != "" {
		cfg.Name = args.Name
	}
	if cfg.Name == "" {
		cfg.Name = model.ModelNameYOLOv8
	}
	if cfg.Family == "" {
		cfg.Family = model.ModelFamilyYOLO
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "new %s model", cfg.Name)
	}

	return &YOLOv8{config: cfg}, nil
}
