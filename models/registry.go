package models

import (
	"github.com/nvr-ai/go-yolo/errors"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/yolov8"
)

// NewModel creates a new detection model instance based on the specified model name.
//
// YOLOv8 and YOLO11 share the same head, so both resolve to the yolov8 package.
// An empty name selects YOLOv8.
//
// Arguments:
//   - args: The model name and configuration.
//
// Returns:
//   - model.Model: A configured model instance implementing the Model interface.
//   - error: ErrInvalidInput if the name is unsupported or the configuration is invalid.
//
// @example
//
//	m, err := models.NewModel(model.NewModelArgs{
//	    Name:   model.ModelNameYOLO11,
//	    Config: model.DefaultConfig("yolo11n-pose.onnx", 1, 17),
//	})
func NewModel(args model.NewModelArgs) (model.Model, error) {
	switch args.Name {
	case "", model.ModelNameYOLOv8, model.ModelNameYOLO11:
		m, err := yolov8.NewModel(args)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unsupported model name: %s", args.Name)
	}
}
