package yolov8

import (
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// PostProcess postprocesses the output of the YOLOv8 model.
//
// The output holds one row per anchor: the box, one score per class and the
// keypoints. Rows above the confidence threshold are mapped back through the
// letterbox transform, capped at MaxCandidates and filtered with greedy NMS.
//
// Arguments:
//   - output: The raw output of the YOLOv8 model.
//   - tf: The letterbox transform applied to the input image.
//
// Returns:
//   - The detections with counts for each stage.
//   - ErrMalformedOutput if the output does not match the layout.
func (m *YOLOv8) PostProcess(output []float32, tf images.Transform) (*model.Output, error) {
	decoder := m.config.Decoder()

	candidates, err := decoder.Candidates(output, tf)
	if err != nil {
		return nil, err
	}

	capped := postprocess.TopK(candidates, m.config.MaxCandidates)

	return &model.Output{
		Anchors:    len(output) / decoder.Stride(),
		Candidates: len(candidates),
		Detections: postprocess.ApplyNMS(capped, m.config.NMS()),
	}, nil
}
