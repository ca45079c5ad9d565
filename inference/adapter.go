// Package inference - Inference engine adapters.
package inference

import (
	"image"

	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// Adapter is the boundary between the detection pipeline and an inference
// engine. An Adapter is not required to be safe for concurrent use.
type Adapter interface {
	// PrepareInput loads a letterboxed canvas into the engine's input.
	PrepareInput(canvas image.Image) error
	// ExtractOutput runs the forward pass and returns the flat output buffer.
	// The returned slice is owned by the caller.
	ExtractOutput() ([]float32, error)
}

// OrderReporter is implemented by adapters that know the arrangement of their
// output buffer.
type OrderReporter interface {
	OutputOrder() postprocess.Order
}
