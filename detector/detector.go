// Package detector - End to end keypoint detection: letterbox, inference,
// decoding and non-maximum suppression.
package detector

import (
	"context"
	"image"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nvr-ai/go-yolo/errors"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/nvr-ai/go-yolo/logger"
	"github.com/nvr-ai/go-yolo/models"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// RuntimeOptions selects how the ONNX Runtime session is created.
type RuntimeOptions struct {
	// LibraryPath is the ONNX Runtime shared library. Empty uses the platform default.
	LibraryPath string
	// Provider is the execution provider name: cpu, coreml, cuda or openvino.
	Provider string
	// IntraOpThreads is the number of threads used inside graph nodes.
	IntraOpThreads int
}

// Detector runs the detection pipeline for one model. Calls to Run are
// serialized because the adapter binds fixed input and output buffers.
type Detector struct {
	mu      sync.Mutex
	adapter inference.Adapter
	model   model.Model
	log     *zap.SugaredLogger
}

// New returns an uninitialized detector.
func New() *Detector {
	return &Detector{log: logger.Named("detector")}
}

// Initialize loads an ONNX model with the default configuration: a 640x640
// input, confidence 0.55, IoU 0.25 and at most 3000 candidates.
//
// Arguments:
//   - modelPath: The ONNX model file.
//   - numClasses: The number of classes predicted by the model.
//   - numPoints: The number of keypoints predicted per detection.
//
// Returns:
//   - error: ErrLoadFailure if the model or the runtime cannot be loaded.
func (d *Detector) Initialize(modelPath string, numClasses, numPoints int) error {
	return d.InitializeWithConfig(model.DefaultConfig(modelPath, numClasses, numPoints), RuntimeOptions{})
}

// InitializeWithConfig loads an ONNX model with an explicit configuration.
// The output order is taken from the model's output shape.
//
// Returns:
//   - error: ErrLoadFailure if the model or the runtime cannot be loaded.
func (d *Detector) InitializeWithConfig(cfg model.Config, rt RuntimeOptions) error {
	if err := cfg.Validate(); err != nil {
		return errors.Mark(err, errors.ErrLoadFailure)
	}

	provider, err := providers.NewProviderByName(rt.Provider)
	if err != nil {
		return errors.Mark(err, errors.ErrLoadFailure)
	}

	session, err := inference.NewSession(inference.SessionConfig{
		ModelPath:      cfg.Path,
		LibraryPath:    rt.LibraryPath,
		Provider:       provider,
		IntraOpThreads: rt.IntraOpThreads,
		InputWidth:     cfg.InputWidth,
		InputHeight:    cfg.InputHeight,
		Stride:         cfg.Decoder().Stride(),
	})
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "load %s", cfg.Path), errors.ErrLoadFailure)
	}

	if err := d.InitializeWithAdapter(session, cfg); err != nil {
		_ = session.Close()
		return err
	}
	return nil
}

// InitializeWithAdapter initializes the detector with any inference engine.
// If the adapter reports its output order, that order overrides cfg.Layout.Order.
// A previously initialized adapter is closed if it implements io.Closer.
//
// Returns:
//   - error: ErrLoadFailure if the adapter is nil or the configuration is invalid.
func (d *Detector) InitializeWithAdapter(adapter inference.Adapter, cfg model.Config) error {
	if adapter == nil {
		return errors.Mark(errors.Wrap(errors.ErrInvalidInput, "nil adapter"), errors.ErrLoadFailure)
	}
	if r, ok := adapter.(inference.OrderReporter); ok {
		cfg.Layout.Order = r.OutputOrder()
	}

	m, err := models.NewModel(model.NewModelArgs{Name: cfg.Name, Config: cfg})
	if err != nil {
		return errors.Mark(err, errors.ErrLoadFailure)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.log == nil {
		d.log = logger.Named("detector")
	}
	if err := d.closeLocked(); err != nil {
		d.log.Warnw("closing previous adapter failed", logger.FieldError, err)
	}
	d.adapter = adapter
	d.model = m

	c := m.Config()
	d.log.Infow("detector initialized",
		logger.FieldModel, c.Name,
		logger.FieldPath, c.Path,
		logger.FieldWidth, c.InputWidth,
		logger.FieldHeight, c.InputHeight,
		"classes", c.NumClasses,
		"points", c.NumPoints,
		"order", c.Layout.Order,
	)
	return nil
}

// Config returns the active configuration and whether the detector is initialized.
func (d *Detector) Config() (model.Config, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.model == nil {
		return model.Config{}, false
	}
	return d.model.Config(), true
}

// Run detects objects and their keypoints in img.
//
// Arguments:
//   - ctx: Checked before inference starts.
//   - img: The source image. It is not modified.
//
// Returns:
//   - []postprocess.Result: Detections in source image pixels, highest score first. Empty, not nil,
//     when nothing is found.
//   - error: ErrNotInitialized, ErrInvalidInput, ErrInferenceFailure or ErrMalformedOutput.
func (d *Detector) Run(ctx context.Context, img image.Image) ([]postprocess.Result, error) {
	results, _, err := d.RunWithStats(ctx, img)
	return results, err
}

// RunWithStats is Run that also reports per-stage durations and counts.
func (d *Detector) RunWithStats(ctx context.Context, img image.Image) ([]postprocess.Result, *Stats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.adapter == nil || d.model == nil {
		return nil, nil, errors.WithStack(errors.ErrNotInitialized)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "run cancelled")
	}

	cfg := d.model.Config()
	stats := &Stats{}
	start := time.Now()

	canvas, tf, err := images.Letterbox(img, cfg.InputWidth, cfg.InputHeight)
	if err != nil {
		return nil, nil, err
	}
	if err := d.adapter.PrepareInput(canvas); err != nil {
		return nil, nil, inferenceError(err, "prepare input")
	}
	stats.Preprocess = time.Since(start)

	mark := time.Now()
	output, err := d.adapter.ExtractOutput()
	if err != nil {
		return nil, nil, inferenceError(err, "extract output")
	}
	stats.Inference = time.Since(mark)

	mark = time.Now()
	out, err := d.model.PostProcess(output, tf)
	if err != nil {
		return nil, nil, err
	}
	stats.Postprocess = time.Since(mark)
	stats.Total = time.Since(start)
	stats.Anchors = out.Anchors
	stats.Candidates = out.Candidates
	stats.Detections = len(out.Detections)

	if out.Truncated(cfg.MaxCandidates) {
		d.log.Warnw("candidate cap reached",
			logger.FieldCandidates, out.Candidates,
			"max_candidates", cfg.MaxCandidates,
		)
	}
	d.log.Debugw("detection complete",
		logger.FieldPreprocessMS, stats.Preprocess.Milliseconds(),
		logger.FieldInferenceMS, stats.Inference.Milliseconds(),
		logger.FieldPostprocessMS, stats.Postprocess.Milliseconds(),
		logger.FieldCandidates, out.Candidates,
		logger.FieldCount, stats.Detections,
	)

	return out.Detections, stats, nil
}

// Close releases the adapter if it implements io.Closer. The detector must be
// initialized again before the next Run.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeLocked()
}

func (d *Detector) closeLocked() error {
	adapter := d.adapter
	d.adapter = nil
	d.model = nil
	if c, ok := adapter.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// inferenceError keeps invalid input and inference failures as they are and
// classifies anything else as an inference failure.
func inferenceError(err error, op string) error {
	if errors.Is(err, errors.ErrInvalidInput) || errors.Is(err, errors.ErrInferenceFailure) {
		return errors.Wrap(err, op)
	}
	return errors.Mark(errors.Wrap(err, op), errors.ErrInferenceFailure)
}
