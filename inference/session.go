package inference

import (
	"image"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-yolo/errors"
	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/nvr-ai/go-yolo/logger"
	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// environmentMu guards the process-wide ONNX Runtime environment.
var environmentMu sync.Mutex

// SessionConfig describes an ONNX Runtime session for a YOLO model.
type SessionConfig struct {
	// ModelPath is the path to the ONNX model file.
	ModelPath string
	// LibraryPath is the ONNX Runtime shared library. Empty uses providers.GetSharedLibPath.
	LibraryPath string
	// Provider is the execution provider. Nil uses the CPU.
	Provider providers.ExecutionProvider
	// IntraOpThreads is the number of threads used inside graph nodes. Zero lets the runtime decide.
	IntraOpThreads int
	// InputWidth and InputHeight are the letterbox canvas size.
	InputWidth, InputHeight int
	// Stride is the number of values per anchor. It resolves dynamic output
	// dimensions and the output order; zero means unknown.
	Stride int
}

// Session is an Adapter backed by ONNX Runtime. It binds preallocated input
// and output tensors, so it must not be used by concurrent callers.
type Session struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	width   int
	height  int
	shape   ort.Shape
	order   postprocess.Order
}

// NewSession creates a new ONNX Runtime session.
//
// Order of operations:
//  1. Library check: the native runtime must exist on disk.
//  2. Environment setup: done once per process.
//  3. Model inspection: input/output names and the output shape are read from the model.
//  4. Tensor allocation: fixed [1, 3, H, W] input and output buffers.
//  5. Session options: threading, graph optimization and the execution provider.
//  6. Session creation: loads the model and binds the tensors.
//
// Arguments:
//   - cfg: The session configuration.
//
// Returns:
//   - *Session: The session. The caller must Close it.
//   - error: ErrInferenceFailure wrapping the cause.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.InputWidth <= 0 || cfg.InputHeight <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "input size must be positive, got %dx%d",
			cfg.InputWidth, cfg.InputHeight)
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(errors.ErrInferenceFailure, "model %s: %v", cfg.ModelPath, err)
	}

	if err := initializeEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInferenceFailure, "error reading model info: %v", err)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, errors.Wrapf(errors.ErrInferenceFailure,
			"model must have one input and at least one output, got %d and %d", len(inputs), len(outputs))
	}
	if err := checkInputShape(inputs[0].Dimensions, cfg.InputWidth, cfg.InputHeight); err != nil {
		return nil, err
	}

	shape, order, err := resolveOutputShape(outputs[0].Dimensions, cfg.Stride,
		Anchors(cfg.InputWidth, cfg.InputHeight))
	if err != nil {
		return nil, err
	}

	input, err := ort.NewEmptyTensor[float32](
		ort.NewShape(1, 3, int64(cfg.InputHeight), int64(cfg.InputWidth)))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInferenceFailure, "error creating input tensor: %v", err)
	}
	output, err := ort.NewEmptyTensor[float32](shape)
	if err != nil {
		input.Destroy()
		return nil, errors.Wrapf(errors.ErrInferenceFailure, "error creating output tensor: %v", err)
	}

	options, err := providers.NewSessionOptions(cfg.Provider, cfg.IntraOpThreads)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrapf(errors.ErrInferenceFailure, "%v", err)
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrapf(errors.ErrInferenceFailure, "error creating ORT session: %v", err)
	}

	logger.Named("inference").Infow("onnx session created",
		logger.FieldPath, cfg.ModelPath,
		logger.FieldProvider, backendName(cfg.Provider),
		"input", inputs[0].Name,
		"output", outputs[0].Name,
		"output_shape", shape.String(),
		"order", order,
	)

	return &Session{
		session: session,
		input:   input,
		output:  output,
		width:   cfg.InputWidth,
		height:  cfg.InputHeight,
		shape:   shape,
		order:   order,
	}, nil
}

// PrepareInput writes the canvas into the input tensor.
func (s *Session) PrepareInput(canvas image.Image) error {
	if s.session == nil {
		return errors.Wrap(errors.ErrInferenceFailure, "session is closed")
	}
	return FillCHW(canvas, s.input.GetData(), s.width, s.height)
}

// ExtractOutput runs the model and returns a copy of the output tensor.
func (s *Session) ExtractOutput() ([]float32, error) {
	if s.session == nil {
		return nil, errors.Wrap(errors.ErrInferenceFailure, "session is closed")
	}
	if err := s.session.Run(); err != nil {
		return nil, errors.Wrapf(errors.ErrInferenceFailure, "error running ORT session: %v", err)
	}
	data := s.output.GetData()
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

// OutputOrder returns the arrangement of the output buffer.
func (s *Session) OutputOrder() postprocess.Order {
	return s.order
}

// OutputShape returns the resolved output tensor shape.
func (s *Session) OutputShape() []int64 {
	return append([]int64(nil), s.shape...)
}

// Close releases the native session and tensors.
//
// Returns:
//   - error: An error if the session cannot be destroyed.
func (s *Session) Close() error {
	if s.input != nil {
		s.input.Destroy()
		s.input = nil
	}
	if s.output != nil {
		s.output.Destroy()
		s.output = nil
	}
	if s.session != nil {
		err := s.session.Destroy()
		s.session = nil
		if err != nil {
			return errors.Wrap(err, "error destroying ORT session")
		}
	}
	return nil
}

func initializeEnvironment(libPath string) error {
	environmentMu.Lock()
	defer environmentMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath == "" {
		libPath = providers.GetSharedLibPath()
	}
	if _, err := os.Stat(libPath); err != nil {
		return errors.Wrapf(errors.ErrInferenceFailure, "ONNX Runtime library not found at %s: %v", libPath, err)
	}

	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrapf(errors.ErrInferenceFailure, "error initializing ORT environment: %v", err)
	}
	return nil
}

// Anchors returns the number of anchors a YOLOv8 style head predicts for an
// input size, summed over the stride 8, 16 and 32 feature maps.
func Anchors(width, height int) int {
	n := 0
	for _, s := range []int{8, 16, 32} {
		n += (width / s) * (height / s)
	}
	return n
}

func checkInputShape(dims ort.Shape, width, height int) error {
	if len(dims) != 4 {
		return errors.Wrapf(errors.ErrInferenceFailure, "model input must be [N, 3, H, W], got %v", dims)
	}
	if (dims[2] > 0 && dims[2] != int64(height)) || (dims[3] > 0 && dims[3] != int64(width)) {
		return errors.Wrapf(errors.ErrInferenceFailure,
			"model input is %dx%d, configured %dx%d", dims[3], dims[2], width, height)
	}
	return nil
}

// resolveOutputShape fills dynamic dimensions of a [1, A, B] output and
// reports whether it is channel-major ([1, stride, anchors]) or anchor-major
// ([1, anchors, stride]).
func resolveOutputShape(dims ort.Shape, stride, anchors int) (ort.Shape, postprocess.Order, error) {
	if len(dims) != 3 {
		return nil, "", errors.Wrapf(errors.ErrInferenceFailure, "model output must have 3 dimensions, got %v", dims)
	}
	shape := ort.NewShape(1, dims[1], dims[2])
	s, a := int64(stride), int64(anchors)

	switch {
	case stride > 0 && shape[1] == s:
		if shape[2] <= 0 {
			shape[2] = a
		}
	case stride > 0 && shape[2] == s:
		if shape[1] <= 0 {
			shape[1] = a
		}
		return shape, postprocess.AnchorMajor, nil
	case stride > 0 && shape[1] <= 0 && shape[2] <= 0:
		shape[1], shape[2] = s, a
	case stride > 0:
		return nil, "", errors.Wrapf(errors.ErrMalformedOutput,
			"model output %v does not match %d values per anchor", dims, stride)
	}

	if shape[1] <= 0 || shape[2] <= 0 {
		return nil, "", errors.Wrapf(errors.ErrInferenceFailure, "cannot resolve dynamic output shape %v", dims)
	}
	if stride == 0 && shape[1] > shape[2] {
		return shape, postprocess.AnchorMajor, nil
	}
	return shape, postprocess.ChannelMajor, nil
}

func backendName(p providers.ExecutionProvider) providers.ProviderBackend {
	if p == nil {
		return providers.CPUProviderBackend
	}
	return p.Backend()
}
