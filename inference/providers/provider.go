// Package providers - ONNX Runtime execution providers.
package providers

import (
	"strings"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-yolo/errors"
)

// ProviderBackend names an ONNX Runtime execution provider.
type ProviderBackend string

// ProviderOptions is a marker interface for provider-specific config.
type ProviderOptions interface {
	isProviderOptions()
}

// ExecutionProvider represents the contract that all execution providers must implement.
type ExecutionProvider interface {
	// Backend returns the name of the provider.
	Backend() ProviderBackend
	// Options returns the provider-specific options.
	Options() ProviderOptions
	// Apply appends the provider to the session options.
	Apply(options *ort.SessionOptions) error
}

// NewProvider creates a new provider based on the type of its options.
//
// Arguments:
//   - options: The options for the provider.
//
// Returns:
//   - ExecutionProvider: The new provider.
//   - error: ErrInvalidInput if the options type is unsupported.
func NewProvider(options ProviderOptions) (ExecutionProvider, error) {
	switch opts := options.(type) {
	case CPUOptions:
		return NewCPUProvider(opts), nil
	case CoreMLOptions:
		return NewCoreMLProvider(opts), nil
	case OpenVINOOptions:
		return NewOpenVINOProvider(opts), nil
	case CUDAOptions:
		return NewCUDAProvider(opts), nil
	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unsupported provider options type: %T", opts)
	}
}

// NewProviderByName creates a provider with default options from its backend
// name. An empty name selects the CPU provider.
//
// Arguments:
//   - name: One of cpu, coreml, cuda, openvino. Case is ignored.
//
// Returns:
//   - ExecutionProvider: The new provider.
//   - error: ErrInvalidInput if the name is unknown.
func NewProviderByName(name string) (ExecutionProvider, error) {
	switch ProviderBackend(strings.ToLower(strings.TrimSpace(name))) {
	case "", CPUProviderBackend:
		return NewProvider(CPUOptions{})
	case CoreMLProviderBackend:
		return NewProvider(CoreMLOptions{})
	case CUDAProviderBackend:
		return NewProvider(CUDAOptions{})
	case OpenVINOProviderBackend:
		return NewProvider(DefaultOpenVINOOptions())
	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unsupported execution provider: %q", name)
	}
}
