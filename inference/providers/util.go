package providers

import (
	"os"
	"runtime"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-yolo/errors"
)

// LibraryPathEnv overrides the default shared library location.
const LibraryPathEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// GetSharedLibPath returns the path to the ONNX Runtime shared library for the
// current platform. The LibraryPathEnv environment variable takes precedence.
//
// Returns:
//   - string: The path to the shared library.
func GetSharedLibPath() string {
	if p := os.Getenv(LibraryPathEnv); p != "" {
		return p
	}
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		return "./third_party/libonnxruntime.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
}

// NewSessionOptions creates session options with the provider appended.
//
// Arguments:
//   - provider: The execution provider. Nil means CPU.
//   - intraOpThreads: Threads used inside a graph node. Zero lets the runtime decide.
//
// Returns:
//   - *ort.SessionOptions: The options. The caller must destroy them.
//   - error: An error if the options cannot be created or the provider cannot be enabled.
func NewSessionOptions(provider ExecutionProvider, intraOpThreads int) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "error creating ORT session options")
	}

	if err := options.SetIntraOpNumThreads(intraOpThreads); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "error setting intra-op threads")
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "error setting graph optimization level")
	}

	if provider != nil {
		if err := provider.Apply(options); err != nil {
			options.Destroy()
			return nil, err
		}
	}

	return options, nil
}
