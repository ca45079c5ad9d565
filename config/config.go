// Package config - TOML configuration for the detection CLI.
//
// A minimal config.toml names the image, the model and its head size:
//
//	image_path = "bus.jpg"
//	model_path = "yolov8n-pose.onnx"
//	class_num = 1
//	point_num = 17
//
// Optional [detector] and [runtime] tables override thresholds, layout and
// the execution provider. Every key can also be set from the environment with
// the YOLO_ prefix, e.g. YOLO_DETECTOR_IOU_THRESHOLD.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/nvr-ai/go-yolo/detector"
	"github.com/nvr-ai/go-yolo/errors"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "YOLO"

// Config is the top level configuration.
type Config struct {
	ImagePath string         `mapstructure:"image_path"`
	ModelPath string         `mapstructure:"model_path"`
	ClassNum  int            `mapstructure:"class_num"`
	PointNum  int            `mapstructure:"point_num"`
	Detector  DetectorConfig `mapstructure:"detector"`
	Runtime   RuntimeConfig  `mapstructure:"runtime"`
}

// DetectorConfig holds the [detector] table.
type DetectorConfig struct {
	Model               string  `mapstructure:"model"`
	Family              string  `mapstructure:"family"`
	InputWidth          int     `mapstructure:"input_width"`
	InputHeight         int     `mapstructure:"input_height"`
	ConfidenceThreshold float32 `mapstructure:"confidence_threshold"`
	IoUThreshold        float32 `mapstructure:"iou_threshold"`
	MaxCandidates       int     `mapstructure:"max_candidates"`
	ClassAware          bool    `mapstructure:"class_aware"`
	BoxEncoding         string  `mapstructure:"box_encoding"`
	Order               string  `mapstructure:"order"`
	KeyPointDims        int     `mapstructure:"keypoint_dims"`
}

// RuntimeConfig holds the [runtime] table.
type RuntimeConfig struct {
	LibraryPath    string `mapstructure:"library_path"`
	Provider       string `mapstructure:"provider"`
	IntraOpThreads int    `mapstructure:"intra_op_threads"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("image_path", "")
	v.SetDefault("model_path", "")
	v.SetDefault("class_num", 1)
	v.SetDefault("point_num", 0)

	v.SetDefault("detector.model", string(model.ModelNameYOLOv8))
	v.SetDefault("detector.family", string(model.ModelFamilyYOLO))
	v.SetDefault("detector.input_width", model.DefaultInputSize)
	v.SetDefault("detector.input_height", model.DefaultInputSize)
	v.SetDefault("detector.confidence_threshold", model.DefaultConfidenceThreshold)
	v.SetDefault("detector.iou_threshold", model.DefaultIoUThreshold)
	v.SetDefault("detector.max_candidates", model.DefaultMaxCandidates)
	v.SetDefault("detector.class_aware", true)
	v.SetDefault("detector.box_encoding", string(postprocess.BoxCenterSize))
	v.SetDefault("detector.order", string(postprocess.AnchorMajor))
	v.SetDefault("detector.keypoint_dims", 2)

	v.SetDefault("runtime.library_path", "")
	v.SetDefault("runtime.provider", "cpu")
	v.SetDefault("runtime.intra_op_threads", 0)
}

// New returns a viper instance with defaults and environment overrides bound.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads a TOML configuration file.
//
// Arguments:
//   - path: The config file.
//
// Returns:
//   - *Config: The validated configuration.
//   - error: ErrInvalidInput wrapping the read, decode or validation failure.
func Load(path string) (*Config, error) {
	v := New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "failed to read config file %s: %v", path, err)
	}
	return LoadWithViper(v)
}

// LoadWithViper decodes and validates the configuration held by v.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "failed to unmarshal config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.ModelPath == "" {
		return errors.Wrap(errors.ErrInvalidInput, "model_path is required")
	}
	if err := c.DetectorConfig().Validate(); err != nil {
		return errors.Wrap(err, "detector")
	}
	return nil
}

// DetectorConfig converts the configuration to a model configuration.
func (c *Config) DetectorConfig() model.Config {
	d := c.Detector
	return model.Config{
		Name:                model.Name(d.Model),
		Family:              model.Family(d.Family),
		Path:                c.ModelPath,
		InputWidth:          d.InputWidth,
		InputHeight:         d.InputHeight,
		NumClasses:          c.ClassNum,
		NumPoints:           c.PointNum,
		ConfidenceThreshold: d.ConfidenceThreshold,
		IoUThreshold:        d.IoUThreshold,
		MaxCandidates:       d.MaxCandidates,
		ClassAware:          d.ClassAware,
		Layout: postprocess.Layout{
			BoxEncoding:  postprocess.BoxEncoding(d.BoxEncoding),
			Order:        postprocess.Order(d.Order),
			KeyPointDims: d.KeyPointDims,
		},
	}
}

// RuntimeOptions converts the [runtime] table to detector runtime options.
func (c *Config) RuntimeOptions() detector.RuntimeOptions {
	return detector.RuntimeOptions{
		LibraryPath:    c.Runtime.LibraryPath,
		Provider:       c.Runtime.Provider,
		IntraOpThreads: c.Runtime.IntraOpThreads,
	}
}
