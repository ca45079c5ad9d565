// Package commands - Subcommands of the yolo CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/nvr-ai/go-yolo/config"
	"github.com/nvr-ai/go-yolo/detector"
	"github.com/nvr-ai/go-yolo/models"
	"github.com/nvr-ai/go-yolo/models/model"
)

// loadDetector reads the config named by the --config flag and initializes a
// detector from it.
func loadDetector(cmd *cobra.Command) (*config.Config, *detector.Detector, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	d := detector.New()
	if err := d.InitializeWithConfig(cfg.DetectorConfig(), cfg.RuntimeOptions()); err != nil {
		return nil, nil, err
	}
	return cfg, d, nil
}

// labeler returns the caption function for a model configuration.
func labeler(cfg model.Config) func(int) string {
	return func(class int) string {
		return models.Label(cfg, class)
	}
}
