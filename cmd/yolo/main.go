package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvr-ai/go-yolo/cmd/yolo/commands"
	"github.com/nvr-ai/go-yolo/logger"
)

var rootCmd = &cobra.Command{
	Use:   "yolo",
	Short: "Run YOLO keypoint detection with ONNX Runtime",
	Long: `Run YOLO keypoint detection with ONNX Runtime.

Images are letterboxed to the model input, run through the model, decoded and
filtered with non-maximum suppression. Settings come from a TOML file.

Examples:
  yolo detect                          # use config.toml in the working directory
  yolo detect -c pose.toml --show      # display the annotated image
  yolo detect --dir frames/ -o out/    # annotate a directory of images
  yolo webcam --device 0               # live detection from a camera
  yolo benchmark frames/ --iterations 200`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonLog, _ := cmd.Flags().GetBool("json-log")
		level, _ := cmd.Flags().GetString("log-level")
		if err := logger.Initialize(jsonLog, level); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "config.toml", "Path to the TOML config file")
	rootCmd.PersistentFlags().Bool("json-log", false, "Write logs as JSON lines")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(commands.DetectCmd)
	rootCmd.AddCommand(commands.WebcamCmd)
	rootCmd.AddCommand(commands.BenchmarkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
