package commands

import (
	"fmt"
	"image"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvr-ai/go-yolo/benchmark"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/util"
)

// BenchmarkCmd measures detector latency over a directory of images.
var BenchmarkCmd = &cobra.Command{
	Use:   "benchmark <image-dir>",
	Short: "Measure detection latency and throughput",
	Args:  cobra.ExactArgs(1),
	RunE:  runBenchmark,
}

func init() {
	BenchmarkCmd.Flags().Int("iterations", 100, "Number of measured runs")
	BenchmarkCmd.Flags().Int("warmup", 10, "Number of unmeasured runs")
	BenchmarkCmd.Flags().String("results-dir", "", "Write JSON and CSV results to this directory")
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	iterations, _ := cmd.Flags().GetInt("iterations")
	warmup, _ := cmd.Flags().GetInt("warmup")
	resultsDir, _ := cmd.Flags().GetString("results-dir")

	files, err := util.ListImageFiles(args[0])
	if err != nil {
		return err
	}
	frames := make([]image.Image, 0, len(files))
	for _, f := range files {
		img, err := images.Load(f.Path)
		if err != nil {
			return err
		}
		frames = append(frames, img)
	}

	cfg, d, err := loadDetector(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	scenario := benchmark.NewScenarioBuilder(cfg.ModelPath).
		WithModel(cfg.ModelPath).
		WithProvider(cfg.Runtime.Provider).
		WithIterations(iterations).
		WithWarmupRuns(warmup).
		Build()

	metrics, err := benchmark.Run(cmd.Context(), d, frames, scenario)
	if err != nil {
		return err
	}

	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
	fmt.Printf("frames:      %d (%d images, error rate %.2f%%)\n", metrics.Frames, len(frames), metrics.ErrorRate*100)
	fmt.Printf("throughput:  %.2f FPS\n", metrics.FramesPerSecond)
	fmt.Printf("stages:      preprocess %.2f ms, inference %.2f ms, postprocess %.2f ms\n",
		ms(metrics.Stages.Preprocess), ms(metrics.Stages.Inference), ms(metrics.Stages.Postprocess))
	fmt.Printf("latency:     p50 %.2f ms, p95 %.2f ms, p99 %.2f ms, max %.2f ms\n",
		ms(metrics.Latency.P50), ms(metrics.Latency.P95), ms(metrics.Latency.P99), ms(metrics.Latency.Max))

	if resultsDir != "" {
		path, err := benchmark.SaveResults(resultsDir, []benchmark.PerformanceMetrics{*metrics})
		if err != nil {
			return err
		}
		fmt.Printf("results:     %s\n", path)
	}
	return nil
}
