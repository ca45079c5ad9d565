package benchmark

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/nvr-ai/go-yolo/detector"
	"github.com/nvr-ai/go-yolo/errors"
	"github.com/nvr-ai/go-yolo/logger"
	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// Runner runs detection on one frame and reports per-stage timings.
// *detector.Detector implements it.
type Runner interface {
	RunWithStats(ctx context.Context, img image.Image) ([]postprocess.Result, *detector.Stats, error)
}

// Run executes a scenario over frames, cycling through them.
//
// Arguments:
//   - ctx: Cancels the run between frames.
//   - runner: The detector under test.
//   - frames: The input images. At least one is required.
//   - scenario: Iteration and warmup counts.
//
// Returns:
//   - *PerformanceMetrics: The aggregated metrics.
//   - error: ErrInvalidInput for an empty frame set or non-positive iterations,
//     or the context error.
func Run(ctx context.Context, runner Runner, frames []image.Image, scenario Scenario) (*PerformanceMetrics, error) {
	if len(frames) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "no frames to benchmark")
	}
	if scenario.Iterations <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "iterations must be positive, got %d", scenario.Iterations)
	}

	log := logger.Named("benchmark")

	for i := 0; i < scenario.WarmupRuns; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// Warmup errors surface again in the measured runs.
		_, _, _ = runner.RunWithStats(ctx, frames[i%len(frames)])
	}

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	metrics := &PerformanceMetrics{
		Scenario:  scenario,
		Timestamp: time.Now(),
		NumCPU:    runtime.NumCPU(),
	}

	var (
		totals    [3]time.Duration
		latencies = make([]float64, 0, scenario.Iterations)
		failures  int
	)

	start := time.Now()
	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		results, stats, err := runner.RunWithStats(ctx, frames[i%len(frames)])
		if err != nil {
			failures++
			log.Debugw("benchmark frame failed", logger.FieldError, err)
			continue
		}

		metrics.Frames++
		metrics.DetectionCount += len(results)
		if stats != nil {
			totals[0] += stats.Preprocess
			totals[1] += stats.Inference
			totals[2] += stats.Postprocess
			metrics.Candidates += stats.Candidates
			latencies = append(latencies, float64(stats.Total))
		}
	}
	metrics.TotalDuration = time.Since(start)

	var endMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&endMem)

	metrics.MemoryStats = MemoryMetrics{
		AllocBytes:      endMem.Alloc,
		TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
		SysBytes:        endMem.Sys,
		NumGC:           endMem.NumGC - startMem.NumGC,
		HeapAllocBytes:  endMem.HeapAlloc,
	}

	metrics.ErrorRate = float64(failures) / float64(scenario.Iterations)
	if secs := metrics.TotalDuration.Seconds(); secs > 0 {
		metrics.FramesPerSecond = float64(metrics.Frames) / secs
	}
	if n := len(latencies); n > 0 {
		metrics.Stages = StageMetrics{
			Preprocess:  totals[0] / time.Duration(n),
			Inference:   totals[1] / time.Duration(n),
			Postprocess: totals[2] / time.Duration(n),
		}
		metrics.Latency = summarize(latencies)
	}

	log.Infow("benchmark scenario completed",
		"scenario", scenario.Name,
		"fps", metrics.FramesPerSecond,
		"p95_ms", float64(metrics.Latency.P95.Microseconds())/1000,
		"error_rate", metrics.ErrorRate,
	)

	return metrics, nil
}

// summarize computes latency statistics from nanosecond samples.
func summarize(samples []float64) LatencyMetrics {
	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	q := func(p float64) time.Duration {
		return time.Duration(stat.Quantile(p, stat.Empirical, sorted, nil))
	}
	return LatencyMetrics{
		Min:  time.Duration(sorted[0]),
		Mean: time.Duration(stat.Mean(sorted, nil)),
		P50:  q(0.50),
		P95:  q(0.95),
		P99:  q(0.99),
		Max:  time.Duration(sorted[len(sorted)-1]),
	}
}

// SaveResults writes the results as a JSON document and a CSV summary into
// dir, creating it when needed.
//
// Returns:
//   - string: The JSON file path.
//   - error: Any filesystem or encoding error.
func SaveResults(dir string, results []PerformanceMetrics) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create output directory")
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(dir, fmt.Sprintf("benchmark_results_%s.json", timestamp))

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal results")
	}
	if err := os.WriteFile(resultsFile, data, 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write results file")
	}

	summaryFile := filepath.Join(dir, fmt.Sprintf("benchmark_summary_%s.csv", timestamp))
	if err := saveSummaryCSV(summaryFile, results); err != nil {
		return "", errors.Wrap(err, "failed to save summary CSV")
	}

	return resultsFile, nil
}

func saveSummaryCSV(filename string, results []PerformanceMetrics) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	ms := func(d time.Duration) string {
		return strconv.FormatFloat(float64(d.Microseconds())/1000, 'f', 2, 64)
	}

	w := csv.NewWriter(file)
	_ = w.Write([]string{
		"Scenario", "Provider", "FPS", "Preprocess_ms", "Inference_ms", "Postprocess_ms",
		"P50_ms", "P95_ms", "P99_ms", "Detections", "Error_Rate",
	})
	for _, r := range results {
		_ = w.Write([]string{
			r.Scenario.Name,
			r.Scenario.Provider,
			strconv.FormatFloat(r.FramesPerSecond, 'f', 2, 64),
			ms(r.Stages.Preprocess),
			ms(r.Stages.Inference),
			ms(r.Stages.Postprocess),
			ms(r.Latency.P50),
			ms(r.Latency.P95),
			ms(r.Latency.P99),
			strconv.Itoa(r.DetectionCount),
			strconv.FormatFloat(r.ErrorRate, 'f', 4, 64),
		})
	}
	w.Flush()
	return w.Error()
}
