// Package benchmark - Measures detector latency and throughput over a set of images.
package benchmark

import "time"

// PerformanceMetrics captures the outcome of one scenario.
type PerformanceMetrics struct {
	Scenario        Scenario       `json:"scenario"`
	Timestamp       time.Time      `json:"timestamp"`
	TotalDuration   time.Duration  `json:"total_duration"`
	Stages          StageMetrics   `json:"stages"`
	Latency         LatencyMetrics `json:"latency"`
	FramesPerSecond float64        `json:"frames_per_second"`
	MemoryStats     MemoryMetrics  `json:"memory_stats"`
	NumCPU          int            `json:"num_cpu"`
	Frames          int            `json:"frames"`
	Candidates      int            `json:"candidates"`
	DetectionCount  int            `json:"detection_count"`
	ErrorRate       float64        `json:"error_rate"`
}

// StageMetrics holds the mean duration of each pipeline stage.
type StageMetrics struct {
	Preprocess  time.Duration `json:"preprocess"`
	Inference   time.Duration `json:"inference"`
	Postprocess time.Duration `json:"postprocess"`
}

// LatencyMetrics summarizes end-to-end latency of successful frames.
type LatencyMetrics struct {
	Min  time.Duration `json:"min"`
	Mean time.Duration `json:"mean"`
	P50  time.Duration `json:"p50"`
	P95  time.Duration `json:"p95"`
	P99  time.Duration `json:"p99"`
	Max  time.Duration `json:"max"`
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
}
