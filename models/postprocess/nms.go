package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-yolo/images"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	IoUThreshold float32 // Overlap threshold for suppression.
	ClassAware   bool    // If true, suppress only within same class.
}

// SortByScore returns a copy of detections ordered by descending score. Ties
// keep their input order.
func SortByScore(detections []Result) []Result {
	sorted := make([]Result, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	return sorted
}

// TopK returns the k highest scoring detections in descending score order.
// Ties keep their input order. A k of zero or less keeps every detection. The
// input slice is not modified.
func TopK(detections []Result, k int) []Result {
	sorted := SortByScore(detections)
	if k > 0 && len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}

// ApplyNMS performs greedy Non-Maximum Suppression.
//
// The detections are stable sorted by descending score. Walking that order,
// every detection not yet suppressed is kept and suppresses each later detection
// whose IoU with it exceeds config.IoUThreshold. With ClassAware set only
// detections of the same class suppress each other.
//
// Arguments:
//   - detections: Candidate detections in any order. The slice is not reordered.
//   - config: NMS configuration.
//
// Returns:
//   - The kept detections in descending score order. Never nil.
func ApplyNMS(detections []Result, config *NMSConfig) []Result {
	sorted := SortByScore(detections)
	n := len(sorted)

	filtered := make([]Result, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := sorted[i]
		filtered = append(filtered, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if config.ClassAware && sorted[j].Class != anchor.Class {
				continue
			}
			if images.CalculateIoU(anchor.Box, sorted[j].Box) > config.IoUThreshold {
				used[j] = true
			}
		}
	}

	return filtered
}
