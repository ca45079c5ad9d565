package detector

import "time"

// Stats captures the cost of one detection call.
type Stats struct {
	Preprocess  time.Duration `json:"preprocess"`
	Inference   time.Duration `json:"inference"`
	Postprocess time.Duration `json:"postprocess"`
	Total       time.Duration `json:"total"`
	// Anchors is the number of anchors in the raw output.
	Anchors int `json:"anchors"`
	// Candidates is the number of anchors above the confidence threshold.
	Candidates int `json:"candidates"`
	// Detections is the number of results after NMS.
	Detections int `json:"detections"`
}

// FramesPerSecond returns the throughput implied by Total.
func (s *Stats) FramesPerSecond() float64 {
	if s == nil || s.Total <= 0 {
		return 0
	}
	return float64(time.Second) / float64(s.Total)
}
