package runner

import (
	"slices"
	"time"
)

// LatencyReport holds per-command submit latencies in nanoseconds.
type LatencyReport struct {
	Samples int
	P50     int64
	P99     int64
	P999    int64
	Max     int64
}

// Percentile picks sorted[floor(n*p/100)], clamped to the last sample.
func Percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)) * p / 100)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

type latencyRecorder struct {
	samples []int64
}

func (r *latencyRecorder) record(d time.Duration) {
	r.samples = append(r.samples, d.Nanoseconds())
}

func (r *latencyRecorder) report() *LatencyReport {
	if len(r.samples) == 0 {
		return &LatencyReport{}
	}
	sorted := slices.Clone(r.samples)
	slices.Sort(sorted)
	return &LatencyReport{
		Samples: len(sorted),
		P50:     Percentile(sorted, 50),
		P99:     Percentile(sorted, 99),
		P999:    Percentile(sorted, 99.9),
		Max:     sorted[len(sorted)-1],
	}
}
