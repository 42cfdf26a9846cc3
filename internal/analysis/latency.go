package analysis

import (
	"math"
	"slices"
	"sort"
	"time"

	"github.com/unkn0wn-root/flightdesk/internal/history"
)

// DefaultPercentiles are reported when the caller asks for none.
var DefaultPercentiles = []int{50, 95}

type LatencyStats struct {
	Count       int
	Min         time.Duration
	Max         time.Duration
	Mean        time.Duration
	Median      time.Duration
	StdDev      time.Duration
	Percentiles map[int]time.Duration
}

// OperationSummary aggregates the recorded calls of one operation. Failures
// and timeouts are counted but only completed calls feed the latency figures.
type OperationSummary struct {
	Operation string
	Calls     int
	Failures  int
	Timeouts  int
	Latency   LatencyStats
}

func ComputeLatencyStats(durations []time.Duration, percentiles []int) LatencyStats {
	var stats LatencyStats
	count := len(durations)
	if count == 0 {
		return stats
	}

	sorted := slices.Clone(durations)
	slices.Sort(sorted)

	stats.Count = count
	stats.Min = sorted[0]
	stats.Max = sorted[count-1]

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	stats.Mean = sum / time.Duration(count)

	if count%2 == 0 {
		stats.Median = (sorted[count/2-1] + sorted[count/2]) / 2
	} else {
		stats.Median = sorted[count/2]
	}
	stats.StdDev = stdDev(sorted, stats.Mean)

	if len(percentiles) == 0 {
		percentiles = DefaultPercentiles
	}
	stats.Percentiles = make(map[int]time.Duration, len(percentiles))
	for _, p := range percentiles {
		stats.Percentiles[p] = nearestRank(sorted, p)
	}
	return stats
}

// Summarize groups history entries by operation, sorted by operation name.
func Summarize(entries []history.Entry, percentiles []int) []OperationSummary {
	type bucket struct {
		sum       OperationSummary
		durations []time.Duration
	}
	groups := make(map[string]*bucket)
	for _, e := range entries {
		b, ok := groups[e.Operation]
		if !ok {
			b = &bucket{sum: OperationSummary{Operation: e.Operation}}
			groups[e.Operation] = b
		}
		b.sum.Calls++
		switch e.Outcome {
		case history.OutcomeTimeout:
			b.sum.Timeouts++
		case history.OutcomeError:
			b.sum.Failures++
		default:
			b.durations = append(b.durations, e.Duration)
		}
	}

	out := make([]OperationSummary, 0, len(groups))
	for _, b := range groups {
		b.sum.Latency = ComputeLatencyStats(b.durations, percentiles)
		out = append(out, b.sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out
}

func stdDev(values []time.Duration, mean time.Duration) time.Duration {
	meanMS := millis(mean)
	var sumSquares float64
	for _, d := range values {
		delta := millis(d) - meanMS
		sumSquares += delta * delta
	}
	return time.Duration(math.Sqrt(sumSquares/float64(len(values))) * float64(time.Millisecond))
}

// nearestRank expects sorted input.
func nearestRank(sorted []time.Duration, p int) time.Duration {
	n := len(sorted)
	switch {
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[n-1]
	}
	idx := int(math.Ceil(float64(p)/100*float64(n))) - 1
	return sorted[max(0, min(idx, n-1))]
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
