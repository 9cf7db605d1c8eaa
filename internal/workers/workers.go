package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Pipeline runs are dominated by external encoder processes, each of which
// is itself multi-threaded, so the pool stays small.
const (
	PipelineMin = 1
	PipelineMax = 4
)

// Count returns GOMAXPROCS scaled by multiplier, at least 1 and at most
// limit (0 means no limit). PIPELINE_WORKERS overrides the heuristic.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv("PIPELINE_WORKERS"); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForPipeline returns the number of concurrent clip pipeline runs.
// A configured value wins over the CPU heuristic; either way the result is
// clamped to [PipelineMin, PipelineMax].
func ForPipeline(configured int) int {
	n := configured
	if n <= 0 {
		n = Count(0.5, PipelineMax)
	}
	if n < PipelineMin {
		n = PipelineMin
	}
	if n > PipelineMax {
		n = PipelineMax
	}
	return n
}
