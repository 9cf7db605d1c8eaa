package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"reel-clipper/internal/logging"
)

// DefaultMemoryRatio is the share of container memory given to the Go heap.
// The rest is left for the downloader and encoder child processes.
const DefaultMemoryRatio = 0.6

// ConfigResult reports what ConfigureFromEnv did.
type ConfigResult struct {
	Configured bool
	// Source is "GOMEMLIMIT", "MEMORY_LIMIT" or "none".
	Source         string
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureFromEnv sets GOMEMLIMIT from the container limit. Call it early
// in main.
//
// Environment variables:
//   - GOMEMLIMIT: used as is when set
//   - MEMORY_LIMIT: container memory limit in bytes
//   - MEMORY_RATIO: heap share of MEMORY_LIMIT (default 0.6)
func ConfigureFromEnv() ConfigResult {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		result := ConfigResult{Source: "GOMEMLIMIT"}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		return result
	}

	memLimitStr := os.Getenv("MEMORY_LIMIT")
	if memLimitStr == "" {
		logging.Debug("MEMORY_LIMIT not set, GOMEMLIMIT will not be configured automatically")
		return ConfigResult{Source: "none"}
	}

	memLimit, err := strconv.ParseInt(memLimitStr, 10, 64)
	if err != nil || memLimit <= 0 {
		logging.Warn("Invalid MEMORY_LIMIT %q, GOMEMLIMIT not configured", memLimitStr)
		return ConfigResult{Source: "none"}
	}

	ratio := DefaultMemoryRatio
	if ratioStr := os.Getenv("MEMORY_RATIO"); ratioStr != "" {
		parsed, err := strconv.ParseFloat(ratioStr, 64)
		switch {
		case err != nil:
			logging.Warn("Failed to parse MEMORY_RATIO %q: %v, using default %.2f", ratioStr, err, DefaultMemoryRatio)
		case parsed <= 0 || parsed > 1:
			logging.Warn("MEMORY_RATIO %q out of range (0.0-1.0), using default %.2f", ratioStr, DefaultMemoryRatio)
		default:
			ratio = parsed
		}
	}

	goMemLimit := int64(float64(memLimit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s container limit)",
		formatBytes(goMemLimit), ratio*100, formatBytes(memLimit))

	return ConfigResult{
		Configured:     true,
		Source:         "MEMORY_LIMIT",
		ContainerLimit: memLimit,
		GoMemLimit:     goMemLimit,
		Ratio:          ratio,
	}
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
