// Package memory sizes the Go heap for containers and holds back new
// pipeline runs under memory pressure.
//
// Call [ConfigureFromEnv] first thing in main. GOMEMLIMIT must be set
// explicitly in a container; the runtime does not read the cgroup memory
// limit the way it sizes GOMAXPROCS.
//
// Environment variables:
//
//   - GOMEMLIMIT: standard Go variable, takes precedence when set.
//   - MEMORY_LIMIT: container limit in bytes, usually from the Kubernetes
//     Downward API (resourceFieldRef limits.memory).
//   - MEMORY_RATIO: heap share of MEMORY_LIMIT, 0.0-1.0, default 0.6.
//
// The ratio is low because yt-dlp and ffmpeg run as child processes outside
// the Go heap.
//
// A [Gate] samples heap usage against the limit. Above PauseMark it closes
// and [Gate.Wait] blocks until usage falls under ResumeMark:
//
//	gate := memory.NewGate(memory.DefaultConfig())
//	gate.Start()
//	defer gate.Stop()
//
//	if err := gate.Wait(ctx); err != nil {
//	    return err
//	}
package memory
