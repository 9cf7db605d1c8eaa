/*
Package workers sizes worker pools in containerized environments.

runtime.NumCPU reports host CPUs even when a cgroup limit applies, while
GOMAXPROCS follows the container limit (Go 1.19+), so sizing starts from
GOMAXPROCS.

	n := workers.Count(0.5, 4)    // half a worker per CPU, max 4
	n := workers.ForPipeline(0)   // clip pipeline runs, 1..4

Setting PIPELINE_WORKERS overrides the heuristic, still subject to the
limit.
*/
package workers
