// Package sysinfo sizes the scheduler's worker pool: per-encoder CPU and
// memory tunables bound the default concurrency, cross-checked against
// available system memory for the encoder family in use.
package sysinfo

import (
	"github.com/splitreel/splitreel/internal/config"
	"github.com/splitreel/splitreel/internal/encoder"
	"github.com/splitreel/splitreel/internal/util"
)

// tunable is one encoder's (cpusPerWorker, gbPerWorker) pair: worker
// count defaults to roughly min(cpus/K, ram_gb/K'), per §4.6.
type tunable struct {
	cpusPerWorker int
	gbPerWorker   float64
}

var tunables = map[encoder.Tag]tunable{
	encoder.TagAOM:    {cpusPerWorker: 2, gbPerWorker: 1.5},
	encoder.TagRav1e:  {cpusPerWorker: 2, gbPerWorker: 1.0},
	encoder.TagSVTAV1: {cpusPerWorker: 4, gbPerWorker: 2.0},
	encoder.TagSVTVP9: {cpusPerWorker: 2, gbPerWorker: 1.0},
	encoder.TagVPX:    {cpusPerWorker: 1, gbPerWorker: 1.0},
	encoder.TagX264:   {cpusPerWorker: 1, gbPerWorker: 0.5},
	encoder.TagX265:   {cpusPerWorker: 2, gbPerWorker: 1.0},
	encoder.TagVVC:    {cpusPerWorker: 2, gbPerWorker: 1.5},
}

// DefaultWorkers returns the auto-sized worker count for tag, capped at
// config.DefaultWorkerCap and at least 1.
func DefaultWorkers(tag encoder.Tag) int {
	t, ok := tunables[tag]
	if !ok {
		t = tunable{cpusPerWorker: 2, gbPerWorker: 1.0}
	}

	byCPU := util.LogicalCores() / max(t.cpusPerWorker, 1)

	availGB := float64(util.AvailableMemoryBytes()) / float64(util.GiB)
	byMem := int(availGB / t.gbPerWorker)

	workers := min(byCPU, byMem)
	if workers < 1 {
		workers = 1
	}
	if workers > config.DefaultWorkerCap {
		workers = config.DefaultWorkerCap
	}
	return workers
}

// ChunkMemoryBytes estimates memory per in-flight chunk: the chunk's raw
// pixel buffer (10-bit YUV 4:2:0 at three bytes/pixel) plus a fixed
// per-process encoder overhead.
func ChunkMemoryBytes(width, height uint32, avgFramesPerChunk int) uint64 {
	frameSize := uint64(width) * uint64(height) * 3
	yuvMemBytes := frameSize * uint64(avgFramesPerChunk)
	const encoderOverhead = uint64(1) << 30
	return yuvMemBytes + encoderOverhead
}

// MemoryBoundedWorkers caps basePermits to at most memFraction of
// available system memory, given the per-chunk memory estimate.
func MemoryBoundedWorkers(basePermits int, width, height uint32, avgFramesPerChunk int, memFraction float64) int {
	permits := max(basePermits, 1)
	chunkMemBytes := ChunkMemoryBytes(width, height, avgFramesPerChunk)
	memPermits := util.MaxPermitsForMemory(chunkMemBytes, memFraction)
	if memPermits < permits {
		permits = memPermits
	}
	return permits
}
