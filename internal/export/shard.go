package export

import "fmt"

// Shard is the contiguous half-open frame range [StartFrame, EndFrame) owned
// by one worker.
type Shard struct {
	StartFrame int `json:"start_frame"`
	EndFrame   int `json:"end_frame"`
}

// Frames returns the number of frames in the shard.
func (s Shard) Frames() int {
	return s.EndFrame - s.StartFrame
}

// String implements fmt.Stringer.
func (s Shard) String() string {
	return fmt.Sprintf("[%d,%d)", s.StartFrame, s.EndFrame)
}

// FullRange is the shard covering an entire render.
func FullRange(totalFrames int) Shard {
	return Shard{StartFrame: 0, EndFrame: totalFrames}
}

// PlanShard partitions [0, totalFrames) into numWorkers contiguous,
// non-overlapping, gap-free ranges and returns workerID's share. When
// totalFrames is not evenly divisible, earlier workers absorb one extra
// frame each, so the union of all shards reconstructs the exact original
// frame sequence.
func PlanShard(totalFrames, workerID, numWorkers int) (Shard, error) {
	if totalFrames < 0 {
		return Shard{}, fmt.Errorf("total frames must be non-negative, got %d", totalFrames)
	}
	if numWorkers < 1 {
		return Shard{}, fmt.Errorf("worker count must be at least 1, got %d", numWorkers)
	}
	if workerID < 0 || workerID >= numWorkers {
		return Shard{}, fmt.Errorf("worker id %d out of range [0,%d)", workerID, numWorkers)
	}

	base := totalFrames / numWorkers
	remainder := totalFrames % numWorkers

	start := workerID*base + min(workerID, remainder)
	count := base
	if workerID < remainder {
		count++
	}

	return Shard{StartFrame: start, EndFrame: start + count}, nil
}
