package table

import (
	"iter"

	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
)

// Chunk is the half-open row range [Start, Stop) of the driving table.
type Chunk struct {
	Index int
	Start int
	Stop  int
}

// Len returns the number of rows in the chunk.
func (c Chunk) Len() int { return c.Stop - c.Start }

// NumChunks returns ceil(total/size).
func NumChunks(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// ChunkAt returns chunk i of a tiling of total rows into size-row chunks.
func ChunkAt(i, total, size int) Chunk {
	start := i * size
	return Chunk{Index: i, Start: start, Stop: min(start+size, total)}
}

// Chunks returns a lazy sequence of chunks tiling [0, total). Each range
// over the sequence starts again from the first chunk, and stopping early
// leaves nothing behind.
func Chunks(total, size int) (iter.Seq[Chunk], error) {
	if size <= 0 {
		return nil, pipeerr.Newf(pipeerr.CodeValue, "chunk size must be positive, got %d", size)
	}
	if total < 0 {
		return nil, pipeerr.Newf(pipeerr.CodeValue, "row count must not be negative, got %d", total)
	}
	n := NumChunks(total, size)
	return func(yield func(Chunk) bool) {
		for i := 0; i < n; i++ {
			if !yield(ChunkAt(i, total, size)) {
				return
			}
		}
	}, nil
}
