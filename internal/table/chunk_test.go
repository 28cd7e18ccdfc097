package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunksTiling(t *testing.T) {
	for _, tc := range []struct{ total, size int }{
		{0, 3}, {1, 1}, {10, 3}, {10, 5}, {7, 100}, {101, 10},
	} {
		seq, err := Chunks(tc.total, tc.size)
		require.NoError(t, err)

		var got []Chunk
		for c := range seq {
			got = append(got, c)
		}
		n := NumChunks(tc.total, tc.size)
		require.Len(t, got, n, "total=%d size=%d", tc.total, tc.size)

		next, sum := 0, 0
		for i, c := range got {
			assert.Equal(t, i, c.Index)
			assert.Equal(t, next, c.Start)
			assert.Greater(t, c.Len(), 0)
			next = c.Stop
			sum += c.Len()
		}
		assert.Equal(t, tc.total, sum)
		if n > 0 {
			assert.Equal(t, tc.total-(n-1)*tc.size, got[n-1].Len())
		}
	}
}

func TestChunksRestartAndBreak(t *testing.T) {
	seq, err := Chunks(10, 4)
	require.NoError(t, err)

	for c := range seq {
		assert.Equal(t, Chunk{Index: 0, Start: 0, Stop: 4}, c)
		break
	}
	var starts []int
	for c := range seq {
		starts = append(starts, c.Start)
	}
	assert.Equal(t, []int{0, 4, 8}, starts)
}

func TestChunksInvalid(t *testing.T) {
	_, err := Chunks(10, 0)
	assert.Error(t, err)
	_, err = Chunks(-1, 2)
	assert.Error(t, err)
}
