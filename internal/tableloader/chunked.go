package tableloader

import (
	"context"
	"iter"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/cherenkov.pipe/internal/table"
)

// Chunks returns the chunk ranges over the subarray events of the file.
func (l *Loader) Chunks(ctx context.Context, size int) (iter.Seq[table.Chunk], error) {
	total, err := l.NumEvents(ctx)
	if err != nil {
		return nil, err
	}
	return table.Chunks(total, size)
}

// chunked reads one result per chunk. Every range over the returned
// sequence starts from the first chunk. Errors end the sequence.
func chunked[T any](ctx context.Context, l *Loader, size int, read func(context.Context, *table.Chunk) (T, error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		chunks, err := l.Chunks(ctx, size)
		if err != nil {
			yield(zero, err)
			return
		}
		for c := range chunks {
			if err := ctx.Err(); err != nil {
				yield(zero, err)
				return
			}
			v, err := read(ctx, &c)
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// ReadSubarrayEventsChunked reads subarray events size events at a time.
func (l *Loader) ReadSubarrayEventsChunked(ctx context.Context, size int) iter.Seq2[*table.Table, error] {
	return chunked(ctx, l, size, l.ReadSubarrayEvents)
}

// ReadTelescopeEventsChunked reads the telescope events of size subarray
// events at a time.
func (l *Loader) ReadTelescopeEventsChunked(ctx context.Context, sel TelescopeSelection, size int) iter.Seq2[*table.Table, error] {
	return chunked(ctx, l, size, func(ctx context.Context, c *table.Chunk) (*table.Table, error) {
		return l.ReadTelescopeEvents(ctx, sel, c)
	})
}

// ReadTelescopeEventsByTypeChunked is the chunked form of
// ReadTelescopeEventsByType.
func (l *Loader) ReadTelescopeEventsByTypeChunked(ctx context.Context, sel TelescopeSelection, size int) iter.Seq2[map[string]*table.Table, error] {
	return chunked(ctx, l, size, func(ctx context.Context, c *table.Chunk) (map[string]*table.Table, error) {
		return l.ReadTelescopeEventsByType(ctx, sel, c)
	})
}

// ForEachChunk calls fn for every chunk using up to workers goroutines.
// Chunks are independent reads, so fn must not rely on call order. The
// first error cancels the remaining chunks and is returned.
func (l *Loader) ForEachChunk(ctx context.Context, size, workers int, fn func(ctx context.Context, c table.Chunk) error) error {
	chunks, err := l.Chunks(ctx, size)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))
	for c := range chunks {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error { return fn(ctx, c) })
	}
	return g.Wait()
}
