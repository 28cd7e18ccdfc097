package tableloader

import (
	"context"
	"fmt"

	"github.com/banshee-data/cherenkov.pipe/internal/eventfile"
	"github.com/banshee-data/cherenkov.pipe/internal/table"
)

// Column prefixes of joined datasets.
const (
	truePrefix = "true"
	telSuffix  = "tel"
)

// readTrigger reads the subarray trigger table, or one chunk of it.
func (l *Loader) readTrigger(ctx context.Context, chunk *table.Chunk) (*table.Table, error) {
	opts := eventfile.ReadOptions{}
	if chunk != nil {
		opts.Start, opts.Stop = &chunk.Start, &chunk.Stop
	}
	return l.file.ReadTable(ctx, eventfile.SubarrayTriggerPath, opts)
}

// keysFor returns the key filter for datasets read alongside a chunk of
// the trigger table, nil for whole file reads.
func keysFor(trigger *table.Table, chunk *table.Chunk) (*eventfile.KeyFilter, error) {
	if chunk == nil {
		return nil, nil
	}
	return eventfile.KeyFilterFromTable(trigger)
}

func (l *Loader) readDataset(ctx context.Context, path string, keys *eventfile.KeyFilter) (*table.Table, error) {
	return l.file.ReadTable(ctx, path, eventfile.ReadOptions{Keys: keys})
}

// readTelescopeGroup reads and stacks the datasets of a telescope group
// holding ids. The result is nil when the group does not exist. When the
// group exists but holds none of ids, the result has the group's columns
// and no rows, so joined columns do not depend on the dataset layout.
func (l *Loader) readTelescopeGroup(ctx context.Context, group string, ids []int, keys *eventfile.KeyFilter) (*table.Table, error) {
	present, err := l.file.HasGroup(ctx, group)
	if err != nil || !present {
		return nil, err
	}
	if l.structureErr != nil {
		return nil, l.structureErr
	}
	var parts []*table.Table
	for _, name := range datasetNames(l.structure, l.subarray, ids) {
		path := eventfile.Join(group, name)
		ok, err := l.file.HasDataset(ctx, path)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		t, err := l.readDataset(ctx, path, keys)
		if err != nil {
			return nil, err
		}
		if l.structure == ByType {
			if t, err = restrictTels(t, ids); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
		parts = append(parts, t)
	}
	if len(parts) == 0 {
		return l.emptyGroupTable(ctx, group)
	}
	out, err := table.VStack(parts...)
	if err != nil {
		return nil, fmt.Errorf("stack %s: %w", group, err)
	}
	out.Meta["path"] = group
	return out, nil
}

// emptyGroupTable returns a table with the columns of the first dataset
// of group and no rows.
func (l *Loader) emptyGroupTable(ctx context.Context, group string) (*table.Table, error) {
	paths, err := l.file.Datasets(ctx, group)
	if err != nil || len(paths) == 0 {
		return nil, err
	}
	schema, err := l.file.Schema(ctx, paths[0])
	if err != nil {
		return nil, err
	}
	names := make([]string, len(schema))
	types := make([]table.DataType, len(schema))
	for i, c := range schema {
		names[i], types[i] = c.Name, c.Type
	}
	out := table.Empty(names, types)
	out.Meta["path"] = group
	return out, nil
}

func restrictTels(t *table.Table, ids []int) (*table.Table, error) {
	tels, err := t.Int64s("tel_id")
	if err != nil {
		return nil, err
	}
	keep := make(map[int64]bool, len(ids))
	for _, id := range ids {
		keep[int64(id)] = true
	}
	return t.Filter(func(row int) bool { return keep[tels[row]] }), nil
}

func join(left, right *table.Table, on []string, prefix string) (*table.Table, error) {
	return table.Join(left, right, table.JoinOptions{
		On:          on,
		RightPrefix: prefix,
		LeftName:    left.Meta["path"],
		RightName:   right.Meta["path"],
	})
}
