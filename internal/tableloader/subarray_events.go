package tableloader

import (
	"context"
	"fmt"

	"github.com/banshee-data/cherenkov.pipe/internal/eventfile"
	"github.com/banshee-data/cherenkov.pipe/internal/table"
)

// ReadSubarrayEvents returns one row per subarray event in file order,
// with simulated shower columns (true_ prefix) and DL2 geometry columns
// (<algorithm>_ prefix) joined as requested. A nil chunk reads all events.
func (l *Loader) ReadSubarrayEvents(ctx context.Context, chunk *table.Chunk) (*table.Table, error) {
	trig, err := l.readTrigger(ctx, chunk)
	if err != nil {
		return nil, err
	}
	keys, err := keysFor(trig, chunk)
	if err != nil {
		return nil, err
	}
	events, err := l.joinSubarrayLevel(ctx, trig, keys)
	if err != nil {
		return nil, err
	}
	events.Meta["path"] = eventfile.SubarrayTriggerPath
	return events, nil
}

// joinSubarrayLevel joins subarray level datasets onto events, which may
// be subarray or telescope events. Values are broadcast per event.
func (l *Loader) joinSubarrayLevel(ctx context.Context, events *table.Table, keys *eventfile.KeyFilter) (*table.Table, error) {
	var err error
	if l.opts.LoadSimulated {
		if events, err = l.joinShower(ctx, events, keys); err != nil {
			return nil, err
		}
	}
	if l.opts.LoadDL2 {
		if events, err = l.joinSubarrayGeometry(ctx, events, keys); err != nil {
			return nil, err
		}
	}
	return events, nil
}

func (l *Loader) joinShower(ctx context.Context, events *table.Table, keys *eventfile.KeyFilter) (*table.Table, error) {
	if err := l.requireDataset(ctx, eventfile.SimulationShowerPath, "load_simulated"); err != nil {
		return nil, err
	}
	shower, err := l.readDataset(ctx, eventfile.SimulationShowerPath, keys)
	if err != nil {
		return nil, err
	}
	return join(events, shower, table.SubarrayEventKeys, truePrefix)
}

func (l *Loader) joinSubarrayGeometry(ctx context.Context, events *table.Table, keys *eventfile.KeyFilter) (*table.Table, error) {
	if err := l.requireGroup(ctx, eventfile.DL2SubarrayGeometry, "load_dl2"); err != nil {
		return nil, err
	}
	algos, err := l.file.Children(ctx, eventfile.DL2SubarrayGeometry)
	if err != nil {
		return nil, err
	}
	for _, algo := range algos {
		geom, err := l.readDataset(ctx, eventfile.Join(eventfile.DL2SubarrayGeometry, algo), keys)
		if err != nil {
			return nil, err
		}
		if events, err = join(events, geom, table.SubarrayEventKeys, algo); err != nil {
			return nil, fmt.Errorf("join %s geometry: %w", algo, err)
		}
	}
	return events, nil
}
