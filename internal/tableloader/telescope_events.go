package tableloader

import (
	"context"
	"fmt"
	"slices"

	"github.com/banshee-data/cherenkov.pipe/internal/eventfile"
	"github.com/banshee-data/cherenkov.pipe/internal/table"
)

// ReadTelescopeEvents returns one row per triggered telescope of each
// subarray event, restricted to sel. Rows follow the subarray trigger
// order, and the telescope trigger order within an event. A nil chunk
// reads all events.
func (l *Loader) ReadTelescopeEvents(ctx context.Context, sel TelescopeSelection, chunk *table.Chunk) (*table.Table, error) {
	ids, err := sel.Resolve(l.subarray)
	if err != nil {
		return nil, err
	}
	trig, err := l.readTrigger(ctx, chunk)
	if err != nil {
		return nil, err
	}
	keys, err := keysFor(trig, chunk)
	if err != nil {
		return nil, err
	}

	events, err := l.telescopeTrigger(ctx, trig, ids, keys)
	if err != nil {
		return nil, err
	}
	for _, step := range []struct {
		enabled bool
		option  string
		group   string
		prefix  string
	}{
		{l.opts.LoadDL1Parameters, "load_dl1_parameters", eventfile.ParametersGroup, ""},
		{l.opts.LoadDL1Images, "load_dl1_images", eventfile.ImagesGroup, ""},
		{l.opts.LoadTrueImages, "load_true_images", eventfile.TrueImagesGroup, ""},
		{l.opts.LoadTrueParameters, "load_true_parameters", eventfile.TrueParametersGroup, truePrefix},
	} {
		if !step.enabled {
			continue
		}
		if err := l.requireGroup(ctx, step.group, step.option); err != nil {
			return nil, err
		}
		if events, err = l.joinTelescopeGroup(ctx, events, step.group, step.prefix, ids, keys); err != nil {
			return nil, err
		}
	}

	if events, err = l.joinSubarrayLevel(ctx, events, keys); err != nil {
		return nil, err
	}
	if l.opts.LoadDL2 {
		if events, err = l.joinTelescopeGeometry(ctx, events, ids, keys); err != nil {
			return nil, err
		}
	}
	if l.opts.LoadSimulated {
		if events, err = l.joinTelescopeGroup(ctx, events, eventfile.TrueImpactGroup, truePrefix, ids, keys); err != nil {
			return nil, err
		}
	}
	if l.opts.LoadInstrument {
		inst := l.subarray.TelescopeTable()
		inst.Meta["path"] = "instrument"
		if events, err = join(events, inst, []string{"tel_id"}, ""); err != nil {
			return nil, err
		}
	}
	events.Meta["path"] = eventfile.TelescopeTriggerPath
	return events, nil
}

// telescopeTrigger returns the telescope trigger rows of the events in
// trig restricted to ids, ordered like trig, with the subarray trigger
// time and event type attached.
func (l *Loader) telescopeTrigger(ctx context.Context, trig *table.Table, ids []int, keys *eventfile.KeyFilter) (*table.Table, error) {
	tel, err := l.readDataset(ctx, eventfile.TelescopeTriggerPath, keys)
	if err != nil {
		return nil, err
	}
	if len(ids) < l.subarray.NumTels() {
		tel, err = table.Join(tel, selectionTable(ids), table.JoinOptions{
			On:        []string{"tel_id"},
			Kind:      table.JoinInner,
			LeftName:  eventfile.TelescopeTriggerPath,
			RightName: "selection",
		})
		if err != nil {
			return nil, err
		}
	}
	if tel, err = table.OrderBy(tel, trig, table.SubarrayEventKeys); err != nil {
		return nil, err
	}
	tel.Meta["path"] = eventfile.TelescopeTriggerPath

	var cols []string
	for _, c := range []string{"time", "event_type"} {
		if trig.HasColumn(c) {
			cols = append(cols, c)
		}
	}
	return table.Join(tel, trig, table.JoinOptions{
		On:           table.SubarrayEventKeys,
		RightColumns: cols,
		LeftName:     eventfile.TelescopeTriggerPath,
		RightName:    eventfile.SubarrayTriggerPath,
	})
}

func (l *Loader) joinTelescopeGroup(ctx context.Context, events *table.Table, group, prefix string, ids []int, keys *eventfile.KeyFilter) (*table.Table, error) {
	data, err := l.readTelescopeGroup(ctx, group, ids, keys)
	if err != nil || data == nil {
		return events, err
	}
	return join(events, data, table.TelescopeEventKeys, prefix)
}

func (l *Loader) joinTelescopeGeometry(ctx context.Context, events *table.Table, ids []int, keys *eventfile.KeyFilter) (*table.Table, error) {
	algos, err := l.file.Children(ctx, eventfile.DL2TelescopeGeometry)
	if err != nil {
		return nil, err
	}
	for _, algo := range algos {
		group := eventfile.Join(eventfile.DL2TelescopeGeometry, algo)
		if events, err = l.joinTelescopeGroup(ctx, events, group, table.Prefixed(algo, telSuffix), ids, keys); err != nil {
			return nil, fmt.Errorf("join %s telescope geometry: %w", algo, err)
		}
	}
	return events, nil
}

// ReadTelescopeEventsByType is ReadTelescopeEvents partitioned by
// telescope type name. Every selected type has an entry.
func (l *Loader) ReadTelescopeEventsByType(ctx context.Context, sel TelescopeSelection, chunk *table.Chunk) (map[string]*table.Table, error) {
	events, err := l.ReadTelescopeEvents(ctx, sel, chunk)
	if err != nil {
		return nil, err
	}
	ids, err := sel.Resolve(l.subarray)
	if err != nil {
		return nil, err
	}
	tels, err := events.Int64s("tel_id")
	if err != nil {
		return nil, err
	}
	out := map[string]*table.Table{}
	for _, typ := range l.subarray.TelescopeTypes() {
		var members []int64
		for _, id := range l.subarray.TelIDsForType(typ) {
			if slices.Contains(ids, id) {
				members = append(members, int64(id))
			}
		}
		if len(members) == 0 {
			continue
		}
		part := events.Filter(func(row int) bool { return slices.Contains(members, tels[row]) })
		part.Meta["telescope_type"] = typ
		out[typ] = part
	}
	return out, nil
}
