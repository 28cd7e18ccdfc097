package testutil

import (
	"math"
	"math/rand/v2"
	"strings"

	"github.com/banshee-data/cherenkov.pipe/internal/eventfile"
	"github.com/banshee-data/cherenkov.pipe/internal/instrument"
	"github.com/banshee-data/cherenkov.pipe/internal/table"
)

type rowset struct {
	names []string
	types []table.DataType
	rows  [][]any
}

func (r *rowset) add(vals ...any) { r.rows = append(r.rows, vals) }

func (r *rowset) table() *table.Table {
	cols := make([]*table.Column, len(r.names))
	for i := range cols {
		cols[i] = &table.Column{Name: r.names[i], Type: r.types[i], Values: make([]any, len(r.rows))}
		for j, row := range r.rows {
			cols[i].Values[j] = row[i]
		}
	}
	return table.MustNew(cols...)
}

type dataset struct {
	path  string
	table *table.Table
}

type builder struct {
	sub  *instrument.SubarrayDescription
	opts FixtureOptions
	rng  *rand.Rand

	order []string
	sets  map[string]*rowset
}

func newBuilder(sub *instrument.SubarrayDescription, opts FixtureOptions) *builder {
	if opts.Layout == "" {
		opts.Layout = LayoutByID
	}
	if len(opts.ObsIDs) == 0 {
		opts.ObsIDs = []int64{1}
	}
	if opts.EventsPerObs == 0 {
		opts.EventsPerObs = 6
	}
	if opts.Algorithm == "" {
		opts.Algorithm = DefaultAlgorithm
	}
	return &builder{
		sub:  sub,
		opts: opts,
		rng:  rand.New(rand.NewPCG(42, 7)),
		sets: map[string]*rowset{},
	}
}

func (b *builder) set(path string, names []string, types []table.DataType) *rowset {
	r, ok := b.sets[path]
	if !ok {
		r = &rowset{names: names, types: types}
		b.sets[path] = r
		b.order = append(b.order, path)
	}
	return r
}

func (b *builder) telDataset(group string, id int) string {
	if b.opts.Layout == LayoutByType {
		return eventfile.Join(group, b.sub.Tels[id].String())
	}
	return eventfile.Join(group, eventfile.TelDatasetName(id))
}

var (
	telKeyNames = []string{"obs_id", "event_id", "tel_id"}
	telKeyTypes = []table.DataType{table.Int64, table.Int64, table.Int64}
)

func telSchema(names []string, types ...table.DataType) ([]string, []table.DataType) {
	return append(append([]string{}, telKeyNames...), names...), append(append([]table.DataType{}, telKeyTypes...), types...)
}

var parameterNames = []string{
	"hillas_intensity", "hillas_x", "hillas_y", "hillas_length", "hillas_width",
	"hillas_psi", "concentration_cog", "leakage_pixels_width_1",
}

func (b *builder) build() {
	ids := b.sub.TelIDs()
	for _, obs := range b.opts.ObsIDs {
		for e := 1; e <= b.opts.EventsPerObs; e++ {
			b.event(obs, int64(e), ids)
		}
	}
}

func (b *builder) event(obs, evt int64, ids []int) {
	trig := Triggered(evt, ids)
	mask := make([]bool, len(ids))
	for _, id := range trig {
		mask[b.sub.TelIndex(id)] = true
	}
	t0 := float64(obs)*1e4 + float64(evt)
	b.set(eventfile.SubarrayTriggerPath,
		[]string{"obs_id", "event_id", "time", "event_type", "tels_with_trigger"},
		[]table.DataType{table.Int64, table.Int64, table.Float64, table.Int64, table.BoolArray},
	).add(obs, evt, t0, int64(32), mask)

	alt := 70*math.Pi/180 + 0.05*b.rng.Float64()
	az := 0.1 * b.rng.Float64()
	coreX, coreY := 200*b.rng.Float64()-100, 200*b.rng.Float64()-100
	if b.opts.Simulation {
		b.set(eventfile.SimulationShowerPath,
			[]string{"obs_id", "event_id", "energy", "alt", "az", "core_x", "core_y", "h_max"},
			[]table.DataType{table.Int64, table.Int64, table.Float64, table.Float64, table.Float64, table.Float64, table.Float64, table.Float64},
		).add(obs, evt, 0.1+10*b.rng.Float64(), alt, az, coreX, coreY, 9000+2000*b.rng.Float64())
	}
	if b.opts.DL2 {
		b.set(eventfile.Join(eventfile.DL2SubarrayGeometry, b.opts.Algorithm),
			[]string{"obs_id", "event_id", "alt", "az", "core_x", "core_y", "is_valid"},
			[]table.DataType{table.Int64, table.Int64, table.Float64, table.Float64, table.Float64, table.Float64, table.Bool},
		).add(obs, evt, alt+0.01, az-0.01, coreX+3, coreY-2, len(trig) > 1)
	}

	for _, id := range trig {
		names, types := telSchema([]string{"telescopetrigger_time"}, table.Float64)
		b.set(eventfile.TelescopeTriggerPath, names, types).add(obs, evt, int64(id), t0+1e-6*float64(id))
		b.telescope(obs, evt, id)
	}
}

func (b *builder) telescope(obs, evt int64, id int) {
	tel := int64(id)
	image := make([]float32, NumPixels)
	peak := make([]float32, NumPixels)
	for i := range image {
		image[i] = float32(b.rng.IntN(50))
		peak[i] = float32(10 + b.rng.IntN(20))
	}
	if b.opts.Images {
		names, types := telSchema([]string{"image", "peak_time"}, table.Float32Array, table.Float32Array)
		b.set(b.telDataset(eventfile.ImagesGroup, id), names, types).add(obs, evt, tel, image, peak)
	}
	params := func() []any {
		var sum float64
		for _, v := range image {
			sum += float64(v)
		}
		return []any{
			obs, evt, tel, sum, b.rng.NormFloat64(), b.rng.NormFloat64(),
			0.1 + b.rng.Float64(), 0.05 + 0.5*b.rng.Float64(), math.Pi * b.rng.Float64(),
			b.rng.Float64(), b.rng.Float64() / 10,
		}
	}
	paramTypes := make([]table.DataType, len(parameterNames))
	for i := range paramTypes {
		paramTypes[i] = table.Float64
	}
	if b.opts.Parameters {
		names, types := telSchema(parameterNames, paramTypes...)
		b.set(b.telDataset(eventfile.ParametersGroup, id), names, types).add(params()...)
	}
	if b.opts.TrueImages {
		names, types := telSchema([]string{"true_image"}, table.Float32Array)
		b.set(b.telDataset(eventfile.TrueImagesGroup, id), names, types).add(obs, evt, tel, image)
	}
	if b.opts.TrueParameters {
		names, types := telSchema(parameterNames, paramTypes...)
		b.set(b.telDataset(eventfile.TrueParametersGroup, id), names, types).add(params()...)
	}
	if b.opts.Simulation {
		names, types := telSchema([]string{"impact_distance"}, table.Float64)
		b.set(b.telDataset(eventfile.TrueImpactGroup, id), names, types).add(obs, evt, tel, 300*b.rng.Float64())
	}
	if b.opts.DL2 {
		names, types := telSchema([]string{"distance"}, table.Float64)
		b.set(b.telDataset(eventfile.Join(eventfile.DL2TelescopeGeometry, b.opts.Algorithm), id), names, types).
			add(obs, evt, tel, 300*b.rng.Float64())
	}
}

func (b *builder) datasets() []dataset {
	out := make([]dataset, 0, len(b.order))
	for _, p := range b.order {
		out = append(out, dataset{path: p, table: b.sets[p].table()})
	}
	return out
}

func (b *builder) dataLevels() string {
	levels := []string{}
	if b.opts.Images {
		levels = append(levels, "DL1_IMAGES")
	}
	if b.opts.Parameters {
		levels = append(levels, "DL1_PARAMETERS")
	}
	if b.opts.DL2 {
		levels = append(levels, "DL2")
	}
	return strings.Join(levels, ",")
}
