package main

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/cherenkov.pipe/internal/config"
	"github.com/banshee-data/cherenkov.pipe/internal/eventfile"
	"github.com/banshee-data/cherenkov.pipe/internal/export"
	"github.com/banshee-data/cherenkov.pipe/internal/fsutil"
	"github.com/banshee-data/cherenkov.pipe/internal/monitoring"
	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
	"github.com/banshee-data/cherenkov.pipe/internal/provenance"
	"github.com/banshee-data/cherenkov.pipe/internal/reco"
	"github.com/banshee-data/cherenkov.pipe/internal/table"
	"github.com/banshee-data/cherenkov.pipe/internal/tableloader"
	"github.com/banshee-data/cherenkov.pipe/internal/timeutil"
	"github.com/banshee-data/cherenkov.pipe/internal/version"
)

const role = "DL1/Event"

// dataset maps columns of the joined event tables back to a stored
// dataset. Joined columns are named Prefixed(prefix, col).
type dataset struct {
	path   string
	prefix string
	cols   []string
	perTel bool
}

// chunkResult holds the joined tables of one chunk.
type chunkResult struct {
	subarray  *table.Table
	telescope *table.Table
}

type processor struct {
	cfg   *config.ProcessConfig
	clock timeutil.Clock
	prov  *provenance.Tracker

	in       *eventfile.File
	loader   *tableloader.Loader
	content  tableloader.Content
	opts     tableloader.Options
	datasets []dataset

	out     *eventfile.File
	parquet *export.ParquetWriter

	started              time.Time
	nEvents, nTelescopes int
}

func newProcessor(cfg *config.ProcessConfig) *processor {
	return &processor{cfg: cfg, clock: timeutil.RealClock{}}
}

func (p *processor) Name() string { return "process" }

func (p *processor) ProvenanceLog() string { return p.cfg.GetProvenanceLog() }

func (p *processor) toParquet() bool {
	return strings.EqualFold(filepath.Ext(p.cfg.GetOutput()), ".parquet")
}

// Setup checks the configuration against the input and opens both files.
func (p *processor) Setup(ctx context.Context, prov *provenance.Tracker) (err error) {
	defer func() {
		if err != nil {
			p.close()
		}
	}()
	if err := p.cfg.Validate(); err != nil {
		return err
	}
	level, _ := monitoring.ParseLevel(p.cfg.GetLogLevel())
	monitoring.SetLevel(level)

	p.prov = prov
	p.started = p.clock.Now()
	prov.AddConfig(p.cfg)

	in, out := p.cfg.GetInput(), p.cfg.GetOutput()
	if _, err := os.Stat(in); err != nil {
		return pipeerr.Wrap(pipeerr.CodeConfiguration, "input file", err)
	}
	if same, err := fsutil.SameFile(in, out); err != nil {
		return pipeerr.Wrap(pipeerr.CodeConfiguration, "output file", err)
	} else if same {
		return pipeerr.Newf(pipeerr.CodeConfiguration, "output %s is the input file", out)
	}
	if err := fsutil.EnsureParentDir(out); err != nil {
		return pipeerr.Wrap(pipeerr.CodeConfiguration, "output file", err)
	}
	if err := prov.AddInputFile(in, role); err != nil {
		return err
	}
	if err := prov.AddOutputFile(out, role); err != nil {
		return err
	}

	if p.in, err = eventfile.Open(in); err != nil {
		return err
	}
	if p.content, err = tableloader.Probe(ctx, p.in); err != nil {
		return err
	}
	if (p.cfg.GetWriteImages() || p.cfg.GetWriteParameters()) && !p.content.Images {
		return pipeerr.Newf(pipeerr.CodeValue, "%s has no DL1 images to write or parameterize", in)
	}
	if p.cfg.GetComputeImpact() && !p.content.DL2 {
		return pipeerr.Newf(pipeerr.CodeValue, "%s has no DL2 geometry to compute impact distances from", in)
	}

	p.opts = p.cfg.LoaderOptions(p.content)
	p.opts.LoadDL1Images = p.content.Images && (p.cfg.GetWriteImages() || p.cfg.GetWriteParameters())
	if p.cfg.GetWriteParameters() {
		p.opts.LoadDL1Parameters = false
	}
	if p.cfg.GetComputeImpact() {
		p.opts.LoadDL2 = true
	}
	if p.loader, err = tableloader.New(p.in, p.opts); err != nil {
		return err
	}
	if p.datasets, err = p.plan(ctx); err != nil {
		return err
	}

	if p.toParquet() {
		p.parquet, err = export.NewParquetWriter(out, p.cfg.GetOverwrite())
	} else {
		p.out, err = eventfile.Create(out, p.cfg.GetOverwrite())
	}
	return err
}

// plan lists the datasets written to an event file output.
func (p *processor) plan(ctx context.Context) ([]dataset, error) {
	var plan []dataset
	add := func(path, group, prefix string, perTel bool, extra ...string) error {
		cols, err := p.columns(ctx, group)
		if err != nil {
			return err
		}
		for _, c := range extra {
			if !slices.Contains(cols, c) {
				cols = append(cols, c)
			}
		}
		if len(cols) > 0 {
			plan = append(plan, dataset{path: path, prefix: prefix, cols: cols, perTel: perTel})
		}
		return nil
	}

	steps := []struct {
		enabled      bool
		path, prefix string
		perTel       bool
	}{
		{true, eventfile.SubarrayTriggerPath, "", false},
		{true, eventfile.TelescopeTriggerPath, "", false},
		{p.opts.LoadSimulated, eventfile.SimulationShowerPath, "true", false},
		{p.cfg.GetWriteImages(), eventfile.ImagesGroup, "", true},
		{p.opts.LoadDL1Parameters, eventfile.ParametersGroup, "", true},
		{p.opts.LoadTrueImages, eventfile.TrueImagesGroup, "", true},
		{p.opts.LoadTrueParameters, eventfile.TrueParametersGroup, "true", true},
		{p.opts.LoadSimulated, eventfile.TrueImpactGroup, "true", true},
	}
	for _, s := range steps {
		if !s.enabled {
			continue
		}
		if err := add(s.path, s.path, s.prefix, s.perTel); err != nil {
			return nil, err
		}
	}
	if p.cfg.GetWriteParameters() {
		plan = append(plan, dataset{path: eventfile.ParametersGroup, cols: parameterColumns, perTel: true})
	}
	if !p.opts.LoadDL2 {
		return plan, nil
	}

	subAlgos, err := p.in.Children(ctx, eventfile.DL2SubarrayGeometry)
	if err != nil {
		return nil, err
	}
	for _, algo := range subAlgos {
		path := eventfile.Join(eventfile.DL2SubarrayGeometry, algo)
		if err := add(path, path, algo, false); err != nil {
			return nil, err
		}
	}
	telAlgos, err := p.in.Children(ctx, eventfile.DL2TelescopeGeometry)
	if err != nil {
		return nil, err
	}
	impactAlgo := ""
	if p.cfg.GetComputeImpact() {
		impactAlgo = p.cfg.GetReconstructor()
		if !slices.Contains(subAlgos, impactAlgo) {
			return nil, pipeerr.Newf(pipeerr.CodeValue, "no DL2 subarray geometry for reconstructor %s (have %v)", impactAlgo, subAlgos)
		}
		if !slices.Contains(telAlgos, impactAlgo) {
			telAlgos = append(telAlgos, impactAlgo)
		}
	}
	for _, algo := range telAlgos {
		path := eventfile.Join(eventfile.DL2TelescopeGeometry, algo)
		var extra []string
		if algo == impactAlgo {
			extra = []string{"impact_distance"}
		}
		if err := add(path, path, table.Prefixed(algo, "tel"), true, extra...); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// columns returns the non-key columns of the datasets at or below path,
// in first-seen order.
func (p *processor) columns(ctx context.Context, path string) ([]string, error) {
	paths, err := p.in.Datasets(ctx, path)
	if err != nil {
		return nil, err
	}
	var cols []string
	for _, ds := range paths {
		schema, err := p.in.Schema(ctx, ds)
		if err != nil {
			return nil, err
		}
		for _, c := range schema {
			if slices.Contains(table.TelescopeEventKeys, c.Name) || slices.Contains(cols, c.Name) {
				continue
			}
			cols = append(cols, c.Name)
		}
	}
	return cols, nil
}

// Start reads the input chunk by chunk and writes each chunk in file order.
// Up to workers chunks are read concurrently.
func (p *processor) Start(ctx context.Context) error {
	if p.out != nil {
		if err := p.writeHeader(ctx); err != nil {
			return err
		}
	}
	chunks, err := p.chunks(ctx)
	if err != nil {
		return err
	}
	workers := p.cfg.GetWorkers()
	for len(chunks) > 0 {
		batch := chunks[:min(workers, len(chunks))]
		chunks = chunks[len(batch):]

		results := make([]chunkResult, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		for i, c := range batch {
			g.Go(func() error {
				r, err := p.readChunk(gctx, c)
				results[i] = r
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for _, r := range results {
			if err := p.writeChunk(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

// chunks returns the chunks to process, the last one clipped to max_events.
func (p *processor) chunks(ctx context.Context) ([]table.Chunk, error) {
	seq, err := p.loader.Chunks(ctx, p.cfg.GetChunkSize())
	if err != nil {
		return nil, err
	}
	limit := p.cfg.GetMaxEvents()
	var out []table.Chunk
	for c := range seq {
		if limit > 0 {
			if c.Start >= limit {
				break
			}
			c.Stop = min(c.Stop, limit)
		}
		out = append(out, c)
	}
	return out, nil
}

func (p *processor) readChunk(ctx context.Context, c table.Chunk) (chunkResult, error) {
	sub, err := p.loader.ReadSubarrayEvents(ctx, &c)
	if err != nil {
		return chunkResult{}, err
	}
	tel, err := p.loader.ReadTelescopeEvents(ctx, tableloader.AllTelescopes(), &c)
	if err != nil {
		return chunkResult{}, err
	}
	if p.cfg.GetWriteParameters() {
		if err := addImageParameters(tel); err != nil {
			return chunkResult{}, err
		}
	}
	if p.cfg.GetComputeImpact() {
		if err := reco.AddImpactColumns(tel, p.cfg.GetReconstructor(), p.loader.Subarray()); err != nil {
			return chunkResult{}, err
		}
	}
	monitoring.Debugf("chunk %d: %d subarray events, %d telescope events", c.Index, sub.NumRows(), tel.NumRows())
	return chunkResult{subarray: sub, telescope: tel}, nil
}

func (p *processor) writeChunk(ctx context.Context, r chunkResult) error {
	p.nEvents += r.subarray.NumRows()
	p.nTelescopes += r.telescope.NumRows()
	if p.parquet != nil {
		if r.telescope.NumRows() == 0 {
			return nil
		}
		return p.parquet.Write(r.telescope)
	}
	for _, ds := range p.datasets {
		src, keys := r.subarray, table.SubarrayEventKeys
		if ds.path == eventfile.TelescopeTriggerPath || ds.perTel {
			src, keys = r.telescope, table.TelescopeEventKeys
		}
		t, err := extract(src, keys, ds)
		if err != nil {
			return err
		}
		if t == nil {
			continue
		}
		if !ds.perTel {
			if err := p.write(ctx, ds.path, t); err != nil {
				return err
			}
			continue
		}
		for id, part := range splitByTel(t) {
			if err := p.write(ctx, eventfile.Join(ds.path, eventfile.TelDatasetName(id)), part); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *processor) write(ctx context.Context, path string, t *table.Table) error {
	if t.NumRows() == 0 {
		return nil
	}
	return p.out.WriteTable(ctx, path, t)
}

// writeHeader writes the instrument description and file attributes.
func (p *processor) writeHeader(ctx context.Context) error {
	if err := p.loader.Subarray().Write(ctx, p.out); err != nil {
		return err
	}
	attrs := map[string]string{
		eventfile.AttrCreator:      "cherenkov.pipe process " + version.String(),
		eventfile.AttrCreationTime: p.clock.Now().UTC().Format(time.RFC3339),
		eventfile.AttrDataLevels:   p.dataLevels(),
	}
	if rec, ok := p.prov.CurrentActivity(); ok {
		attrs[eventfile.AttrActivityID] = rec.UUID
	}
	for k, v := range attrs {
		if err := p.out.SetAttribute(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}

func (p *processor) dataLevels() string {
	var levels []string
	if p.cfg.GetWriteImages() {
		levels = append(levels, "DL1_IMAGES")
	}
	if p.cfg.GetWriteParameters() || p.opts.LoadDL1Parameters {
		levels = append(levels, "DL1_PARAMETERS")
	}
	if p.opts.LoadDL2 {
		levels = append(levels, "DL2")
	}
	return strings.Join(levels, ",")
}

// Finish closes both files and reports totals.
func (p *processor) Finish(context.Context) error {
	err := p.close()
	monitoring.Infof("processed %s subarray events, %s telescope events in %s",
		humanize.Comma(int64(p.nEvents)), humanize.Comma(int64(p.nTelescopes)),
		p.clock.Since(p.started).Round(time.Millisecond))
	return err
}

func (p *processor) close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if p.parquet != nil {
		keep(p.parquet.Close())
		p.parquet = nil
	}
	if p.out != nil {
		keep(p.out.Close())
		p.out = nil
	}
	if p.loader != nil {
		keep(p.loader.Close())
		p.loader = nil
	}
	if p.in != nil {
		keep(p.in.Close())
		p.in = nil
	}
	return first
}

// extract selects the key columns and the dataset's columns of src,
// stripping the join prefix. Rows where every dataset column is null are
// dropped. The result is nil when src has none of the columns.
func extract(src *table.Table, keys []string, ds dataset) (*table.Table, error) {
	var cols []*table.Column
	for _, k := range keys {
		c := src.Column(k)
		if c == nil {
			return nil, pipeerr.Newf(pipeerr.CodeKeyMismatch, "events lack key column %s", k)
		}
		cols = append(cols, c)
	}
	var values []*table.Column
	for _, name := range ds.cols {
		c := src.Column(table.Prefixed(ds.prefix, name))
		if c == nil {
			continue
		}
		values = append(values, &table.Column{Name: name, Type: c.Type, Values: c.Values})
	}
	if len(values) == 0 {
		return nil, nil
	}
	t, err := table.New(append(cols, values...)...)
	if err != nil {
		return nil, err
	}
	return t.Filter(func(row int) bool {
		for _, c := range values {
			if !c.IsNull(row) {
				return true
			}
		}
		return false
	}), nil
}

// splitByTel partitions telescope rows by tel_id, keeping row order.
func splitByTel(t *table.Table) map[int]*table.Table {
	tels, _ := t.Int64s("tel_id")
	rows := map[int][]int{}
	for i, id := range tels {
		rows[int(id)] = append(rows[int(id)], i)
	}
	out := make(map[int]*table.Table, len(rows))
	for id, idx := range rows {
		out[id] = t.Take(idx)
	}
	return out
}
