package eventfile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
	"github.com/banshee-data/cherenkov.pipe/internal/table"
)

const triggerPath = SubarrayTriggerPath

func writeFixture(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "events.sqlite")
	f, err := Create(path, false)
	require.NoError(t, err)
	defer f.Close()

	trig := table.MustNew(
		table.NewInt64Column("obs_id", []int64{2, 1, 1, 2}),
		table.NewInt64Column("event_id", []int64{1, 1, 2, 2}),
		table.NewFloat64Column("time", []float64{10, 11, 12, 13}),
		table.NewBoolArrayColumn("tels_with_trigger", [][]bool{{true, false}, {true, true}, {false, true}, {true, true}}),
	)
	require.NoError(t, f.WriteTable(ctx, triggerPath, trig))

	img := table.MustNew(
		table.NewInt64Column("obs_id", []int64{2, 1}),
		table.NewInt64Column("event_id", []int64{1, 1}),
		table.NewInt64Column("tel_id", []int64{1, 1}),
		table.NewFloat32ArrayColumn("image", [][]float32{{1.5, -2}, nil}),
		table.NewBoolColumn("is_valid", []bool{true, false}),
		table.NewStringColumn("label", []string{"a", "b"}),
	)
	require.NoError(t, f.WriteTable(ctx, "/dl1/event/telescope/images/tel_001", img))
	require.NoError(t, f.WriteTable(ctx, "/dl1/event/telescope/images/tel_002", img.Slice(0, 1)))
	return path
}

func TestCreateAndListing(t *testing.T) {
	ctx := context.Background()
	path := writeFixture(t)

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.True(t, f.ReadOnly())

	all, err := f.Datasets(ctx, "/dl1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/dl1/event/subarray/trigger",
		"/dl1/event/telescope/images/tel_001",
		"/dl1/event/telescope/images/tel_002",
	}, all)

	children, err := f.Children(ctx, "/dl1/event/telescope/images")
	require.NoError(t, err)
	assert.Equal(t, []string{"tel_001", "tel_002"}, children)

	children, err = f.Children(ctx, "/dl1/event")
	require.NoError(t, err)
	assert.Equal(t, []string{"subarray", "telescope"}, children)

	ok, err := f.HasGroup(ctx, "/dl2")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.HasDataset(ctx, "/configuration/instrument/subarray/layout")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := f.NumRows(ctx, triggerPath)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = f.NumRows(ctx, "/missing")
	assert.ErrorIs(t, err, ErrDatasetNotFound)
	assert.ErrorIs(t, err, pipeerr.ErrIO)
}

func TestReadTableRoundTrip(t *testing.T) {
	ctx := context.Background()
	f, err := Open(writeFixture(t))
	require.NoError(t, err)
	defer f.Close()

	img, err := f.ReadTable(ctx, "/dl1/event/telescope/images/tel_001", ReadOptions{})
	require.NoError(t, err)
	want := []any{[]float32{1.5, -2}, nil}
	if diff := cmp.Diff(want, img.Column("image").Values); diff != "" {
		t.Errorf("image mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []any{true, false}, img.Column("is_valid").Values)
	assert.Equal(t, table.String, img.Column("label").Type)
	assert.Equal(t, "/dl1/event/telescope/images/tel_001", img.Meta["path"])

	trig, err := f.ReadTable(ctx, triggerPath, ReadOptions{Columns: []string{"event_id", "tels_with_trigger"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"event_id", "tels_with_trigger"}, trig.ColumnNames())
	assert.Equal(t, []bool{false, true}, trig.Column("tels_with_trigger").Values[2])
}

func TestReadTableSliceAndKeys(t *testing.T) {
	ctx := context.Background()
	f, err := Open(writeFixture(t))
	require.NoError(t, err)
	defer f.Close()

	start, stop := 1, 3
	part, err := f.ReadTable(ctx, triggerPath, ReadOptions{Start: &start, Stop: &stop})
	require.NoError(t, err)
	assert.Equal(t, []any{11.0, 12.0}, part.Column("time").Values)

	keys := NewKeyFilter([]int64{2, 1}, []int64{2, 1})
	sel, err := f.ReadTable(ctx, triggerPath, ReadOptions{Keys: keys, Columns: []string{"time"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"time"}, sel.ColumnNames())
	assert.Equal(t, []any{11.0, 13.0}, sel.Column("time").Values)

	both, err := f.ReadTable(ctx, triggerPath, ReadOptions{Start: &start, Stop: &stop, Keys: keys})
	require.NoError(t, err)
	assert.Equal(t, 1, both.NumRows())

	_, err = f.ReadTable(ctx, triggerPath, ReadOptions{Columns: []string{"nope"}})
	assert.ErrorIs(t, err, pipeerr.ErrValue)
}

func TestKeyFilterSelectsPairsInSQL(t *testing.T) {
	keys := NewKeyFilter([]int64{2, 1, 1}, []int64{5, 9, 3})
	query, args := buildSelect(triggerPath, []Column{{Name: "obs_id"}, {Name: "event_id"}}, ReadOptions{Keys: keys})
	assert.Contains(t, query, "WHERE (obs_id, event_id) IN (VALUES (1, 3), (1, 9), (2, 5)) ORDER BY rowid")
	assert.Empty(t, args)

	query, _ = buildSelect(triggerPath, []Column{{Name: "obs_id"}}, ReadOptions{Keys: NewKeyFilter(nil, nil)})
	assert.Contains(t, query, "WHERE 0")
}

func TestKeyFilterSingleObservation(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "single_obs.sqlite")
	f, err := Create(path, false)
	require.NoError(t, err)
	defer f.Close()

	const n = 50
	obs, evt, tm := make([]int64, n), make([]int64, n), make([]float64, n)
	for i := range n {
		obs[i], evt[i], tm[i] = 1, int64(n-i), float64(i)
	}
	require.NoError(t, f.WriteTable(ctx, triggerPath, table.MustNew(
		table.NewInt64Column("obs_id", obs),
		table.NewInt64Column("event_id", evt),
		table.NewFloat64Column("time", tm),
	)))

	// More pairs than SQLite accepts as bound parameters.
	const many = 40000
	fo, fe := make([]int64, 0, many), make([]int64, 0, many)
	fo, fe = append(fo, 1, 1), append(fe, 7, 45)
	for i := range many - 2 {
		fo, fe = append(fo, 3), append(fe, int64(i))
	}
	got, err := f.ReadTable(ctx, triggerPath, ReadOptions{Keys: NewKeyFilter(fo, fe)})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(45), int64(7)}, got.Column("event_id").Values, "file order is kept")

	none, err := f.ReadTable(ctx, triggerPath, ReadOptions{Keys: NewKeyFilter(nil, nil)})
	require.NoError(t, err)
	assert.Equal(t, 0, none.NumRows())
	assert.Equal(t, []string{"obs_id", "event_id", "time"}, none.ColumnNames())
}

func TestWriteRules(t *testing.T) {
	ctx := context.Background()
	path := writeFixture(t)

	_, err := Create(path, false)
	assert.ErrorIs(t, err, pipeerr.ErrConfiguration)

	ro, err := Open(path)
	require.NoError(t, err)
	err = ro.WriteTable(ctx, triggerPath, table.MustNew(table.NewInt64Column("obs_id", []int64{1})))
	assert.ErrorIs(t, err, ErrReadOnly)
	require.NoError(t, ro.Close())
	assert.False(t, ro.IsOpen())
	assert.NoError(t, ro.Close())

	f, err := Create(path, true)
	require.NoError(t, err)
	defer f.Close()

	ds, err := f.Datasets(ctx, "/dl1")
	require.NoError(t, err)
	assert.Empty(t, ds)

	require.NoError(t, f.WriteTable(ctx, "/x", table.MustNew(table.NewInt64Column("a", []int64{1}))))
	require.NoError(t, f.WriteTable(ctx, "/x", table.MustNew(table.NewFloat64Column("b", []float64{2}))))
	x, err := f.ReadTable(ctx, "/x", ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), nil}, x.Column("a").Values)
	assert.Equal(t, []any{nil, 2.0}, x.Column("b").Values)

	err = f.WriteTable(ctx, "/x", table.MustNew(table.NewStringColumn("a", []string{"s"})))
	assert.ErrorIs(t, err, pipeerr.ErrValue)
}

func TestAttributesAndMigrations(t *testing.T) {
	ctx := context.Background()
	f, err := Create(filepath.Join(t.TempDir(), "a.sqlite"), false)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
	require.NoError(t, f.MigrateUp())

	require.NoError(t, f.SetAttribute(ctx, AttrDataLevels, "DL1_PARAMETERS"))
	require.NoError(t, f.SetAttribute(ctx, AttrDataLevels, "DL1_IMAGES,DL1_PARAMETERS"))
	got, ok, err := f.Attribute(ctx, AttrDataLevels)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "DL1_IMAGES,DL1_PARAMETERS", got)

	_, ok, err = f.Attribute(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := f.Attributes(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.sqlite"))
	assert.ErrorIs(t, err, pipeerr.ErrIO)
}

func TestTelDatasetNames(t *testing.T) {
	assert.Equal(t, "tel_025", TelDatasetName(25))
	assert.Equal(t, "tel_1234", TelDatasetName(1234))

	id, ok := ParseTelDatasetName("tel_130")
	assert.True(t, ok)
	assert.Equal(t, 130, id)
	for _, bad := range []string{"MST_MST_FlashCam", "tel_", "tel_x1", "tel_-4"} {
		_, ok := ParseTelDatasetName(bad)
		assert.False(t, ok, bad)
	}
	assert.Equal(t, "/dl1/event/telescope/images/tel_001", Join(ImagesGroup, "tel_001"))
}
