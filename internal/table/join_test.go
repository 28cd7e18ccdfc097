package table

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
)

func telEvents() *Table {
	return MustNew(
		NewInt64Column("obs_id", []int64{2, 2, 1, 1, 1}),
		NewInt64Column("event_id", []int64{7, 7, 3, 3, 4}),
		NewInt64Column("tel_id", []int64{1, 2, 1, 3, 2}),
		NewFloat64Column("hillas_length", []float64{0.1, 0.2, 0.3, 0.4, 0.5}),
	)
}

func TestJoinBroadcastsAndKeepsOrder(t *testing.T) {
	shower := MustNew(
		NewInt64Column("obs_id", []int64{1, 2, 1}),
		NewInt64Column("event_id", []int64{3, 7, 4}),
		NewFloat64Column("energy", []float64{1.5, 2.5, 3.5}),
	)
	got, err := Join(telEvents(), shower, JoinOptions{On: SubarrayEventKeys, RightPrefix: "true"})
	require.NoError(t, err)

	assert.Equal(t, []string{"obs_id", "event_id", "tel_id", "hillas_length", "true_energy"}, got.ColumnNames())
	want := []any{2.5, 2.5, 1.5, 1.5, 3.5}
	if diff := cmp.Diff(want, got.Column("true_energy").Values); diff != "" {
		t.Errorf("true_energy mismatch (-want +got):\n%s", diff)
	}
	assert.NoError(t, CheckEqualArrayEventOrder(telEvents(), got))
}

func TestJoinLeftNullFillsAndInnerDrops(t *testing.T) {
	geom := MustNew(
		NewInt64Column("obs_id", []int64{1}),
		NewInt64Column("event_id", []int64{3}),
		NewFloat64Column("alt", []float64{1.2}),
	)

	left, err := Join(telEvents(), geom, JoinOptions{On: SubarrayEventKeys, RightPrefix: "HillasReconstructor"})
	require.NoError(t, err)
	assert.Equal(t, 5, left.NumRows())
	assert.Equal(t, []any{nil, nil, 1.2, 1.2, nil}, left.Column("HillasReconstructor_alt").Values)

	inner, err := Join(telEvents(), geom, JoinOptions{On: SubarrayEventKeys, Kind: JoinInner, RightPrefix: "HillasReconstructor"})
	require.NoError(t, err)
	tels, _ := inner.Int64s("tel_id")
	assert.Equal(t, []int64{1, 3}, tels)
}

func TestJoinTelescopeRestrictionIsSubset(t *testing.T) {
	sel := MustNew(NewInt64Column("tel_id", []int64{2}))
	got, err := Join(telEvents(), sel, JoinOptions{On: []string{"tel_id"}, Kind: JoinInner})
	require.NoError(t, err)

	tels, _ := got.Int64s("tel_id")
	assert.Equal(t, []int64{2, 2}, tels)
	obs, _ := got.Int64s("obs_id")
	assert.Equal(t, []int64{2, 1}, obs)
}

func TestJoinFloatKeysMatchSignedZero(t *testing.T) {
	left := MustNew(NewFloat64Column("k", []float64{0, 1.5}))
	right := MustNew(
		NewFloat64Column("k", []float64{math.Copysign(0, -1), 1.5}),
		NewStringColumn("v", []string{"zero", "one"}),
	)
	got, err := Join(left, right, JoinOptions{On: []string{"k"}})
	require.NoError(t, err)
	assert.Equal(t, []any{"zero", "one"}, got.Column("v").Values)

	dup := MustNew(
		NewFloat64Column("k", []float64{0, math.Copysign(0, -1)}),
		NewStringColumn("v", []string{"a", "b"}),
	)
	_, err = Join(left, dup, JoinOptions{On: []string{"k"}})
	assert.ErrorIs(t, err, pipeerr.ErrKeyMismatch)
}

func TestJoinErrors(t *testing.T) {
	right := MustNew(
		NewInt64Column("obs_id", []int64{1, 1}),
		NewInt64Column("event_id", []int64{3, 3}),
		NewFloat64Column("hillas_length", []float64{1, 2}),
	)

	t.Run("duplicate right key", func(t *testing.T) {
		_, err := Join(telEvents(), right, JoinOptions{On: SubarrayEventKeys, RightPrefix: "x"})
		assert.ErrorIs(t, err, pipeerr.ErrKeyMismatch)
	})

	t.Run("missing key column", func(t *testing.T) {
		_, err := Join(telEvents(), right, JoinOptions{On: TelescopeEventKeys, RightName: "dl2"})
		require.ErrorIs(t, err, pipeerr.ErrKeyMismatch)
		assert.Contains(t, err.Error(), "dl2")
	})

	t.Run("collision without convention", func(t *testing.T) {
		r := right.Slice(0, 1)
		_, err := Join(telEvents(), r, JoinOptions{On: SubarrayEventKeys})
		assert.ErrorIs(t, err, pipeerr.ErrValue)
	})

	t.Run("collision resolved by suffix", func(t *testing.T) {
		r := right.Slice(0, 1)
		got, err := Join(telEvents(), r, JoinOptions{On: SubarrayEventKeys, RightSuffix: "dl2"})
		require.NoError(t, err)
		assert.True(t, got.HasColumn("hillas_length_dl2"))
	})

	t.Run("key type mismatch", func(t *testing.T) {
		r := MustNew(NewStringColumn("tel_id", []string{"1"}))
		_, err := Join(telEvents(), r, JoinOptions{On: []string{"tel_id"}})
		assert.ErrorIs(t, err, pipeerr.ErrKeyMismatch)
	})
}

func TestVStackUnionsColumns(t *testing.T) {
	a := MustNew(NewInt64Column("tel_id", []int64{1}), NewFloat64Column("x", []float64{0.5}))
	b := MustNew(NewInt64Column("tel_id", []int64{2, 3}), NewStringColumn("cam", []string{"A", "B"}))

	got, err := VStack(a, b)
	require.NoError(t, err)
	assert.Equal(t, 3, got.NumRows())
	assert.Equal(t, []any{0.5, nil, nil}, got.Column("x").Values)
	assert.Equal(t, []any{nil, "A", "B"}, got.Column("cam").Values)

	_, err = VStack(a, MustNew(NewStringColumn("x", []string{"no"})))
	assert.Error(t, err)
}

func TestTableRowOps(t *testing.T) {
	tab := telEvents()
	assert.Equal(t, 2, tab.Slice(3, 99).NumRows())
	assert.Equal(t, 0, tab.Slice(4, 2).NumRows())

	f := tab.Filter(func(i int) bool { v, _ := tab.Column("tel_id").Int64(i); return v == 1 })
	assert.Equal(t, 2, f.NumRows())

	p := tab.WithPrefix("true", TelescopeEventKeys...)
	assert.True(t, p.HasColumn("true_hillas_length"))
	assert.True(t, p.HasColumn("tel_id"))

	_, err := New(NewInt64Column("a", []int64{1}), NewInt64Column("b", []int64{1, 2}))
	assert.Error(t, err)
	_, err = New(NewInt64Column("a", []int64{1}), NewInt64Column("a", []int64{2}))
	assert.Error(t, err)
}
