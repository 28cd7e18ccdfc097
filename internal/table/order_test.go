package table

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
)

func events(obs, evt []int64) *Table {
	return MustNew(NewInt64Column("obs_id", obs), NewInt64Column("event_id", evt))
}

func TestCheckEqualArrayEventOrder(t *testing.T) {
	base := events([]int64{1, 1, 2, 2, 3}, []int64{1, 2, 1, 2, 1})
	shuffled := events([]int64{1, 1, 3, 2, 2}, []int64{1, 2, 1, 1, 2})

	tests := []struct {
		name    string
		a, b    *Table
		wantMsg string
	}{
		{"different numbers", base, events([]int64{1, 1, 2, 2}, []int64{1, 2, 1, 2}), "Tables have different numbers of events"},
		{"different events", base, events([]int64{1, 1, 2, 2, 4}, []int64{1, 2, 1, 2, 1}), "Tables have different subarray events"},
		{"different order", shuffled, base, "Tables have subarray events in different order"},
		{"identical", shuffled, shuffled, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckEqualArrayEventOrder(tt.a, tt.b)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.True(t, errors.Is(err, pipeerr.ErrEventSetMismatch))
		})
	}
}

func TestCheckEqualArrayEventOrderMixedGranularity(t *testing.T) {
	sub := events([]int64{2, 1}, []int64{5, 3})
	tel := MustNew(
		NewInt64Column("obs_id", []int64{2, 2, 1}),
		NewInt64Column("event_id", []int64{5, 5, 3}),
		NewInt64Column("tel_id", []int64{1, 4, 1}),
	)
	assert.NoError(t, CheckEqualArrayEventOrder(sub, tel))
}

func TestCheckEqualArrayEventOrderMissingKey(t *testing.T) {
	bad := MustNew(NewInt64Column("obs_id", []int64{1}))
	err := CheckEqualArrayEventOrder(bad, bad)
	assert.ErrorIs(t, err, pipeerr.ErrKeyMismatch)
}

func TestOrderBy(t *testing.T) {
	ref := events([]int64{3, 1, 2}, []int64{1, 1, 1})
	tel := MustNew(
		NewInt64Column("obs_id", []int64{1, 1, 2, 3, 3, 9}),
		NewInt64Column("event_id", []int64{1, 1, 1, 1, 1, 1}),
		NewInt64Column("tel_id", []int64{5, 2, 7, 4, 1, 1}),
	)
	got, err := OrderBy(tel, ref, SubarrayEventKeys)
	require.NoError(t, err)

	obs, _ := got.Int64s("obs_id")
	tels, _ := got.Int64s("tel_id")
	assert.Equal(t, []int64{3, 3, 1, 1, 2}, obs)
	assert.Equal(t, []int64{4, 1, 5, 2, 7}, tels)
	assert.NoError(t, CheckEqualArrayEventOrder(ref, got))
}
