package reco

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cherenkov.pipe/internal/coordinates"
	"github.com/banshee-data/cherenkov.pipe/internal/instrument"
	"github.com/banshee-data/cherenkov.pipe/internal/table"
	"github.com/banshee-data/cherenkov.pipe/internal/testutil"
)

func TestImpactDistanceZenith(t *testing.T) {
	sub := testutil.Subarray()
	d, err := ImpactDistance(ShowerGeometry{Alt: math.Pi / 2, Az: 0.3}, sub, []int{1, 8})
	require.NoError(t, err)
	assert.InDelta(t, 0, d[0], 1e-9)
	assert.InDelta(t, math.Hypot(120, 40), d[1], 1e-9)
}

func TestImpactDistanceOnAxis(t *testing.T) {
	alt, az := coordinates.Deg(63), coordinates.Deg(211)
	dir := coordinates.AltAzToRightHandedCartesian(alt, az)
	sub := instrument.NewSubarrayDescription("axis")
	tel := instrument.GuessTelescopeDescription(1764, 16, 106, 0)
	sub.AddTelescope(1, tel, [3]float64{30 + 500*dir[0], -20 + 500*dir[1], 500 * dir[2]})
	sub.AddTelescope(2, tel, [3]float64{30, -20, 0})

	d, err := ImpactDistance(ShowerGeometry{Alt: alt, Az: az, CoreX: 30, CoreY: -20}, sub, []int{1, 2})
	require.NoError(t, err)
	assert.InDelta(t, 0, d[0], 1e-9)
	assert.InDelta(t, 0, d[1], 1e-9)

	_, err = ImpactDistance(ShowerGeometry{Alt: alt}, sub, []int{3})
	assert.Error(t, err)
}

func TestAddImpactColumns(t *testing.T) {
	sub := testutil.Subarray()
	events := table.MustNew(
		table.NewInt64Column("tel_id", []int64{8, 1, 25}),
		table.NewFloat64Column(Column("HillasReconstructor", "alt"), []float64{math.Pi / 2, math.Pi / 2, math.NaN()}),
		table.NewFloat64Column("HillasReconstructor_az", []float64{0, 0, 0}),
		table.NewFloat64Column("HillasReconstructor_core_x", []float64{0, 3, 0}),
		table.NewFloat64Column("HillasReconstructor_core_y", []float64{0, 4, 0}),
	)
	require.NoError(t, AddImpactColumns(events, "HillasReconstructor", sub))

	got := events.Column("HillasReconstructor_tel_impact_distance").Values
	assert.InDelta(t, math.Hypot(120, 40), got[0], 1e-9)
	assert.InDelta(t, 5, got[1], 1e-9)
	assert.Nil(t, got[2])

	assert.Error(t, AddImpactColumns(events, "Other", sub))
}
