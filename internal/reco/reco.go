// Package reco derives per telescope quantities from reconstructed shower
// geometry.
package reco

import (
	"fmt"
	"math"

	"github.com/banshee-data/cherenkov.pipe/internal/coordinates"
	"github.com/banshee-data/cherenkov.pipe/internal/instrument"
	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
	"github.com/banshee-data/cherenkov.pipe/internal/table"
)

// ShowerGeometry is a reconstructed shower axis: its direction and the
// point where it meets the ground.
type ShowerGeometry struct {
	Alt, Az      float64 // radians
	CoreX, CoreY float64 // m, Ground frame
}

// Column returns the name of a reconstruction output column, e.g.
// HillasReconstructor_alt.
func Column(algorithm, column string) string {
	return table.Prefixed(algorithm, column)
}

// ImpactDistance returns the distance of each telescope in ids to the
// shower axis, measured in the plane perpendicular to the axis.
func ImpactDistance(geom ShowerGeometry, sub *instrument.SubarrayDescription, ids []int) ([]float64, error) {
	pointing := coordinates.AltAz{Alt: geom.Alt, Az: geom.Az}
	tels, err := sub.GroundPositions(ids)
	if err != nil {
		return nil, err
	}
	telsTilted, err := coordinates.GroundToTilted(tels, pointing)
	if err != nil {
		return nil, err
	}
	core, err := coordinates.GroundToTilted(coordinates.GroundPoint(geom.CoreX, geom.CoreY, 0), pointing)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(ids))
	for i := range ids {
		out[i] = math.Hypot(telsTilted.X[i]-core.X[0], telsTilted.Y[i]-core.Y[0])
	}
	return out, nil
}

// AddImpactColumns appends <algorithm>_tel_impact_distance to telescope
// events carrying the algorithm's alt, az, core_x and core_y columns.
// Rows with missing or invalid geometry get null.
func AddImpactColumns(events *table.Table, algorithm string, sub *instrument.SubarrayDescription) error {
	names := make([]string, 4)
	for i, c := range []string{"alt", "az", "core_x", "core_y"} {
		names[i] = Column(algorithm, c)
		if !events.HasColumn(names[i]) {
			return pipeerr.WithMetadata(pipeerr.CodeValue, "missing reconstruction column",
				map[string]string{"column": names[i]})
		}
	}
	tels, err := events.Int64s("tel_id")
	if err != nil {
		return err
	}

	out := &table.Column{
		Name:   Column(algorithm, "tel_impact_distance"),
		Type:   table.Float64,
		Values: make([]any, events.NumRows()),
	}
	var vals [4]float64
	for row := range out.Values {
		ok := true
		for i, n := range names {
			vals[i], ok = events.Value(n, row).(float64)
			if !ok || math.IsNaN(vals[i]) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		d, err := ImpactDistance(ShowerGeometry{Alt: vals[0], Az: vals[1], CoreX: vals[2], CoreY: vals[3]},
			sub, []int{int(tels[row])})
		if err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
		out.Values[row] = d[0]
	}
	return events.AddColumn(out)
}
