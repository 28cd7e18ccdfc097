package instrument

import (
	"fmt"
	"maps"
	"slices"

	"github.com/banshee-data/cherenkov.pipe/internal/coordinates"
	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
	"github.com/banshee-data/cherenkov.pipe/internal/table"
)

// OpticsDescription describes a telescope's optical structure.
type OpticsDescription struct {
	Name                  string
	SizeType              string
	EquivalentFocalLength float64 // m
	MirrorArea            float64 // m^2
	NumMirrorTiles        int
}

// CameraDescription describes a telescope camera.
type CameraDescription struct {
	Name         string
	NPixels      int
	GeometryName string
}

// TelescopeDescription combines optics and camera.
type TelescopeDescription struct {
	Type   string
	Name   string
	Optics OpticsDescription
	Camera CameraDescription
}

// String returns the telescope type name, e.g. MST_MST_FlashCam.
func (t TelescopeDescription) String() string {
	return fmt.Sprintf("%s_%s_%s", t.Type, t.Name, t.Camera.Name)
}

// GuessTelescopeDescription builds a description from simulation
// metadata, falling back to UnknownTelescope when the lookup fails.
func GuessTelescopeDescription(nPixels int, focalLength, mirrorArea float64, numMirrorTiles int) TelescopeDescription {
	g, err := GuessTelescope(nPixels, focalLength, numMirrorTiles)
	if err != nil {
		g = UnknownTelescope(mirrorArea, nPixels, numMirrorTiles)
	}
	return TelescopeDescription{
		Type: g.Type,
		Name: g.Name,
		Optics: OpticsDescription{
			Name:                  g.Name,
			SizeType:              g.Type,
			EquivalentFocalLength: focalLength,
			MirrorArea:            mirrorArea,
			NumMirrorTiles:        numMirrorTiles,
		},
		Camera: CameraDescription{Name: g.CameraName, NPixels: nPixels, GeometryName: g.CameraName},
	}
}

// SubarrayDescription is the set of telescopes of an array and their
// positions in the Ground frame.
type SubarrayDescription struct {
	Name      string
	Tels      map[int]TelescopeDescription
	Positions map[int][3]float64
}

// NewSubarrayDescription returns an empty subarray.
func NewSubarrayDescription(name string) *SubarrayDescription {
	return &SubarrayDescription{
		Name:      name,
		Tels:      map[int]TelescopeDescription{},
		Positions: map[int][3]float64{},
	}
}

// AddTelescope registers a telescope at a ground position.
func (s *SubarrayDescription) AddTelescope(id int, tel TelescopeDescription, pos [3]float64) {
	s.Tels[id] = tel
	s.Positions[id] = pos
}

// NumTels returns the number of telescopes.
func (s *SubarrayDescription) NumTels() int { return len(s.Tels) }

// TelIDs returns the telescope ids in ascending order.
func (s *SubarrayDescription) TelIDs() []int {
	return slices.Sorted(maps.Keys(s.Tels))
}

// TelIndex returns the position of id in TelIDs, -1 when unknown. It is
// the index into per-event telescope arrays such as tels_with_trigger.
func (s *SubarrayDescription) TelIndex(id int) int {
	i, ok := slices.BinarySearch(s.TelIDs(), id)
	if !ok {
		return -1
	}
	return i
}

// TelescopeTypes returns the distinct telescope type names, sorted.
func (s *SubarrayDescription) TelescopeTypes() []string {
	seen := map[string]struct{}{}
	for _, t := range s.Tels {
		seen[t.String()] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}

// HasType reports whether a telescope type name is part of the subarray.
func (s *SubarrayDescription) HasType(name string) bool {
	return slices.Contains(s.TelescopeTypes(), name)
}

// TelIDsForType returns the sorted ids of telescopes of the given type.
func (s *SubarrayDescription) TelIDsForType(name string) []int {
	var ids []int
	for _, id := range s.TelIDs() {
		if s.Tels[id].String() == name {
			ids = append(ids, id)
		}
	}
	return ids
}

// GroundPositions returns the positions of ids as a Ground point cloud.
func (s *SubarrayDescription) GroundPositions(ids []int) (coordinates.PointCloud, error) {
	x := make([]float64, len(ids))
	y := make([]float64, len(ids))
	z := make([]float64, len(ids))
	for i, id := range ids {
		p, ok := s.Positions[id]
		if !ok {
			return coordinates.PointCloud{}, pipeerr.Newf(pipeerr.CodeValue, "no position for telescope %d", id)
		}
		x[i], y[i], z[i] = p[0], p[1], p[2]
	}
	return coordinates.NewPointCloud(coordinates.Ground, x, y, z)
}

// TelescopeTable returns one row per telescope with the instrument
// columns joined onto telescope events.
func (s *SubarrayDescription) TelescopeTable() *table.Table {
	cols := []*table.Column{
		{Name: "tel_id", Type: table.Int64},
		{Name: "tel_description", Type: table.String},
		{Name: "name", Type: table.String},
		{Name: "type", Type: table.String},
		{Name: "optics_name", Type: table.String},
		{Name: "camera_name", Type: table.String},
		{Name: "camera_geometry", Type: table.String},
		{Name: "n_pixels", Type: table.Int64},
		{Name: "equivalent_focal_length", Type: table.Float64},
		{Name: "mirror_area", Type: table.Float64},
		{Name: "num_mirror_tiles", Type: table.Int64},
		{Name: "pos_x", Type: table.Float64},
		{Name: "pos_y", Type: table.Float64},
		{Name: "pos_z", Type: table.Float64},
	}
	for _, id := range s.TelIDs() {
		t, p := s.Tels[id], s.Positions[id]
		row := []any{
			int64(id), t.String(), t.Name, t.Type,
			t.Optics.Name, t.Camera.Name, t.Camera.GeometryName, int64(t.Camera.NPixels),
			t.Optics.EquivalentFocalLength, t.Optics.MirrorArea, int64(t.Optics.NumMirrorTiles),
			p[0], p[1], p[2],
		}
		for i, v := range row {
			cols[i].Values = append(cols[i].Values, v)
		}
	}
	for _, c := range cols {
		if c.Values == nil {
			c.Values = []any{}
		}
	}
	return table.MustNew(cols...)
}
