package instrument

import (
	"context"
	"fmt"

	"github.com/banshee-data/cherenkov.pipe/internal/eventfile"
	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
	"github.com/banshee-data/cherenkov.pipe/internal/table"
)

// Dataset paths of the instrument configuration tables.
const (
	LayoutPath = "/configuration/instrument/subarray/layout"
	OpticsPath = "/configuration/instrument/telescope/optics"
	CameraPath = "/configuration/instrument/telescope/camera"
)

// Write stores the subarray in the configuration tables of f. Optics and
// cameras shared by several telescopes are stored once.
func (s *SubarrayDescription) Write(ctx context.Context, f *eventfile.File) error {
	opticsIdx := map[OpticsDescription]int64{}
	cameraIdx := map[CameraDescription]int64{}
	var optics []OpticsDescription
	var cameras []CameraDescription

	layout := []*table.Column{
		{Name: "tel_id", Type: table.Int64, Values: []any{}},
		{Name: "pos_x", Type: table.Float64, Values: []any{}},
		{Name: "pos_y", Type: table.Float64, Values: []any{}},
		{Name: "pos_z", Type: table.Float64, Values: []any{}},
		{Name: "name", Type: table.String, Values: []any{}},
		{Name: "type", Type: table.String, Values: []any{}},
		{Name: "optics_index", Type: table.Int64, Values: []any{}},
		{Name: "camera_index", Type: table.Int64, Values: []any{}},
	}
	for _, id := range s.TelIDs() {
		t, p := s.Tels[id], s.Positions[id]
		oi, ok := opticsIdx[t.Optics]
		if !ok {
			oi = int64(len(optics))
			opticsIdx[t.Optics] = oi
			optics = append(optics, t.Optics)
		}
		ci, ok := cameraIdx[t.Camera]
		if !ok {
			ci = int64(len(cameras))
			cameraIdx[t.Camera] = ci
			cameras = append(cameras, t.Camera)
		}
		row := []any{int64(id), p[0], p[1], p[2], t.Name, t.Type, oi, ci}
		for i, v := range row {
			layout[i].Values = append(layout[i].Values, v)
		}
	}

	o := []*table.Column{
		{Name: "optics_index", Type: table.Int64, Values: []any{}},
		{Name: "optics_name", Type: table.String, Values: []any{}},
		{Name: "size_type", Type: table.String, Values: []any{}},
		{Name: "equivalent_focal_length", Type: table.Float64, Values: []any{}},
		{Name: "mirror_area", Type: table.Float64, Values: []any{}},
		{Name: "num_mirror_tiles", Type: table.Int64, Values: []any{}},
	}
	for i, d := range optics {
		row := []any{int64(i), d.Name, d.SizeType, d.EquivalentFocalLength, d.MirrorArea, int64(d.NumMirrorTiles)}
		for j, v := range row {
			o[j].Values = append(o[j].Values, v)
		}
	}

	c := []*table.Column{
		{Name: "camera_index", Type: table.Int64, Values: []any{}},
		{Name: "camera_name", Type: table.String, Values: []any{}},
		{Name: "n_pixels", Type: table.Int64, Values: []any{}},
		{Name: "geometry_name", Type: table.String, Values: []any{}},
	}
	for i, d := range cameras {
		row := []any{int64(i), d.Name, int64(d.NPixels), d.GeometryName}
		for j, v := range row {
			c[j].Values = append(c[j].Values, v)
		}
	}

	for _, w := range []struct {
		path string
		cols []*table.Column
	}{{LayoutPath, layout}, {OpticsPath, o}, {CameraPath, c}} {
		t, err := table.New(w.cols...)
		if err != nil {
			return err
		}
		if err := f.WriteTable(ctx, w.path, t); err != nil {
			return fmt.Errorf("write instrument: %w", err)
		}
	}
	return f.SetAttribute(ctx, eventfile.AttrSubarrayName, s.Name)
}

// Read loads the subarray description stored in f.
func Read(ctx context.Context, f *eventfile.File) (*SubarrayDescription, error) {
	layout, err := f.ReadTable(ctx, LayoutPath, eventfile.ReadOptions{})
	if err != nil {
		return nil, fmt.Errorf("read instrument: %w", err)
	}
	if layout.NumRows() == 0 {
		return nil, pipeerr.WithMetadata(pipeerr.CodeValue, "file has no instrument description",
			map[string]string{"file": f.Path()})
	}
	opticsTab, err := f.ReadTable(ctx, OpticsPath, eventfile.ReadOptions{})
	if err != nil {
		return nil, fmt.Errorf("read instrument: %w", err)
	}
	cameraTab, err := f.ReadTable(ctx, CameraPath, eventfile.ReadOptions{})
	if err != nil {
		return nil, fmt.Errorf("read instrument: %w", err)
	}

	optics := map[int64]OpticsDescription{}
	for i := 0; i < opticsTab.NumRows(); i++ {
		optics[int64Of(opticsTab, "optics_index", i)] = OpticsDescription{
			Name:                  stringOf(opticsTab, "optics_name", i),
			SizeType:              stringOf(opticsTab, "size_type", i),
			EquivalentFocalLength: floatOf(opticsTab, "equivalent_focal_length", i),
			MirrorArea:            floatOf(opticsTab, "mirror_area", i),
			NumMirrorTiles:        int(int64Of(opticsTab, "num_mirror_tiles", i)),
		}
	}
	cameras := map[int64]CameraDescription{}
	for i := 0; i < cameraTab.NumRows(); i++ {
		cameras[int64Of(cameraTab, "camera_index", i)] = CameraDescription{
			Name:         stringOf(cameraTab, "camera_name", i),
			NPixels:      int(int64Of(cameraTab, "n_pixels", i)),
			GeometryName: stringOf(cameraTab, "geometry_name", i),
		}
	}

	name, _, err := f.Attribute(ctx, eventfile.AttrSubarrayName)
	if err != nil {
		return nil, err
	}
	s := NewSubarrayDescription(name)
	for i := 0; i < layout.NumRows(); i++ {
		id := int(int64Of(layout, "tel_id", i))
		oi, ci := int64Of(layout, "optics_index", i), int64Of(layout, "camera_index", i)
		o, ok := optics[oi]
		if !ok {
			return nil, pipeerr.Newf(pipeerr.CodeValue, "telescope %d references missing optics %d", id, oi)
		}
		c, ok := cameras[ci]
		if !ok {
			return nil, pipeerr.Newf(pipeerr.CodeValue, "telescope %d references missing camera %d", id, ci)
		}
		s.AddTelescope(id, TelescopeDescription{
			Type:   stringOf(layout, "type", i),
			Name:   stringOf(layout, "name", i),
			Optics: o,
			Camera: c,
		}, [3]float64{floatOf(layout, "pos_x", i), floatOf(layout, "pos_y", i), floatOf(layout, "pos_z", i)})
	}
	return s, nil
}

func int64Of(t *table.Table, col string, row int) int64 {
	v, _ := t.Value(col, row).(int64)
	return v
}

func floatOf(t *table.Table, col string, row int) float64 {
	v, _ := t.Value(col, row).(float64)
	return v
}

func stringOf(t *table.Table, col string, row int) string {
	v, _ := t.Value(col, row).(string)
	return v
}
