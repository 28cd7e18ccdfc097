package tableloader

import (
	"context"

	"github.com/banshee-data/cherenkov.pipe/internal/eventfile"
)

// Content reports which optional groups an event file holds.
type Content struct {
	Images         bool
	Parameters     bool
	TrueImages     bool
	TrueParameters bool
	Simulation     bool
	DL2            bool
}

// Probe inspects f without reading any rows.
func Probe(ctx context.Context, f *eventfile.File) (Content, error) {
	var c Content
	for _, g := range []struct {
		dst  *bool
		path string
	}{
		{&c.Images, eventfile.ImagesGroup},
		{&c.Parameters, eventfile.ParametersGroup},
		{&c.TrueImages, eventfile.TrueImagesGroup},
		{&c.TrueParameters, eventfile.TrueParametersGroup},
		{&c.DL2, eventfile.DL2SubarrayGeometry},
	} {
		ok, err := f.HasGroup(ctx, g.path)
		if err != nil {
			return Content{}, err
		}
		*g.dst = ok
	}
	ok, err := f.HasDataset(ctx, eventfile.SimulationShowerPath)
	if err != nil {
		return Content{}, err
	}
	c.Simulation = ok
	return c, nil
}

// Options returns loader options that load everything present.
func (c Content) Options() Options {
	return Options{
		LoadDL1Images:      c.Images,
		LoadDL1Parameters:  c.Parameters,
		LoadTrueImages:     c.TrueImages,
		LoadTrueParameters: c.TrueParameters,
		LoadSimulated:      c.Simulation,
		LoadDL2:            c.DL2,
	}
}
