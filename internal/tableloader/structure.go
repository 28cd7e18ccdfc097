package tableloader

import (
	"context"
	"errors"

	"github.com/banshee-data/cherenkov.pipe/internal/eventfile"
	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
)

// Structure is the arrangement of telescope datasets in a file.
type Structure int

const (
	// ByID stores one dataset per telescope, named tel_NNN.
	ByID Structure = iota + 1
	// ByType stores one dataset per telescope type, e.g. MST_MST_FlashCam.
	ByType
)

func (s Structure) String() string {
	switch s {
	case ByID:
		return "by_id"
	case ByType:
		return "by_type"
	}
	return "unknown"
}

// errNoTelescopeTables marks files without telescope level datasets.
var errNoTelescopeTables = errors.New("no telescope tables")

// structureGroups are inspected in order; the first one present decides.
var structureGroups = []string{
	eventfile.ParametersGroup,
	eventfile.ImagesGroup,
	eventfile.TrueImagesGroup,
	eventfile.TrueParametersGroup,
}

// DetectStructure inspects the telescope groups of f.
func DetectStructure(ctx context.Context, f *eventfile.File) (Structure, error) {
	groups := append([]string{}, structureGroups...)
	algos, err := f.Children(ctx, eventfile.DL2TelescopeGeometry)
	if err != nil {
		return 0, err
	}
	for _, a := range algos {
		groups = append(groups, eventfile.Join(eventfile.DL2TelescopeGeometry, a))
	}

	for _, g := range groups {
		children, err := f.Children(ctx, g)
		if err != nil {
			return 0, err
		}
		if len(children) == 0 {
			continue
		}
		s, err := classify(children)
		if err != nil {
			return 0, pipeerr.WithMetadata(pipeerr.CodeStructure, err.Error(),
				map[string]string{"group": g, "file": f.Path()})
		}
		return s, nil
	}
	return 0, pipeerr.Wrap(pipeerr.CodeStructure, f.Path(), errNoTelescopeTables)
}

// classify decides the structure from the dataset names of one group.
func classify(children []string) (Structure, error) {
	var byID, byType bool
	for _, c := range children {
		if _, ok := eventfile.ParseTelDatasetName(c); ok {
			byID = true
		} else {
			byType = true
		}
	}
	switch {
	case byID && byType:
		return 0, errors.New("ambiguous telescope table structure")
	case byID:
		return ByID, nil
	case byType:
		return ByType, nil
	}
	return 0, errNoTelescopeTables
}
