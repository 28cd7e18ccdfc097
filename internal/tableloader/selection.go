package tableloader

import (
	"fmt"
	"slices"

	"github.com/banshee-data/cherenkov.pipe/internal/eventfile"
	"github.com/banshee-data/cherenkov.pipe/internal/instrument"
	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
	"github.com/banshee-data/cherenkov.pipe/internal/table"
)

// TelescopeSelection restricts telescope reads by id and by type name. The
// zero value selects every telescope.
type TelescopeSelection struct {
	IDs   []int
	Types []string
}

// AllTelescopes selects every telescope of the subarray.
func AllTelescopes() TelescopeSelection { return TelescopeSelection{} }

// Tels selects telescopes by id.
func Tels(ids ...int) TelescopeSelection { return TelescopeSelection{IDs: ids} }

// Types selects telescopes by type name, e.g. "MST_MST_FlashCam".
func Types(names ...string) TelescopeSelection { return TelescopeSelection{Types: names} }

// IsAll reports whether the selection is unrestricted.
func (s TelescopeSelection) IsAll() bool { return len(s.IDs) == 0 && len(s.Types) == 0 }

// Resolve returns the sorted telescope ids selected from sub. Type names
// are expanded through the subarray description.
func (s TelescopeSelection) Resolve(sub *instrument.SubarrayDescription) ([]int, error) {
	if s.IsAll() {
		return sub.TelIDs(), nil
	}
	var ids []int
	for _, id := range s.IDs {
		if _, ok := sub.Tels[id]; !ok {
			return nil, pipeerr.WithMetadata(pipeerr.CodeValue, "telescope not in subarray",
				map[string]string{"tel_id": fmt.Sprint(id)})
		}
		ids = append(ids, id)
	}
	for _, name := range s.Types {
		if !sub.HasType(name) {
			return nil, pipeerr.WithMetadata(pipeerr.CodeValue, "telescope type not in subarray",
				map[string]string{"type": name})
		}
		ids = append(ids, sub.TelIDsForType(name)...)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func (s TelescopeSelection) String() string {
	if s.IsAll() {
		return "all telescopes"
	}
	return fmt.Sprintf("tels %v types %v", s.IDs, s.Types)
}

func selectionTable(ids []int) *table.Table {
	v := make([]int64, len(ids))
	for i, id := range ids {
		v[i] = int64(id)
	}
	return table.MustNew(table.NewInt64Column("tel_id", v))
}

// datasetNames lists the per telescope dataset names holding ids.
func datasetNames(s Structure, sub *instrument.SubarrayDescription, ids []int) []string {
	var names []string
	switch s {
	case ByID:
		for _, id := range ids {
			names = append(names, eventfile.TelDatasetName(id))
		}
	case ByType:
		for _, id := range ids {
			if n := sub.Tels[id].String(); !slices.Contains(names, n) {
				names = append(names, n)
			}
		}
		slices.Sort(names)
	}
	return names
}
