package eventfile

import (
	"fmt"
	"strconv"
	"strings"
)

// Groups and datasets of the event file layout. Telescope groups hold one
// dataset per telescope id (tel_001) or per telescope type
// (MST_MST_FlashCam).
const (
	SubarrayTriggerPath  = "/dl1/event/subarray/trigger"
	TelescopeTriggerPath = "/dl1/event/telescope/trigger"
	ParametersGroup      = "/dl1/event/telescope/parameters"
	ImagesGroup          = "/dl1/event/telescope/images"
	SimulationShowerPath = "/simulation/event/subarray/shower"
	TrueImagesGroup      = "/simulation/event/telescope/images"
	TrueParametersGroup  = "/simulation/event/telescope/parameters"
	TrueImpactGroup      = "/simulation/event/telescope/impact"
	DL2SubarrayGeometry  = "/dl2/event/subarray/geometry"
	DL2TelescopeGeometry = "/dl2/event/telescope/geometry"
	ConfigurationGroup   = "/configuration"
)

// TelDatasetName returns the per telescope dataset name of id.
func TelDatasetName(id int) string { return fmt.Sprintf("tel_%03d", id) }

// ParseTelDatasetName returns the telescope id of a per telescope
// dataset name.
func ParseTelDatasetName(name string) (int, bool) {
	digits, ok := strings.CutPrefix(name, "tel_")
	if !ok || digits == "" {
		return 0, false
	}
	id, err := strconv.Atoi(digits)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// Join builds a dataset path from a group and child names.
func Join(group string, names ...string) string {
	return strings.TrimSuffix(group, "/") + "/" + strings.Join(names, "/")
}
