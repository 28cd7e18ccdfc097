package instrument

import (
	"fmt"
	"math"

	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
)

// GuessingKey identifies a telescope from simulation metadata. A zero
// NumMirrorTiles matches any tile count.
type GuessingKey struct {
	NPixels        int
	FocalLength    float64 // metres, at most two decimals
	NumMirrorTiles int
}

// GuessingResult names a telescope found by GuessTelescope.
type GuessingResult struct {
	Type       string
	Name       string
	CameraName string
	NMirrors   int
}

var telescopeNames = []struct {
	key    GuessingKey
	result GuessingResult
}{
	{GuessingKey{2048, 2.28, 0}, GuessingResult{"SST", "GCT", "CHEC", 2}},
	{GuessingKey{2368, 2.15, 0}, GuessingResult{"SST", "ASTRI", "ASTRICam", 2}},
	{GuessingKey{2048, 2.15, 0}, GuessingResult{"SST", "ASTRI", "CHEC", 2}},
	{GuessingKey{1296, 5.60, 0}, GuessingResult{"SST", "1M", "DigiCam", 1}},
	{GuessingKey{1764, 16.0, 0}, GuessingResult{"MST", "MST", "FlashCam", 1}},
	{GuessingKey{1855, 16.0, 0}, GuessingResult{"MST", "MST", "NectarCam", 1}},
	{GuessingKey{1855, 28.0, 0}, GuessingResult{"LST", "LST", "LSTCam", 1}},
	{GuessingKey{11328, 5.59, 0}, GuessingResult{"MST", "SCT", "SCTCam", 1}},
	// non-CTA telescopes
	{GuessingKey{1039, 16.97, 964}, GuessingResult{"LST", "MAGIC-1", "MAGICCam", 1}},
	{GuessingKey{1039, 16.97, 247}, GuessingResult{"LST", "MAGIC-2", "MAGICCam", 1}},
	{GuessingKey{1039, 17.0, 964}, GuessingResult{"LST", "MAGIC-1", "MAGICCam", 1}},
	{GuessingKey{1039, 17.0, 247}, GuessingResult{"LST", "MAGIC-2", "MAGICCam", 1}},
	{GuessingKey{960, 15.0, 0}, GuessingResult{"MST", "HESS-I", "HESS-I", 1}},
	{GuessingKey{2048, 36.0, 0}, GuessingResult{"LST", "HESS-II", "HESS-II", 1}},
	{GuessingKey{1440, 4.89, 0}, GuessingResult{"SST", "FACT", "FACT", 1}},
}

// lookupTree is keyed by pixel count, focal length in centimetres and
// mirror tile count.
type lookupTree map[int]map[int64]map[int]GuessingResult

var lookup = mustBuildLookup()

func mustBuildLookup() lookupTree {
	tree := lookupTree{}
	for _, e := range telescopeNames {
		byFocal, ok := tree[e.key.NPixels]
		if !ok {
			byFocal = map[int64]map[int]GuessingResult{}
			tree[e.key.NPixels] = byFocal
		}
		cm := centimetres(e.key.FocalLength)
		byTiles, ok := byFocal[cm]
		if !ok {
			byTiles = map[int]GuessingResult{}
			byFocal[cm] = byTiles
		}
		if other, dup := byTiles[e.key.NumMirrorTiles]; dup {
			panic(fmt.Sprintf("guessing keys are not unique: %+v: %+v, %+v", e.key, e.result, other))
		}
		byTiles[e.key.NumMirrorTiles] = e.result
	}
	return tree
}

func centimetres(m float64) int64 { return int64(math.Round(m * 100)) }

// GuessTelescope identifies a telescope by camera pixel count and focal
// length in metres, rounded to two decimals. numMirrorTiles disambiguates
// telescopes sharing both; when it does not match, the entry without a
// tile count is used.
func GuessTelescope(nPixels int, focalLength float64, numMirrorTiles int) (GuessingResult, error) {
	byTiles, ok := lookup[nPixels][centimetres(focalLength)]
	if ok {
		if r, ok := byTiles[numMirrorTiles]; ok {
			return r, nil
		}
		if r, ok := byTiles[0]; ok {
			return r, nil
		}
	}
	return GuessingResult{}, pipeerr.WithMetadata(pipeerr.CodeValue, "unknown telescope",
		map[string]string{"n_pixels": fmt.Sprint(nPixels), "focal_length": fmt.Sprintf("%.2f", focalLength)})
}

// UnknownTelescope builds a result for telescopes missing from the lookup.
// The size class follows the mirror diameter: below 8 m SST, below 16 m
// MST, LST otherwise.
func UnknownTelescope(mirrorArea float64, nPixels, nMirrors int) GuessingResult {
	diameter := 2 * math.Sqrt(mirrorArea/math.Pi)
	typ := "LST"
	switch {
	case diameter < 8:
		typ = "SST"
	case diameter < 16:
		typ = "MST"
	}
	return GuessingResult{
		Type:       typ,
		Name:       fmt.Sprintf("UNKNOWN-%.0fM2", mirrorArea),
		CameraName: fmt.Sprintf("UNKNOWN-%dPX", nPixels),
		NMirrors:   nMirrors,
	}
}
