// Package testutil builds event files for tests.
//
// Fixture files follow the dataset layout the table loader reads, in
// either the per telescope id or per telescope type arrangement, with a
// small four telescope subarray and deterministic content.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/banshee-data/cherenkov.pipe/internal/eventfile"
	"github.com/banshee-data/cherenkov.pipe/internal/instrument"
)

// Dataset layouts of fixture files.
const (
	LayoutByID   = "by_id"
	LayoutByType = "by_type"
)

// DefaultAlgorithm names the reconstruction algorithm of DL2 fixtures.
const DefaultAlgorithm = "HillasReconstructor"

// NumPixels is the image length of fixture cameras.
const NumPixels = 8

// FixtureOptions selects what a fixture file contains. Subarray and
// telescope triggers are always written.
type FixtureOptions struct {
	Layout       string  // LayoutByID when empty
	ObsIDs       []int64 // written in this order, {1} when empty
	EventsPerObs int     // 6 when zero

	Images         bool
	Parameters     bool
	TrueImages     bool
	TrueParameters bool
	Simulation     bool
	DL2            bool
	Algorithm      string // DefaultAlgorithm when empty

	NoInstrument bool
}

// AllContent returns options with every optional group enabled.
func AllContent(layout string) FixtureOptions {
	return FixtureOptions{
		Layout:         layout,
		Images:         true,
		Parameters:     true,
		TrueImages:     true,
		TrueParameters: true,
		Simulation:     true,
		DL2:            true,
	}
}

// Subarray returns the fixture subarray: one LST, one NectarCam MST and
// two FlashCam MSTs.
func Subarray() *instrument.SubarrayDescription {
	s := instrument.NewSubarrayDescription("fixture")
	s.AddTelescope(1, instrument.GuessTelescopeDescription(1855, 28.0, 386, 198), [3]float64{0, 0, 1})
	s.AddTelescope(8, instrument.GuessTelescopeDescription(1855, 16.0, 106, 86), [3]float64{120, 40, 0})
	s.AddTelescope(25, instrument.GuessTelescopeDescription(1764, 16.0, 106, 86), [3]float64{-80, 110, 2})
	s.AddTelescope(130, instrument.GuessTelescopeDescription(1764, 16.0, 106, 86), [3]float64{-60, -150, -1})
	return s
}

// Triggered returns the telescopes of an event in trigger order. Odd
// events list telescopes in descending id order.
func Triggered(eventID int64, ids []int) []int {
	var out []int
	for i, id := range ids {
		if (int(eventID)+i)%3 != 0 {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		out = append(out, ids[0])
	}
	if eventID%2 == 1 {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// EventFile writes a fixture into a temporary directory and returns its
// path.
func EventFile(t testing.TB, opts FixtureOptions) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), fmt.Sprintf("fixture_%s.sqlite", layoutOf(opts)))
	if err := WriteEventFile(context.Background(), path, opts); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func layoutOf(opts FixtureOptions) string {
	if opts.Layout == "" {
		return LayoutByID
	}
	return opts.Layout
}

// WriteEventFile writes a fixture file to path, replacing any file there.
func WriteEventFile(ctx context.Context, path string, opts FixtureOptions) error {
	f, err := eventfile.Create(path, true)
	if err != nil {
		return err
	}
	defer f.Close()

	sub := Subarray()
	if !opts.NoInstrument {
		if err := sub.Write(ctx, f); err != nil {
			return err
		}
	}
	b := newBuilder(sub, opts)
	b.build()
	for _, ds := range b.datasets() {
		if err := f.WriteTable(ctx, ds.path, ds.table); err != nil {
			return fmt.Errorf("write %s: %w", ds.path, err)
		}
	}
	return f.SetAttribute(ctx, eventfile.AttrDataLevels, b.dataLevels())
}
