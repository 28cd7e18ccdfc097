package main

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/cherenkov.pipe/internal/table"
)

// Pixels below this charge are dropped before computing parameters.
const cleaningThreshold = 5.0

var parameterColumns = []string{
	"hillas_intensity",
	"morphology_n_pixels",
	"peak_time_mean",
	"peak_time_std",
}

// addImageParameters computes simple per image summaries from the image and
// peak_time columns. Images with no surviving pixel get nulls.
func addImageParameters(events *table.Table) error {
	n := events.NumRows()
	out := make([]*table.Column, len(parameterColumns))
	for i, name := range parameterColumns {
		typ := table.Float64
		if name == "morphology_n_pixels" {
			typ = table.Int64
		}
		out[i] = &table.Column{Name: name, Type: typ, Values: make([]any, n)}
	}

	for row := 0; row < n; row++ {
		image, ok := events.Value("image", row).([]float32)
		if !ok {
			continue
		}
		peak, _ := events.Value("peak_time", row).([]float32)

		var charge, times []float64
		for i, v := range image {
			if float64(v) < cleaningThreshold {
				continue
			}
			charge = append(charge, float64(v))
			if i < len(peak) {
				times = append(times, float64(peak[i]))
			}
		}
		if len(charge) == 0 {
			continue
		}
		out[0].Values[row] = floats.Sum(charge)
		out[1].Values[row] = int64(len(charge))
		if len(times) == len(charge) {
			mean, std := stat.MeanStdDev(times, charge)
			out[2].Values[row] = mean
			if !math.IsNaN(std) {
				out[3].Values[row] = std
			}
		}
	}

	for _, c := range out {
		if err := events.AddColumn(c); err != nil {
			return err
		}
	}
	return nil
}
