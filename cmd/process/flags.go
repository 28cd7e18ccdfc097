package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/banshee-data/cherenkov.pipe/internal/config"
)

// parseArgs builds the effective config: file, then environment, then the
// flags that were given explicitly.
func parseArgs(args []string, out io.Writer) (*config.ProcessConfig, bool, error) {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	fs.SetOutput(out)

	var (
		configPath      = fs.String("config", "", "config file (.json, .yaml or .toml)")
		input           = fs.String("input", "", "input event file")
		output          = fs.String("output", "", "output event file, or a .parquet file")
		overwrite       = fs.Bool("overwrite", false, "replace an existing output file")
		writeParameters = fs.Bool("write-parameters", false, "compute and write DL1 image parameters")
		writeImages     = fs.Bool("write-images", false, "write DL1 images")
		maxEvents       = fs.Int("max-events", 0, "stop after this many subarray events (0 = all)")
		chunkSize       = fs.Int("chunk-size", config.DefaultChunkSize, "subarray events read per chunk")
		workers         = fs.Int("workers", config.DefaultWorkers, "chunks read concurrently")
		provenanceLog   = fs.String("provenance-log", config.DefaultProvenanceLog, "append provenance here (empty disables)")
		logLevel        = fs.String("log-level", "info", "debug, info, warn or error")
		computeImpact   = fs.Bool("compute-impact", false, "add telescope impact distances from DL2 geometry")
		reconstructor   = fs.String("reconstructor", config.DefaultReconstructor, "DL2 geometry algorithm used for impact distances")
		showVersion     = fs.Bool("version", false, "print version and exit")
	)
	fs.Usage = func() {
		fmt.Fprintln(out, "Usage: process --input=<file> --output=<file> [options]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}
	if fs.NArg() > 0 {
		return nil, false, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if *showVersion {
		return nil, true, nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, false, err
	}
	set := &config.ProcessConfig{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			set.Input = input
		case "output":
			set.Output = output
		case "overwrite":
			set.Overwrite = overwrite
		case "write-parameters":
			set.WriteParameters = writeParameters
		case "write-images":
			set.WriteImages = writeImages
		case "max-events":
			set.MaxEvents = maxEvents
		case "chunk-size":
			set.ChunkSize = chunkSize
		case "workers":
			set.Workers = workers
		case "provenance-log":
			set.ProvenanceLog = provenanceLog
		case "log-level":
			set.LogLevel = logLevel
		case "compute-impact":
			set.ComputeImpact = computeImpact
		case "reconstructor":
			set.Reconstructor = reconstructor
		}
	})
	cfg.Merge(set)
	return cfg, false, nil
}
