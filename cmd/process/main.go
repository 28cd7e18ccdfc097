// Command process copies an event file to a new event file or Parquet file,
// optionally computing image parameters and telescope impact distances on
// the way.
//
// Usage:
//
//	process --input=gamma.sqlite --output=gamma_dl1b.sqlite --write-parameters
//
// Exit status is 0 on success, 1 on a processing error, 2 on bad
// configuration and 130 when interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
	"github.com/banshee-data/cherenkov.pipe/internal/tool"
	"github.com/banshee-data/cherenkov.pipe/internal/version"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr, tool.Options{}))
}

func run(ctx context.Context, args []string, stderr io.Writer, opts tool.Options) int {
	cfg, showVersion, err := parseArgs(args, stderr)
	switch {
	case errors.Is(err, flag.ErrHelp):
		return pipeerr.ExitOK
	case err != nil:
		fmt.Fprintf(stderr, "process: %v\n", err)
		return pipeerr.ExitConfiguration
	case showVersion:
		fmt.Fprintf(stderr, "process %s\n", version.String())
		return pipeerr.ExitOK
	}
	return tool.Run(ctx, newProcessor(cfg), opts)
}
