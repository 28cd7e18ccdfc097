// Command tableinfo prints the layout of an event file: the detected
// telescope dataset structure, the instrument, every dataset with its row
// count and the file attributes. Parquet files get their columns and rows.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/banshee-data/cherenkov.pipe/internal/eventfile"
	"github.com/banshee-data/cherenkov.pipe/internal/export"
	"github.com/banshee-data/cherenkov.pipe/internal/instrument"
	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
	"github.com/banshee-data/cherenkov.pipe/internal/tableloader"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tableinfo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	schema := fs.Bool("schema", false, "also print the columns of every dataset")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: tableinfo [--schema] <file>...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return pipeerr.ExitOK
		}
		return pipeerr.ExitConfiguration
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return pipeerr.ExitConfiguration
	}

	status := pipeerr.ExitOK
	for _, path := range fs.Args() {
		var err error
		if strings.EqualFold(filepath.Ext(path), ".parquet") {
			err = describeParquet(ctx, stdout, path)
		} else {
			err = describe(ctx, stdout, path, *schema)
		}
		if err != nil {
			fmt.Fprintf(stderr, "tableinfo: %s: %v\n", path, err)
			status = max(status, pipeerr.ExitCode(err))
		}
	}
	return status
}

func describe(ctx context.Context, w io.Writer, path string, withSchema bool) error {
	f, err := eventfile.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(w, "%s%s\n", path, sizeSuffix(path))
	if v, err := f.SchemaVersion(); err == nil {
		fmt.Fprintf(w, "  schema version: %d\n", v)
	}
	structure, err := tableloader.DetectStructure(ctx, f)
	if err != nil {
		fmt.Fprintf(w, "  structure: unknown (%v)\n", err)
	} else {
		fmt.Fprintf(w, "  structure: %s\n", structure)
	}

	if sub, err := instrument.Read(ctx, f); err == nil {
		fmt.Fprintf(w, "  subarray: %s, %d telescopes\n", sub.Name, sub.NumTels())
		for _, typ := range sub.TelescopeTypes() {
			fmt.Fprintf(w, "    %-28s %v\n", typ, sub.TelIDsForType(typ))
		}
	} else {
		fmt.Fprintf(w, "  subarray: none (%v)\n", err)
	}

	attrs, err := f.Attributes(ctx)
	if err != nil {
		return err
	}
	if len(attrs) > 0 {
		fmt.Fprintln(w, "  attributes:")
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "    %s = %s\n", k, attrs[k])
		}
	}

	datasets, err := f.Datasets(ctx, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  datasets: %d\n", len(datasets))
	for _, ds := range datasets {
		n, err := f.NumRows(ctx, ds)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "    %-60s %10s rows\n", ds, humanize.Comma(int64(n)))
		if !withSchema {
			continue
		}
		cols, err := f.Schema(ctx, ds)
		if err != nil {
			return err
		}
		for _, c := range cols {
			fmt.Fprintf(w, "      %-30s %s\n", c.Name, c.Type)
		}
	}
	return nil
}

func describeParquet(ctx context.Context, w io.Writer, path string) error {
	t, err := export.ReadParquet(ctx, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s%s\n", path, sizeSuffix(path))
	fmt.Fprintf(w, "  rows: %s\n", humanize.Comma(int64(t.NumRows())))
	fmt.Fprintf(w, "  columns: %d\n", t.NumColumns())
	for _, c := range t.Columns() {
		fmt.Fprintf(w, "    %-30s %s\n", c.Name, c.Type)
	}
	return nil
}

func sizeSuffix(path string) string {
	fi, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf(" (%s)", humanize.Bytes(uint64(fi.Size())))
}
