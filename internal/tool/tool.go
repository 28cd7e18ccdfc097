// Package tool runs command line tools with shared bookkeeping: signal
// handling, tracing, provenance and exit status.
package tool

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/banshee-data/cherenkov.pipe/internal/fsutil"
	"github.com/banshee-data/cherenkov.pipe/internal/monitoring"
	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
	"github.com/banshee-data/cherenkov.pipe/internal/provenance"
	"github.com/banshee-data/cherenkov.pipe/internal/telemetry"
)

// Tool is a unit of work run by Run. Setup validates configuration and
// opens inputs; any error it returns is treated as a configuration error.
// Start does the work and Finish releases resources. Finish is called
// whenever Setup succeeded.
type Tool interface {
	Name() string
	Setup(ctx context.Context, prov *provenance.Tracker) error
	Start(ctx context.Context) error
	Finish(ctx context.Context) error
}

// ProvenanceLogger is implemented by tools that want their provenance
// appended to a log file. It is consulted after Setup.
type ProvenanceLogger interface {
	ProvenanceLog() string
}

// Options tune Run. The zero value is usable.
type Options struct {
	// Tracker records the run; a new one is made when nil.
	Tracker *provenance.Tracker
	// NoSignals disables SIGINT/SIGTERM handling, for tests.
	NoSignals bool
	// NoTelemetry skips OpenTelemetry setup.
	NoTelemetry bool
}

// Run executes t and returns the process exit status: 0 on success, 2 for
// configuration errors, 130 when interrupted and 1 for any other failure.
func Run(ctx context.Context, t Tool, opts Options) int {
	if !opts.NoSignals {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}
	if !opts.NoTelemetry {
		shutdown, err := telemetry.Setup(ctx, t.Name())
		if err != nil {
			monitoring.Warnf("telemetry disabled: %v", err)
		}
		defer shutdown(context.Background())
	}
	prov := opts.Tracker
	if prov == nil {
		prov = provenance.New()
	}

	var setupDone bool
	err := prov.Activity(ctx, t.Name(), func(ctx context.Context) error {
		monitoring.Infof("Starting: %s", t.Name())
		if err := t.Setup(ctx, prov); err != nil {
			if pipeerr.CodeOf(err) == pipeerr.CodeUnknown {
				err = pipeerr.Wrap(pipeerr.CodeConfiguration, "setup failed", err)
			}
			return err
		}
		setupDone = true
		runErr := t.Start(ctx)
		if ferr := t.Finish(context.WithoutCancel(ctx)); ferr != nil && runErr == nil {
			runErr = ferr
		}
		if runErr == nil {
			monitoring.Infof("Finished: %s", t.Name())
		}
		return runErr
	})

	status := exitStatus(ctx, err)
	switch status {
	case pipeerr.ExitOK:
	case pipeerr.ExitConfiguration:
		monitoring.Errorf("%v. Use --help for more info", err)
	case pipeerr.ExitInterrupted:
		monitoring.Warnf("%s was interrupted", t.Name())
	default:
		monitoring.Errorf("Caught unexpected error: %v", err)
	}

	if pl, ok := t.(ProvenanceLogger); ok && setupDone {
		writeProvenance(prov, pl.ProvenanceLog())
	}
	return status
}

func exitStatus(ctx context.Context, err error) int {
	if err == nil {
		return pipeerr.ExitOK
	}
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return pipeerr.ExitInterrupted
	}
	return pipeerr.ExitCode(err)
}

func writeProvenance(prov *provenance.Tracker, path string) {
	for _, rec := range prov.Finished() {
		urls := make([]string, len(rec.Output))
		for i, o := range rec.Output {
			urls[i] = o.URL
		}
		monitoring.Infof("Output: %s", strings.Join(urls, " "))
	}
	if path == "" {
		return
	}
	if err := fsutil.EnsureParentDir(path); err != nil {
		monitoring.Errorf("provenance log: %v", err)
		return
	}
	if err := prov.WriteLog(path); err != nil {
		monitoring.Errorf("provenance log: %v", err)
	}
}
