package tool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cherenkov.pipe/internal/monitoring"
	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
	"github.com/banshee-data/cherenkov.pipe/internal/provenance"
)

type fakeTool struct {
	setupErr, startErr error
	cancel             context.CancelFunc
	log                string
	calls              []string
}

func (f *fakeTool) Name() string { return "fake" }

func (f *fakeTool) Setup(ctx context.Context, prov *provenance.Tracker) error {
	f.calls = append(f.calls, "setup")
	prov.AddConfig(map[string]string{"mode": "test"})
	return f.setupErr
}

func (f *fakeTool) Start(ctx context.Context) error {
	f.calls = append(f.calls, "start")
	if f.cancel != nil {
		f.cancel()
		return ctx.Err()
	}
	return f.startErr
}

func (f *fakeTool) Finish(context.Context) error {
	f.calls = append(f.calls, "finish")
	return nil
}

func (f *fakeTool) ProvenanceLog() string { return f.log }

func quiet(t *testing.T) {
	orig := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(orig) })
}

func run(t *testing.T, ctx context.Context, f *fakeTool) (int, *provenance.Tracker) {
	t.Helper()
	prov := provenance.New()
	code := Run(ctx, f, Options{Tracker: prov, NoSignals: true, NoTelemetry: true})
	return code, prov
}

func TestRunExitCodes(t *testing.T) {
	quiet(t)

	tests := []struct {
		name   string
		tool   *fakeTool
		code   int
		status provenance.Status
		calls  []string
	}{
		{"ok", &fakeTool{}, 0, provenance.StatusCompleted, []string{"setup", "start", "finish"}},
		{"setup plain error", &fakeTool{setupErr: errors.New("bad flag")}, 2, provenance.StatusError, []string{"setup"}},
		{"setup io error", &fakeTool{setupErr: pipeerr.New(pipeerr.CodeIO, "missing input")}, 1, provenance.StatusError, []string{"setup"}},
		{"start error", &fakeTool{startErr: pipeerr.New(pipeerr.CodeKeyMismatch, "dup keys")}, 1, provenance.StatusError, []string{"setup", "start", "finish"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, prov := run(t, context.Background(), tt.tool)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.calls, tt.tool.calls)
			recs := prov.Finished()
			require.Len(t, recs, 1)
			assert.Equal(t, "fake", recs[0].Name)
			assert.Equal(t, tt.status, recs[0].Status)
		})
	}
}

func TestRunInterrupted(t *testing.T) {
	quiet(t)
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeTool{cancel: cancel}

	code, prov := run(t, ctx, f)
	assert.Equal(t, pipeerr.ExitInterrupted, code)
	assert.Equal(t, provenance.StatusInterrupted, prov.Finished()[0].Status)
	assert.Equal(t, []string{"setup", "start", "finish"}, f.calls)
}

func TestRunWritesProvenanceLog(t *testing.T) {
	quiet(t)
	path := filepath.Join(t.TempDir(), "logs", "fake.provenance.log")
	code, _ := run(t, context.Background(), &fakeTool{log: path})
	require.Equal(t, 0, code)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"activity_name": "fake"`)
	assert.Contains(t, string(data), `"mode": "test"`)
}
