// Package provenance records what a tool run did: which activities ran, on
// which machine, for how long, and which files they read and wrote.
//
// A Tracker is an explicit object owned by the caller. Activities nest as a
// stack; finishing pops the innermost one and files it under Finished.
package provenance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/banshee-data/cherenkov.pipe/internal/monitoring"
	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
	"github.com/banshee-data/cherenkov.pipe/internal/timeutil"
	"github.com/banshee-data/cherenkov.pipe/internal/version"
)

const tracerName = "github.com/banshee-data/cherenkov.pipe/internal/provenance"

// Status is the terminal state of an activity.
type Status string

const (
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
	StatusInterrupted Status = "interrupted"
)

// Entity is a file consumed or produced by an activity.
type Entity struct {
	URL       string `json:"url"`
	Role      string `json:"role,omitempty"`
	SizeBytes int64  `json:"size_bytes"`
	Size      string `json:"size,omitempty"`
}

// System describes the host and build, fixed for the process lifetime.
type System struct {
	Version    string   `json:"version"`
	GoVersion  string   `json:"go_version"`
	OS         string   `json:"os"`
	Arch       string   `json:"arch"`
	NumCPU     int      `json:"num_cpus"`
	Hostname   string   `json:"hostname"`
	Executable string   `json:"executable"`
	Arguments  []string `json:"arguments"`
}

// Record is the provenance of one activity.
type Record struct {
	Name        string    `json:"activity_name"`
	UUID        string    `json:"activity_uuid"`
	Status      Status    `json:"status"`
	Start       time.Time `json:"start_time_utc"`
	Stop        time.Time `json:"stop_time_utc,omitzero"`
	DurationMin float64   `json:"duration_min"`
	System      System    `json:"system"`
	Config      any       `json:"config,omitempty"`
	Input       []Entity  `json:"input"`
	Output      []Entity  `json:"output"`
}

type activity struct {
	rec  Record
	span trace.Span
}

// Tracker keeps the stack of running activities and the list of finished
// ones. It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	clock    timeutil.Clock
	tracer   trace.Tracer
	active   []*activity
	finished []Record
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the wall clock used for start and stop times.
func WithClock(c timeutil.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// New creates an empty tracker. Spans go to the global tracer provider, which
// is a no-op unless telemetry was set up.
func New(opts ...Option) *Tracker {
	t := &Tracker{clock: timeutil.RealClock{}}
	for _, o := range opts {
		o(t)
	}
	t.tracer = otel.Tracer(tracerName)
	return t
}

// StartActivity pushes a new activity and returns a context carrying its span.
func (t *Tracker) StartActivity(ctx context.Context, name string) context.Context {
	if name == "" {
		name = filepath.Base(os.Args[0])
	}
	id := uuid.NewString()
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("provenance.activity_uuid", id),
	))

	t.mu.Lock()
	t.active = append(t.active, &activity{
		rec: Record{
			Name:   name,
			UUID:   id,
			Status: StatusRunning,
			Start:  t.clock.Now().UTC(),
			System: systemInfo(),
			Input:  []Entity{},
			Output: []Entity{},
		},
		span: span,
	})
	t.mu.Unlock()

	monitoring.Debugf("started activity: %s", name)
	return ctx
}

// FinishActivity ends the innermost activity. A non-empty name must match
// it; on mismatch the stack is left untouched and an error is returned.
func (t *Tracker) FinishActivity(name string, status Status) error {
	t.mu.Lock()
	if len(t.active) == 0 {
		t.mu.Unlock()
		return pipeerr.Newf(pipeerr.CodeValue, "tried to end activity %q, but no activity is running", name)
	}
	top := t.active[len(t.active)-1]
	if name != "" && name != top.rec.Name {
		t.mu.Unlock()
		return pipeerr.Newf(pipeerr.CodeValue, "tried to end activity %q, but %q is current activity", name, top.rec.Name)
	}
	t.active = t.active[:len(t.active)-1]

	stop := t.clock.Now().UTC()
	top.rec.Stop = stop
	top.rec.DurationMin = stop.Sub(top.rec.Start).Minutes()
	top.rec.Status = status
	statEntities(top.rec.Input)
	statEntities(top.rec.Output)
	t.finished = append(t.finished, top.rec)
	t.mu.Unlock()

	if status != StatusCompleted {
		top.span.SetStatus(codes.Error, string(status))
	}
	top.span.SetAttributes(
		attribute.String("provenance.status", string(status)),
		attribute.Int("provenance.inputs", len(top.rec.Input)),
		attribute.Int("provenance.outputs", len(top.rec.Output)),
	)
	top.span.End()
	monitoring.Debugf("finished activity: %s (%s)", top.rec.Name, status)
	return nil
}

// Activity runs fn inside a named activity. The activity is always finished:
// completed when fn returns nil, interrupted when the context was cancelled,
// error otherwise. A panic in fn finishes the activity with error status and
// is then re-raised.
func (t *Tracker) Activity(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	actx := t.StartActivity(ctx, name)
	defer func() {
		if r := recover(); r != nil {
			_ = t.FinishActivity(name, StatusError)
			panic(r)
		}
		status := StatusCompleted
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled) || ctx.Err() != nil:
			status = StatusInterrupted
		default:
			status = StatusError
		}
		if ferr := t.FinishActivity(name, status); ferr != nil && err == nil {
			err = ferr
		}
	}()
	return fn(actx)
}

// current returns the innermost activity, starting a default one when the
// stack is empty. Callers hold t.mu.
func (t *Tracker) current() *activity {
	if len(t.active) == 0 {
		t.mu.Unlock()
		monitoring.Warnf("No activity has been started... starting a default one")
		t.StartActivity(context.Background(), "")
		t.mu.Lock()
	}
	return t.active[len(t.active)-1]
}

// AddInputFile registers an input of the current activity.
func (t *Tracker) AddInputFile(path, role string) error {
	e, err := entity(path, role)
	if err != nil {
		return err
	}
	t.mu.Lock()
	a := t.current()
	a.rec.Input = append(a.rec.Input, e)
	name := a.rec.Name
	t.mu.Unlock()
	monitoring.Debugf("added input entity %q to activity %q", e.URL, name)
	return nil
}

// AddOutputFile registers an output of the current activity. Sizes are read
// when the activity finishes, so the file need not exist yet.
func (t *Tracker) AddOutputFile(path, role string) error {
	e, err := entity(path, role)
	if err != nil {
		return err
	}
	t.mu.Lock()
	a := t.current()
	a.rec.Output = append(a.rec.Output, e)
	name := a.rec.Name
	t.mu.Unlock()
	monitoring.Debugf("added output entity %q to activity %q", e.URL, name)
	return nil
}

// AddConfig attaches the effective configuration to the current activity.
func (t *Tracker) AddConfig(cfg any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current().rec.Config = cfg
}

// CurrentActivity returns a snapshot of the innermost running activity.
func (t *Tracker) CurrentActivity() (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.active) == 0 {
		return Record{}, false
	}
	return t.active[len(t.active)-1].rec, true
}

// ActiveActivityNames lists running activities, outermost first.
func (t *Tracker) ActiveActivityNames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, len(t.active))
	for i, a := range t.active {
		names[i] = a.rec.Name
	}
	return names
}

// FinishedActivityNames lists finished activities in finishing order.
func (t *Tracker) FinishedActivityNames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, len(t.finished))
	for i, r := range t.finished {
		names[i] = r.Name
	}
	return names
}

// Finished returns a copy of the finished activity records.
func (t *Tracker) Finished() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, len(t.finished))
	copy(out, t.finished)
	return out
}

// Clear forgets all running and finished activities. Running spans are ended.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, a := range t.active {
		a.span.End()
	}
	t.active = nil
	t.finished = nil
}

// AsJSON encodes the finished records as a JSON array.
func (t *Tracker) AsJSON(indent bool) ([]byte, error) {
	recs := t.Finished()
	if indent {
		return json.MarshalIndent(recs, "", "  ")
	}
	return json.Marshal(recs)
}

// WriteLog appends the finished records to a provenance log, one JSON array
// per call followed by a newline.
func (t *Tracker) WriteLog(path string) error {
	data, err := t.AsJSON(true)
	if err != nil {
		return pipeerr.Wrap(pipeerr.CodeIO, "encoding provenance", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return pipeerr.Wrap(pipeerr.CodeIO, "opening provenance log", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return pipeerr.Wrap(pipeerr.CodeIO, "writing provenance log", err)
	}
	if err := f.Close(); err != nil {
		return pipeerr.Wrap(pipeerr.CodeIO, "closing provenance log", err)
	}
	monitoring.Debugf("wrote provenance for %d activities to %s (%s)", len(t.Finished()), path, humanize.Bytes(uint64(len(data))))
	return nil
}

func entity(path, role string) (Entity, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Entity{}, pipeerr.Wrap(pipeerr.CodeValue, fmt.Sprintf("resolving %s", path), err)
	}
	return Entity{URL: abs, Role: role}, nil
}

func statEntities(es []Entity) {
	for i := range es {
		fi, err := os.Stat(es[i].URL)
		if err != nil {
			continue
		}
		es[i].SizeBytes = fi.Size()
		es[i].Size = humanize.Bytes(uint64(fi.Size()))
	}
}

var (
	systemOnce sync.Once
	system     System
)

func systemInfo() System {
	systemOnce.Do(func() {
		host, _ := os.Hostname()
		exe, _ := os.Executable()
		system = System{
			Version:    version.String(),
			GoVersion:  runtime.Version(),
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NumCPU:     runtime.NumCPU(),
			Hostname:   host,
			Executable: exe,
			Arguments:  append([]string(nil), os.Args...),
		}
	})
	s := system
	s.Arguments = append([]string(nil), system.Arguments...)
	return s
}
