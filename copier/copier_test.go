package copier_test

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mfpkit/copyflow/config"
	"github.com/mfpkit/copyflow/copier"
	"github.com/mfpkit/copyflow/core"
	apperrors "github.com/mfpkit/copyflow/errors"
)

// ── Test doubles ──────────────────────────────────────────────────────────────

type fakeDevice struct {
	mu          sync.Mutex
	feederPages int
	connects    int
}

func (d *fakeDevice) Connect(ctx context.Context) (core.DeviceHandle, error) {
	d.mu.Lock()
	d.connects++
	d.mu.Unlock()
	return &fakeHandle{device: d}, nil
}

type fakeHandle struct {
	device *fakeDevice
}

func (h *fakeHandle) AcquirePage(ctx context.Context, req core.CaptureRequest) (*core.RasterPage, error) {
	if req.Source == core.SourceFeeder {
		h.device.mu.Lock()
		defer h.device.mu.Unlock()
		if h.device.feederPages == 0 {
			return nil, apperrors.NewCaptureError(apperrors.FeedExhausted, nil)
		}
		h.device.feederPages--
	}
	return core.NewRasterPage(200, 280, req.DPI), nil
}

func (h *fakeHandle) Close() error { return nil }

type fakeSink struct {
	mu    sync.Mutex
	jobs  int
	pages int
}

func (s *fakeSink) BeginJob(ctx context.Context, spec core.PrintJobSpec) error {
	s.mu.Lock()
	s.jobs++
	s.mu.Unlock()
	return nil
}

func (s *fakeSink) SupportsDuplex() bool { return false }

func (s *fakeSink) PrintableArea() image.Rectangle { return image.Rect(0, 0, 1240, 1753) }

func (s *fakeSink) PrintPage(ctx context.Context, page *core.RasterPage, fit image.Rectangle, morePages bool) error {
	s.mu.Lock()
	s.pages++
	s.mu.Unlock()
	return nil
}

func (s *fakeSink) EndJob(ctx context.Context) error { return nil }

func (s *fakeSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs, s.pages
}

// progressWatcher collects events and signals the terminal one.
type progressWatcher struct {
	mu     sync.Mutex
	events []core.ProgressEvent
	doneCh chan struct{}
}

func newProgressWatcher() *progressWatcher {
	return &progressWatcher{doneCh: make(chan struct{}, 4)}
}

func (w *progressWatcher) observe(ev core.ProgressEvent) {
	w.mu.Lock()
	w.events = append(w.events, ev)
	w.mu.Unlock()
	if ev.Percent == 100 {
		w.doneCh <- struct{}{}
	}
}

func (w *progressWatcher) wait(t *testing.T) {
	t.Helper()
	select {
	case <-w.doneCh:
	case <-time.After(5 * time.Second):
		t.Fatal("operation did not finish")
	}
}

func (w *progressWatcher) snapshot() []core.ProgressEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]core.ProgressEvent, len(w.events))
	copy(out, w.events)
	return out
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.CopyDPI = 75
	cfg.ComposeDPI = 75
	return cfg
}

func newCopier(t *testing.T, device core.CaptureDevice, sink core.PrintSink) (*copier.Copier, *progressWatcher) {
	t.Helper()
	cp, err := copier.New(testConfig(), device, sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	watcher := newProgressWatcher()
	cp.Subscribe(watcher.observe)
	cp.Start()
	t.Cleanup(cp.Stop)
	return cp, watcher
}

// ── Copy modes ────────────────────────────────────────────────────────────────

func TestCopy_DeferredFeeder(t *testing.T) {
	device := &fakeDevice{feederPages: 3}
	sink := &fakeSink{}
	cp, watcher := newCopier(t, device, sink)

	opID, err := cp.Copy(context.Background(), core.CopySettings{
		Mode:   core.ModeDeferred,
		Source: core.SourceFeeder,
	})
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if opID == "" {
		t.Fatal("empty operation ID")
	}
	watcher.wait(t)

	if got := cp.State(); got != core.StateDone {
		t.Errorf("state: got %s, want done", got)
	}
	jobs, pages := sink.counts()
	if jobs != 1 {
		t.Errorf("jobs: got %d, want 1", jobs)
	}
	if pages != 3 {
		t.Errorf("pages: got %d, want 3", pages)
	}

	events := watcher.snapshot()
	last := 0
	for i, ev := range events {
		if ev.Percent < last {
			t.Errorf("event %d: percent regressed from %d to %d", i, last, ev.Percent)
		}
		last = ev.Percent
	}
	if events[len(events)-1].Percent != 100 {
		t.Errorf("final percent: got %d, want 100", events[len(events)-1].Percent)
	}
}

func TestCopy_DeferredFlatbedSinglePage(t *testing.T) {
	device := &fakeDevice{}
	sink := &fakeSink{}
	cp, watcher := newCopier(t, device, sink)

	_, err := cp.Copy(context.Background(), core.CopySettings{
		Mode:   core.ModeDeferred,
		Source: core.SourceFlatbed,
	})
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	watcher.wait(t)

	if got := cp.State(); got != core.StateDone {
		t.Errorf("state: got %s, want done", got)
	}
	// One captured page composes to one output page printed in one job.
	jobs, pages := sink.counts()
	if jobs != 1 || pages != 1 {
		t.Errorf("sink saw %d jobs / %d pages, want 1/1", jobs, pages)
	}
	events := watcher.snapshot()
	if events[len(events)-1].Percent != 100 {
		t.Errorf("final percent: got %d, want 100", events[len(events)-1].Percent)
	}
}

func TestCopy_DeferredEmptyFeeder(t *testing.T) {
	device := &fakeDevice{feederPages: 0}
	sink := &fakeSink{}
	cp, watcher := newCopier(t, device, sink)

	_, err := cp.Copy(context.Background(), core.CopySettings{
		Mode:   core.ModeDeferred,
		Source: core.SourceFeeder,
	})
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	watcher.wait(t)

	// An empty feeder ends the operation cleanly, it does not fail it.
	if got := cp.State(); got != core.StateDone {
		t.Errorf("state: got %s, want done", got)
	}
	jobs, _ := sink.counts()
	if jobs != 0 {
		t.Errorf("jobs: got %d, want 0", jobs)
	}
	events := watcher.snapshot()
	final := events[len(events)-1]
	if !strings.Contains(final.Message, "No pages") {
		t.Errorf("final message: got %q", final.Message)
	}
}

func TestCopy_InstantFlatbed(t *testing.T) {
	device := &fakeDevice{}
	sink := &fakeSink{}
	cp, watcher := newCopier(t, device, sink)

	_, err := cp.Copy(context.Background(), core.CopySettings{
		Mode:       core.ModeInstant,
		Source:     core.SourceFlatbed,
		Brightness: 10,
	})
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	watcher.wait(t)

	if got := cp.State(); got != core.StateDone {
		t.Errorf("state: got %s, want done", got)
	}
	jobs, pages := sink.counts()
	if jobs != 1 || pages != 1 {
		t.Errorf("sink saw %d jobs / %d pages, want 1/1", jobs, pages)
	}
}

func TestCopy_InstantFeederPerPageJobs(t *testing.T) {
	device := &fakeDevice{feederPages: 4}
	sink := &fakeSink{}
	cp, watcher := newCopier(t, device, sink)

	_, err := cp.Copy(context.Background(), core.CopySettings{
		Mode:   core.ModeInstant,
		Source: core.SourceFeeder,
	})
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	watcher.wait(t)

	// Instant feeder copies print each page as its own job.
	jobs, pages := sink.counts()
	if jobs != 4 || pages != 4 {
		t.Errorf("sink saw %d jobs / %d pages, want 4/4", jobs, pages)
	}
}

func TestCopy_IDCopy(t *testing.T) {
	device := &fakeDevice{}
	sink := &fakeSink{}
	cp, watcher := newCopier(t, device, sink)

	_, err := cp.Copy(context.Background(), core.CopySettings{Mode: core.ModeIDCopy})
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}

	// Wait for the flip prompt, then acknowledge it.
	deadline := time.After(5 * time.Second)
	for cp.State() != core.StateAwaitFlip {
		select {
		case <-deadline:
			t.Fatal("never reached await_flip")
		case <-time.After(time.Millisecond):
		}
	}
	cp.ConfirmFlip()
	watcher.wait(t)

	if got := cp.State(); got != core.StateDone {
		t.Errorf("state: got %s, want done", got)
	}
	jobs, pages := sink.counts()
	if jobs != 1 || pages != 1 {
		t.Errorf("sink saw %d jobs / %d pages, want a single two-up sheet", jobs, pages)
	}
	if device.connects != 2 {
		t.Errorf("device connects: got %d, want 2 (front and back)", device.connects)
	}
}

// ── Concurrency / lifecycle ───────────────────────────────────────────────────

func TestCopy_RejectsWhileBusy(t *testing.T) {
	device := &fakeDevice{}
	sink := &fakeSink{}
	cp, watcher := newCopier(t, device, sink)

	// ID copy parks in await_flip, holding the operation slot.
	_, err := cp.Copy(context.Background(), core.CopySettings{Mode: core.ModeIDCopy})
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	deadline := time.After(5 * time.Second)
	for cp.State() != core.StateAwaitFlip {
		select {
		case <-deadline:
			t.Fatal("never reached await_flip")
		case <-time.After(time.Millisecond):
		}
	}

	_, err = cp.Copy(context.Background(), core.CopySettings{Mode: core.ModeInstant})
	if !errors.Is(err, apperrors.ErrBusy) {
		t.Fatalf("second submission: got %v, want ErrBusy", err)
	}

	cp.ConfirmFlip()
	watcher.wait(t)

	// The slot frees once the operation terminates.
	if cp.Busy() {
		t.Error("copier still busy after completion")
	}
}

func TestCopy_FailureState(t *testing.T) {
	device := &jamDevice{}
	sink := &fakeSink{}
	cp, watcher := newCopier(t, device, sink)

	_, err := cp.Copy(context.Background(), core.CopySettings{
		Mode:   core.ModeDeferred,
		Source: core.SourceFeeder,
	})
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	watcher.wait(t)

	if got := cp.State(); got != core.StateFailed {
		t.Errorf("state: got %s, want failed", got)
	}
	events := watcher.snapshot()
	final := events[len(events)-1]
	if final.Percent != 100 || !strings.HasPrefix(final.Message, "Error:") {
		t.Errorf("final event: %+v", final)
	}
	jobs, _ := sink.counts()
	if jobs != 0 {
		t.Errorf("jobs after capture fault: got %d, want 0", jobs)
	}
}

// jamDevice jams on the first feeder acquisition.
type jamDevice struct{}

func (d *jamDevice) Connect(ctx context.Context) (core.DeviceHandle, error) {
	return jamHandle{}, nil
}

type jamHandle struct{}

func (jamHandle) AcquirePage(ctx context.Context, req core.CaptureRequest) (*core.RasterPage, error) {
	return nil, apperrors.NewCaptureError(apperrors.PaperJam, nil)
}

func (jamHandle) Close() error { return nil }

// ── Other operations ──────────────────────────────────────────────────────────

func TestPrintDocument(t *testing.T) {
	device := &fakeDevice{}
	sink := &fakeSink{}
	cp, watcher := newCopier(t, device, sink)

	doc := core.NewDocument()
	doc.Append(core.NewRasterPage(200, 280, 75))
	doc.Append(core.NewRasterPage(200, 280, 75))

	_, err := cp.PrintDocument(context.Background(), doc, core.PrintJobSpec{PageRange: "all"})
	if err != nil {
		t.Fatalf("PrintDocument: %v", err)
	}
	watcher.wait(t)

	jobs, pages := sink.counts()
	if jobs != 1 || pages != 2 {
		t.Errorf("sink saw %d jobs / %d pages, want 1/2", jobs, pages)
	}
}

func TestPrintFile_RequiresRenderer(t *testing.T) {
	device := &fakeDevice{}
	sink := &fakeSink{}
	cp, _ := newCopier(t, device, sink)

	_, err := cp.PrintFile(context.Background(), "report.pdf", core.PrintJobSpec{PageRange: "all"})
	if !errors.Is(err, apperrors.ErrRendererUnavailable) {
		t.Fatalf("error: got %v, want ErrRendererUnavailable", err)
	}
}

func TestPrintFile(t *testing.T) {
	device := &fakeDevice{}
	sink := &fakeSink{}
	cp, watcher := newCopier(t, device, sink)
	cp.SetRenderer(stubRenderer{pages: 3})

	_, err := cp.PrintFile(context.Background(), "report.pdf", core.PrintJobSpec{PageRange: "all"})
	if err != nil {
		t.Fatalf("PrintFile: %v", err)
	}
	watcher.wait(t)

	if got := cp.State(); got != core.StateDone {
		t.Errorf("state: got %s, want done", got)
	}
	jobs, pages := sink.counts()
	if jobs != 1 || pages != 3 {
		t.Errorf("sink saw %d jobs / %d pages, want 1/3", jobs, pages)
	}
}

type stubRenderer struct {
	pages int
}

func (r stubRenderer) Render(ctx context.Context, filePath string, dpi int) ([]*core.RasterPage, error) {
	out := make([]*core.RasterPage, r.pages)
	for i := range out {
		out[i] = core.NewRasterPage(200, 280, dpi)
	}
	return out, nil
}

func TestPreview(t *testing.T) {
	device := &fakeDevice{}
	sink := &fakeSink{}
	cp, _ := newCopier(t, device, sink)

	page, err := cp.Preview(context.Background())
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if page.DPI != testConfig().PreviewDPI {
		t.Errorf("preview dpi: got %d, want %d", page.DPI, testConfig().PreviewDPI)
	}
	if cp.Busy() {
		t.Error("copier busy after synchronous preview")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.CopyDPI = 0

	_, err := copier.New(cfg, &fakeDevice{}, &fakeSink{})
	if err == nil {
		t.Fatal("expected error for invalid config")
	}
	if !apperrors.IsCategory(err, apperrors.CategoryConfig) {
		t.Errorf("error category: got %v", err)
	}
}

func TestNew_NilCollaborators(t *testing.T) {
	if _, err := copier.New(config.Default(), nil, &fakeSink{}); err == nil {
		t.Error("expected error for nil device")
	}
	_, err := copier.New(config.Default(), &fakeDevice{}, nil)
	if !errors.Is(err, apperrors.ErrSinkUnavailable) {
		t.Errorf("nil sink: got %v, want ErrSinkUnavailable", err)
	}
}
