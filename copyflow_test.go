package copyflow_test

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	copyflow "github.com/mfpkit/copyflow"
	"github.com/mfpkit/copyflow/adapters/encoder"
	"github.com/mfpkit/copyflow/adapters/storage"
	"github.com/mfpkit/copyflow/copier"
	"github.com/mfpkit/copyflow/core"
	apperrors "github.com/mfpkit/copyflow/errors"
)

// ── Test doubles ──────────────────────────────────────────────────────────────

type stubDevice struct {
	feederPages int
}

func (d *stubDevice) Connect(ctx context.Context) (core.DeviceHandle, error) {
	return &stubHandle{remaining: d.feederPages}, nil
}

type stubHandle struct {
	remaining int
}

func (h *stubHandle) AcquirePage(ctx context.Context, req core.CaptureRequest) (*core.RasterPage, error) {
	if req.Source == core.SourceFeeder {
		if h.remaining == 0 {
			return nil, apperrors.NewCaptureError(apperrors.FeedExhausted, nil)
		}
		h.remaining--
	}
	return core.NewRasterPage(200, 280, req.DPI), nil
}

func (h *stubHandle) Close() error { return nil }

type countingSink struct {
	mu    sync.Mutex
	pages int
}

func (s *countingSink) BeginJob(ctx context.Context, spec core.PrintJobSpec) error { return nil }

func (s *countingSink) SupportsDuplex() bool { return false }

func (s *countingSink) PrintableArea() image.Rectangle { return image.Rect(0, 0, 620, 876) }

func (s *countingSink) EndJob(ctx context.Context) error { return nil }

func (s *countingSink) PrintPage(ctx context.Context, page *core.RasterPage, fit image.Rectangle, morePages bool) error {
	s.mu.Lock()
	s.pages++
	s.mu.Unlock()
	return nil
}

func newTestCopier(t *testing.T, device core.CaptureDevice, sink core.PrintSink) (*copier.Copier, chan struct{}) {
	t.Helper()
	cfg := copyflow.DefaultConfig()
	cfg.CopyDPI = 75
	cfg.ComposeDPI = 75

	cp, err := copyflow.New(cfg, device, sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	done := make(chan struct{}, 2)
	cp.Subscribe(func(ev core.ProgressEvent) {
		if ev.Percent == 100 {
			done <- struct{}{}
		}
	})
	cp.Start()
	t.Cleanup(cp.Stop)
	return cp, done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("operation did not finish")
	}
}

// ── End-to-end ────────────────────────────────────────────────────────────────

func TestScanToStorage(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocal(dir, 0)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	device := &stubDevice{feederPages: 2}
	cp, done := newTestCopier(t, device, &countingSink{})
	cp.SetStorage(encoder.NewPNG(), store)

	_, err = cp.Scan(context.Background(), copier.ScanJob{
		Request:  core.CaptureRequest{Source: core.SourceFeeder, DPI: 75},
		Bucket:   "scans",
		BaseName: "doc",
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	waitDone(t, done)

	if got := cp.State(); got != core.StateDone {
		t.Fatalf("state: got %s, want done", got)
	}
	for _, name := range []string{"doc_001.png", "doc_002.png"} {
		path := filepath.Join(dir, "scans", name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
		if _, err := os.Stat(path + ".meta.json"); err != nil {
			t.Errorf("missing metadata for %s: %v", name, err)
		}
	}
}

func TestScan_RequiresStorage(t *testing.T) {
	cp, _ := newTestCopier(t, &stubDevice{}, &countingSink{})

	_, err := cp.Scan(context.Background(), copier.ScanJob{
		Request: core.CaptureRequest{Source: core.SourceFlatbed, DPI: 75},
	})
	if err == nil {
		t.Fatal("expected error when encoder and storage are not configured")
	}
}

func TestFacadeAdjust(t *testing.T) {
	page := core.NewRasterPage(400, 200, 300)

	out, err := copyflow.Adjust(context.Background(), page,
		copyflow.BrightnessContrast(10, 0),
		copyflow.ScalePercent(50),
	)
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if out.Width() != 200 || out.Height() != 100 {
		t.Errorf("dimensions: got %dx%d, want 200x100", out.Width(), out.Height())
	}
}

func TestFacadeSelectPages(t *testing.T) {
	got := copyflow.SelectPages("1-3,5", 10)
	want := []int{0, 1, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("SelectPages: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SelectPages: got %v, want %v", got, want)
		}
	}
}
