package core

import (
	"context"
	"image"
	"io"
	"time"
)

// CaptureDevice is the entry point to a physical scanner.  Connect acquires
// the device for the duration of one operation; the returned handle is a
// single-owner resource.
type CaptureDevice interface {
	Connect(ctx context.Context) (DeviceHandle, error)
}

// DeviceHandle performs single-page acquisitions.  AcquirePage fails with an
// errors.CaptureError carrying the device condition; the FeedExhausted
// condition is the sole normal end-of-sequence signal.
type DeviceHandle interface {
	AcquirePage(ctx context.Context, req CaptureRequest) (*RasterPage, error)
	Close() error
}

// PrintSink is the abstract local print target.  BeginJob/EndJob bracket one
// job; PrintPage receives each page with the rectangle it must be drawn into
// and whether more pages follow in the same job.
type PrintSink interface {
	BeginJob(ctx context.Context, spec PrintJobSpec) error
	SupportsDuplex() bool
	// PrintableArea returns the margin-adjusted drawable region in sink pixels.
	PrintableArea() image.Rectangle
	PrintPage(ctx context.Context, page *RasterPage, fit image.Rectangle, morePages bool) error
	EndJob(ctx context.Context) error
}

// DocumentRenderer converts a non-native document file into an ordered
// sequence of raster pages.  The core never inspects file bytes itself.
type DocumentRenderer interface {
	Render(ctx context.Context, filePath string, dpi int) ([]*RasterPage, error)
}

// ProgressFunc receives progress events.  Delivery order matches emission
// order; the emitter never blocks on the observer.
type ProgressFunc func(ProgressEvent)

// PageEncoder serialises a raster page to an interchange format.
type PageEncoder interface {
	Encode(ctx context.Context, page *RasterPage, w io.Writer) error
	Extension() string
}

// StorageAdapter persists encoded scan output and retrieves it later.
type StorageAdapter interface {
	Put(ctx context.Context, key StorageKey, r io.Reader, meta map[string]string) error
	Get(ctx context.Context, key StorageKey) (io.ReadCloser, error)
	Delete(ctx context.Context, key StorageKey) error
	Exists(ctx context.Context, key StorageKey) (bool, error)
}

// StorageKey uniquely identifies a stored scan artifact.
type StorageKey struct {
	Bucket string
	Path   string
}

// Thumbnailer produces a small encoded preview rendition of a page.
type Thumbnailer interface {
	Thumbnail(ctx context.Context, page *RasterPage, size int) ([]byte, error)
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Hook is an optional observer invoked around pipeline stages.
type Hook interface {
	BeforeStage(ctx context.Context, stage string, pages int)
	AfterStage(ctx context.Context, stage string, pages int, d time.Duration, err error)
}

// MetricsCollector receives performance observations from operations.
type MetricsCollector interface {
	RecordStageTime(stage string, d interface{ Seconds() float64 })
	RecordPages(n int64)
	RecordError(stage string, category string)
}
