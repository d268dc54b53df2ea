// Package vips provides a libvips-powered page exporter for archive output
// and preview thumbnails.
package vips

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"
	"runtime"

	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/mfpkit/copyflow/core"
	apperrors "github.com/mfpkit/copyflow/errors"
)

// BackendConfig configures the libvips backend.
type BackendConfig struct {
	DefaultQuality int
	MaxCacheSize   int
	MaxWorkers     int
	ReportLeaks    bool
}

// Backend is a unified libvips-powered PageEncoder and Thumbnailer.
// Safe for concurrent use across goroutines.
type Backend struct {
	cfg BackendConfig
}

// NewBackend initialises libvips and returns a ready Backend.
// Call Shutdown() when the process exits.
func NewBackend(cfg BackendConfig) *Backend {
	if cfg.DefaultQuality <= 0 {
		cfg.DefaultQuality = 85
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	govips.Startup(&govips.Config{
		ConcurrencyLevel: cfg.MaxWorkers,
		MaxCacheSize:     cfg.MaxCacheSize,
		ReportLeaks:      cfg.ReportLeaks,
		CollectStats:     true,
	})
	return &Backend{cfg: cfg}
}

// Shutdown releases all libvips resources. Call once at process exit.
func (b *Backend) Shutdown() {
	govips.Shutdown()
}

// refFor loads a raster page into libvips.  Pages carry raw pixels, so they
// travel through a lossless PNG buffer on the way in.
func (b *Backend) refFor(page *core.RasterPage) (*govips.ImageRef, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, page.Pix); err != nil {
		return nil, err
	}
	return govips.NewImageFromBuffer(buf.Bytes())
}

// ── PageEncoder ───────────────────────────────────────────────────────────────

func (b *Backend) Extension() string { return ".jpg" }

// Encode writes page as a JPEG compressed by libvips.
func (b *Backend) Encode(ctx context.Context, page *core.RasterPage, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "vips.encode", err)
	}
	if !page.Valid() {
		return apperrors.New(apperrors.CategoryStorage, "vips.encode", apperrors.ErrInvalidDimensions)
	}

	ref, err := b.refFor(page)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "vips.encode.load", err)
	}
	defer ref.Close()

	ep := govips.NewJpegExportParams()
	ep.Quality = b.cfg.DefaultQuality
	ep.StripMetadata = true
	out, _, err := ref.ExportJpeg(ep)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "vips.encode.jpeg", err)
	}
	if _, err := w.Write(out); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "vips.encode.write", err)
	}
	return nil
}

// ── Thumbnailer ───────────────────────────────────────────────────────────────

// Thumbnail produces a JPEG preview whose longest edge is size pixels, using
// vips_thumbnail so the full-resolution bitmap is shrunk on load.
func (b *Backend) Thumbnail(ctx context.Context, page *core.RasterPage, size int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "vips.thumbnail", err)
	}
	if size <= 0 {
		return nil, apperrors.New(apperrors.CategoryStorage, "vips.thumbnail",
			fmt.Errorf("thumbnail size must be positive, got %d", size))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, page.Pix); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "vips.thumbnail.load", err)
	}
	ref, err := govips.NewThumbnailFromBuffer(buf.Bytes(), size, size, govips.InterestingNone)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "vips.thumbnail", err)
	}
	defer ref.Close()

	ep := govips.NewJpegExportParams()
	ep.Quality = b.cfg.DefaultQuality
	ep.StripMetadata = true
	out, _, err := ref.ExportJpeg(ep)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "vips.thumbnail.jpeg", err)
	}
	return out, nil
}

// compile-time interface checks
var _ core.PageEncoder = (*Backend)(nil)
var _ core.Thumbnailer = (*Backend)(nil)
