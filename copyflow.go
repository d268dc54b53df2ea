// Package copyflow operates the page-oriented capture/compose/print pipeline
// of a multi-function device: multi-page acquisition, image adjustment,
// page-range selection, document composition and streamed printing.
package copyflow

import (
	"context"

	"github.com/mfpkit/copyflow/adjust"
	"github.com/mfpkit/copyflow/config"
	"github.com/mfpkit/copyflow/copier"
	"github.com/mfpkit/copyflow/core"
	"github.com/mfpkit/copyflow/pagerange"
)

// Re-export the copy modes for convenience.
const (
	Instant  = core.ModeInstant
	Deferred = core.ModeDeferred
	IDCopy   = core.ModeIDCopy
)

// DefaultConfig returns a sensible production configuration.
func DefaultConfig() config.Config { return config.Default() }

// ConfigFromEnv returns the default configuration overlaid with COPYFLOW_*
// environment variables (and a .env file when present).
func ConfigFromEnv() config.Config { return config.FromEnv() }

// New creates a fully wired Copier bound to a capture device and print sink.
// Call Start() before submitting operations; call Stop() when done.
func New(cfg config.Config, device core.CaptureDevice, sink core.PrintSink) (*copier.Copier, error) {
	return copier.New(cfg, device, sink)
}

// SelectPages resolves a page range specification ("", "all", "1,3,5-7")
// against a document of totalPages pages into sorted 0-based indices.
func SelectPages(spec string, totalPages int) []int {
	return pagerange.Select(spec, totalPages)
}

// ── Adjustment step constructors ──────────────────────────────────────────────

// BrightnessContrast returns a step shifting brightness and contrast, each in
// [-50, 50]; (0, 0) passes the page through unchanged.
func BrightnessContrast(brightness, contrast int) adjust.Step {
	return &adjust.BrightnessContrastStep{Brightness: brightness, Contrast: contrast}
}

// Sharpen returns an unsharp-kernel step with amount in [0, 100].
func Sharpen(amount int) adjust.Step { return &adjust.SharpenStep{Amount: amount} }

// FitBox returns a step scaling the page to the largest size that fits the
// box while preserving aspect ratio.
func FitBox(maxWidth, maxHeight int) adjust.Step {
	return &adjust.ScaleStep{MaxWidth: maxWidth, MaxHeight: maxHeight, PreserveAspect: true}
}

// Stretch returns a step scaling the page to exactly (width, height).
func Stretch(width, height int) adjust.Step {
	return &adjust.ScaleStep{MaxWidth: width, MaxHeight: height}
}

// ScalePercent returns a step resizing the page by a percentage in [25, 400].
func ScalePercent(percent int) adjust.Step { return &adjust.ScalePercentStep{Percent: percent} }

// Rotate returns a step rotating the page about its centre by degrees.
func Rotate(degrees float64) adjust.Step { return &adjust.RotateStep{Degrees: degrees} }

// Crop returns a step extracting the given rectangle into a new page.
func Crop(x, y, width, height int) adjust.Step {
	return &adjust.CropStep{X: x, Y: y, Width: width, Height: height}
}

// Adjust applies steps to a page in order, returning the transformed page.
func Adjust(ctx context.Context, page *core.RasterPage, steps ...adjust.Step) (*core.RasterPage, error) {
	return adjust.Chain(ctx, page, steps...)
}
