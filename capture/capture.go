// Package capture drives multi-page acquisition from a scan device.
package capture

import (
	"context"
	"fmt"

	"github.com/mfpkit/copyflow/core"
	apperrors "github.com/mfpkit/copyflow/errors"
)

// Options tunes a capture sequence.
type Options struct {
	// MaxPages caps a feeder sequence; 0 means run until the feeder is empty.
	MaxPages int
	// Progress, when set, receives one event per captured page.
	Progress core.ProgressFunc
	// Logger, when set, receives per-page debug records.
	Logger core.Logger
}

// Sequence acquires pages from device until the input is exhausted.
//
// For a feeder source it loops single-page acquisitions; the feed-exhausted
// device condition ends the loop normally, while any other device fault
// aborts the whole call and the pages captured so far are discarded.  For a
// flatbed source exactly one page is captured; the flatbed is never probed
// for more input.
func Sequence(ctx context.Context, device core.CaptureDevice, req core.CaptureRequest, opts Options) (*core.Document, error) {
	handle, err := device.Connect(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryCapture, "capture.connect", err)
	}
	defer handle.Close()

	doc := core.NewDocument()

	if req.Source != core.SourceFeeder {
		page, err := handle.AcquirePage(ctx, req)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryCapture, "capture.flatbed", err)
		}
		if !page.Valid() {
			return nil, apperrors.New(apperrors.CategoryCapture, "capture.flatbed",
				apperrors.ErrInvalidDimensions)
		}
		doc.Append(page)
		emit(opts, 1)
		return doc, nil
	}

	for opts.MaxPages <= 0 || doc.Len() < opts.MaxPages {
		page, err := handle.AcquirePage(ctx, req)
		if err != nil {
			if apperrors.IsFeedExhausted(err) {
				break // feeder empty: the normal end of the sequence
			}
			// Pages captured before the fault are dropped, matching the
			// device-facing contract: a failed sequence returns nothing.
			return nil, apperrors.Wrap(apperrors.CategoryCapture, "capture.feeder", err)
		}
		if !page.Valid() {
			return nil, apperrors.New(apperrors.CategoryCapture, "capture.feeder",
				apperrors.ErrInvalidDimensions)
		}
		doc.Append(page)
		if opts.Logger != nil {
			opts.Logger.Debug("capture.page",
				"page", doc.Len(), "width", page.Width(), "height", page.Height(), "dpi", page.DPI)
		}
		emit(opts, doc.Len())
	}
	return doc, nil
}

// emit reports a per-page event with a saturating, never-regressing percent.
func emit(opts Options, pageNum int) {
	if opts.Progress == nil {
		return
	}
	percent := pageNum * 10
	if percent > 90 {
		percent = 90
	}
	opts.Progress(core.ProgressEvent{
		Percent: percent,
		Message: fmt.Sprintf("Scanning page %d...", pageNum),
	})
}
