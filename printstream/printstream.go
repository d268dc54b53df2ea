// Package printstream feeds a document's pages to a print sink one at a time.
package printstream

import (
	"context"

	"github.com/mfpkit/copyflow/adjust"
	"github.com/mfpkit/copyflow/core"
	apperrors "github.com/mfpkit/copyflow/errors"
	"github.com/mfpkit/copyflow/pagerange"
)

// Options tunes a print stream.
type Options struct {
	Logger core.Logger
}

// Stream resolves the job's page range against doc and sends the selected
// pages to sink as one job.  Each page is fit into the sink's printable area
// with aspect preserved and centred.  Copies, duplex, paper size and
// orientation apply once per job; a duplex request against a simplex-only
// sink is silently downgraded.
func Stream(ctx context.Context, doc *core.Document, spec core.PrintJobSpec, sink core.PrintSink, opts Options) error {
	if doc == nil || doc.Len() == 0 {
		return apperrors.New(apperrors.CategoryPrint, "print.stream", apperrors.ErrEmptyDocument)
	}

	if spec.PaperSize != "" && !core.KnownPaper(spec.PaperSize) {
		return apperrors.New(apperrors.CategoryPrint, "print.stream", apperrors.ErrUnsupportedPaper)
	}

	indices := pagerange.Select(spec.PageRange, doc.Len())
	if len(indices) == 0 {
		return apperrors.New(apperrors.CategoryPrint, "print.stream", apperrors.ErrNoPagesSelected)
	}

	job := spec
	if job.Copies < 1 {
		job.Copies = 1
	}
	if job.Duplex && !sink.SupportsDuplex() {
		job.Duplex = false
		if opts.Logger != nil {
			opts.Logger.Warn("print.duplex_downgraded")
		}
	}

	// Per-job corrections are applied to the streamed copies only; scaling is
	// left to the fit step below.
	var steps []adjust.Step
	if job.Adjust.Brightness != 0 || job.Adjust.Contrast != 0 {
		steps = append(steps, &adjust.BrightnessContrastStep{
			Brightness: job.Adjust.Brightness,
			Contrast:   job.Adjust.Contrast,
		})
	}
	if job.Adjust.Sharpness > 0 {
		steps = append(steps, &adjust.SharpenStep{Amount: job.Adjust.Sharpness})
	}

	if err := sink.BeginJob(ctx, job); err != nil {
		return apperrors.Wrap(apperrors.CategoryPrint, "print.begin", err)
	}

	area := sink.PrintableArea()
	for k, idx := range indices {
		page := doc.Page(idx)
		if len(steps) > 0 {
			adjusted, err := adjust.Chain(ctx, page, steps...)
			if err != nil {
				return apperrors.Wrap(apperrors.CategoryPrint, "print.adjust", err)
			}
			page = adjusted
		}

		fit := core.FitRect(area, page.Width(), page.Height())
		morePages := k < len(indices)-1
		if err := sink.PrintPage(ctx, page, fit, morePages); err != nil {
			return apperrors.Wrap(apperrors.CategoryPrint, "print.page", err)
		}
		if opts.Logger != nil {
			opts.Logger.Debug("print.page", "index", idx, "fit", fit.String(), "more", morePages)
		}
	}

	if err := sink.EndJob(ctx); err != nil {
		return apperrors.Wrap(apperrors.CategoryPrint, "print.end", err)
	}
	return nil
}
