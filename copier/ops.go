package copier

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/mfpkit/copyflow/adjust"
	"github.com/mfpkit/copyflow/capture"
	"github.com/mfpkit/copyflow/compose"
	"github.com/mfpkit/copyflow/core"
	apperrors "github.com/mfpkit/copyflow/errors"
	"github.com/mfpkit/copyflow/printstream"
	"github.com/mfpkit/copyflow/utils"
)

// Copy starts a copy operation in the background worker and returns its
// operation ID.  While an operation is active, further submissions fail with
// ErrBusy.
func (c *Copier) Copy(ctx context.Context, settings core.CopySettings) (string, error) {
	opID, err := c.begin()
	if err != nil {
		return "", err
	}
	go func() {
		var doneMsg string
		var opErr error
		switch settings.Mode {
		case core.ModeDeferred:
			doneMsg, opErr = c.runDeferred(ctx, settings)
		case core.ModeIDCopy:
			doneMsg, opErr = c.runIDCopy(ctx, settings)
		default:
			doneMsg, opErr = c.runInstant(ctx, settings)
		}
		c.finish(opErr, doneMsg)
	}()
	return opID, nil
}

// PrintDocument starts a plain print job for an already-assembled document.
// The document's ownership transfers to the operation.
func (c *Copier) PrintDocument(ctx context.Context, doc *core.Document, spec core.PrintJobSpec) (string, error) {
	opID, err := c.begin()
	if err != nil {
		return "", err
	}
	go func() {
		c.setState(core.StatePrinting, "Printing document...", 10)
		opErr := c.runStage(ctx, "print", doc.Len(), func() error {
			return printstream.Stream(ctx, doc, spec, c.sink, printstream.Options{Logger: c.logger})
		})
		doc.Release()
		c.finish(opErr, "Print complete")
	}()
	return opID, nil
}

// PrintFile renders a document file through the external renderer and prints
// the resulting pages as one job.
func (c *Copier) PrintFile(ctx context.Context, filePath string, spec core.PrintJobSpec) (string, error) {
	if c.renderer == nil {
		return "", apperrors.New(apperrors.CategoryRender, "copier.print_file", apperrors.ErrRendererUnavailable)
	}
	opID, err := c.begin()
	if err != nil {
		return "", err
	}
	go func() {
		doc := core.NewDocument()
		defer doc.Release()

		c.setState(core.StateComposing, "Rendering document...", 10)
		opErr := c.runStage(ctx, "render", 0, func() error {
			pages, rerr := c.renderer.Render(ctx, filePath, c.cfg.ComposeDPI)
			if rerr != nil {
				return apperrors.Wrap(apperrors.CategoryRender, "copier.print_file", rerr)
			}
			for _, p := range pages {
				doc.Append(p)
			}
			return nil
		})
		if opErr == nil {
			c.setState(core.StatePrinting, "Printing document...", 50)
			opErr = c.runStage(ctx, "print", doc.Len(), func() error {
				return printstream.Stream(ctx, doc, spec, c.sink, printstream.Options{Logger: c.logger})
			})
		}
		c.finish(opErr, "Print complete")
	}()
	return opID, nil
}

// ScanJob parameterises a scan-to-storage operation.
type ScanJob struct {
	Request    core.CaptureRequest
	MaxPages   int
	Bucket     string
	BaseName   string
	Thumbnails bool
	ThumbSize  int
}

// Scan captures a sequence and persists each page through the configured
// encoder and storage adapter.
func (c *Copier) Scan(ctx context.Context, job ScanJob) (string, error) {
	if c.encoder == nil || c.storage == nil {
		return "", apperrors.New(apperrors.CategoryStorage, "copier.scan",
			errors.New("scan storage not configured"))
	}
	opID, err := c.begin()
	if err != nil {
		return "", err
	}
	go func() {
		doneMsg, opErr := c.runScan(ctx, opID, job)
		c.finish(opErr, doneMsg)
	}()
	return opID, nil
}

func (c *Copier) runScan(ctx context.Context, opID string, job ScanJob) (string, error) {
	c.setState(core.StateCapturing, "Scanning...", 5)

	maxPages := job.MaxPages
	if maxPages == 0 {
		maxPages = c.cfg.MaxPages
	}
	var doc *core.Document
	err := c.runStage(ctx, "capture", 0, func() error {
		var cerr error
		doc, cerr = capture.Sequence(ctx, c.device, job.Request, capture.Options{
			MaxPages: maxPages,
			Logger:   c.logger,
			Progress: c.remapProgress(5, 50),
		})
		return cerr
	})
	if err != nil {
		return "", err
	}
	defer doc.Release()
	if doc.Len() == 0 {
		return "Nothing to scan", nil
	}

	base := job.BaseName
	if base == "" {
		base = "scan_" + opID
	}
	err = c.runStage(ctx, "store", doc.Len(), func() error {
		for i := 0; i < doc.Len(); i++ {
			page := doc.Page(i)
			c.emit(50+(i+1)*45/doc.Len(), fmt.Sprintf("Saving page %d...", i+1))

			buf := utils.AcquireBuffer()
			if encErr := c.encoder.Encode(ctx, page, buf); encErr != nil {
				utils.ReleaseBuffer(buf)
				return apperrors.Wrap(apperrors.CategoryStorage, "scan.encode", encErr)
			}
			key := core.StorageKey{
				Bucket: job.Bucket,
				Path:   fmt.Sprintf("%s_%03d%s", base, i+1, c.encoder.Extension()),
			}
			meta := map[string]string{"dpi": fmt.Sprint(page.DPI), "page": fmt.Sprint(i + 1)}
			putErr := c.storage.Put(ctx, key, buf, meta)
			utils.ReleaseBuffer(buf)
			if putErr != nil {
				return apperrors.Wrap(apperrors.CategoryStorage, "scan.put", putErr)
			}

			if job.Thumbnails && c.thumbs != nil {
				size := job.ThumbSize
				if size <= 0 {
					size = 256
				}
				tb, terr := c.thumbs.Thumbnail(ctx, page, size)
				if terr != nil {
					return apperrors.Wrap(apperrors.CategoryStorage, "scan.thumbnail", terr)
				}
				tkey := core.StorageKey{
					Bucket: job.Bucket,
					Path:   fmt.Sprintf("%s_%03d_thumb.jpg", base, i+1),
				}
				if putErr := c.storage.Put(ctx, tkey, bytes.NewReader(tb), nil); putErr != nil {
					return apperrors.Wrap(apperrors.CategoryStorage, "scan.put_thumbnail", putErr)
				}
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Scanned %d pages", doc.Len()), nil
}

// Preview performs a synchronous low-resolution flatbed acquisition, holding
// the single-operation slot for the duration of the capture.
func (c *Copier) Preview(ctx context.Context) (*core.RasterPage, error) {
	if _, err := c.begin(); err != nil {
		return nil, err
	}
	defer func() {
		c.mu.Lock()
		c.active = false
		c.state = core.StateIdle
		c.mu.Unlock()
	}()

	req := core.CaptureRequest{
		Source:    core.SourceFlatbed,
		DPI:       c.cfg.PreviewDPI,
		ColorMode: core.ColorMode(c.cfg.CopyColorMode),
	}
	doc, err := capture.Sequence(ctx, c.device, req, capture.Options{Logger: c.logger})
	if err != nil {
		return nil, err
	}
	return doc.Page(0), nil
}

// ── copy modes ────────────────────────────────────────────────────────────────

// runInstant scans and prints without an intermediate composed document.
// With a feeder source the loop prints each page immediately as its own sink
// job, exactly as the page is produced.
func (c *Copier) runInstant(ctx context.Context, settings core.CopySettings) (string, error) {
	req := c.captureRequest(settings.Source)
	job := c.printJob(settings)
	steps := c.copySteps(settings)

	if settings.Source == core.SourceFeeder {
		return c.runInstantFeeder(ctx, req, job, steps)
	}

	c.setState(core.StateCapturing, "Scanning...", 10)
	var doc *core.Document
	err := c.runStage(ctx, "capture", 0, func() error {
		var cerr error
		doc, cerr = capture.Sequence(ctx, c.device, req, capture.Options{Logger: c.logger})
		return cerr
	})
	if err != nil {
		return "", err
	}
	defer doc.Release()

	c.setState(core.StateAdjusting, "Processing image...", 40)
	if err := c.adjustDocument(ctx, doc, steps); err != nil {
		return "", err
	}

	c.setState(core.StatePrinting, "Printing...", 50)
	err = c.runStage(ctx, "print", doc.Len(), func() error {
		return printstream.Stream(ctx, doc, job, c.sink, printstream.Options{Logger: c.logger})
	})
	if err != nil {
		return "", err
	}
	return "Copy complete", nil
}

// runInstantFeeder interleaves capture and print page by page.  The state
// machine passes through Capturing and Adjusting once and then stays in
// Printing while the loop alternates between the device and the sink.
func (c *Copier) runInstantFeeder(ctx context.Context, req core.CaptureRequest, job core.PrintJobSpec, steps []adjust.Step) (string, error) {
	c.setState(core.StateCapturing, "Scanning from feeder...", 5)

	handle, err := c.device.Connect(ctx)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CategoryCapture, "instant.connect", err)
	}
	defer handle.Close()

	c.setState(core.StateAdjusting, "Preparing corrections...", 8)
	c.setState(core.StatePrinting, "Copying pages...", 10)

	pageNum := 0
	for {
		page, err := handle.AcquirePage(ctx, req)
		if err != nil {
			if apperrors.IsFeedExhausted(err) {
				break
			}
			return "", apperrors.Wrap(apperrors.CategoryCapture, "instant.acquire", err)
		}
		pageNum++
		c.emit(pagePercent(pageNum), fmt.Sprintf("Page %d: scanning...", pageNum))

		adjusted, err := adjust.Chain(ctx, page, steps...)
		if err != nil {
			return "", err
		}

		single := core.NewDocument()
		single.Append(adjusted)
		err = c.runStage(ctx, "print", 1, func() error {
			return printstream.Stream(ctx, single, job, c.sink, printstream.Options{Logger: c.logger})
		})
		single.Release()
		if err != nil {
			return "", err
		}
		c.emit(pagePercent(pageNum), fmt.Sprintf("Page %d: printed", pageNum))
	}

	if pageNum == 0 {
		return "No pages to copy", nil
	}
	return fmt.Sprintf("Copied %d pages", pageNum), nil
}

// runDeferred captures the whole document first, composes it into a single
// paginated printable, prints it as one job, and discards the transient
// composed artifact before the operation terminates.
func (c *Copier) runDeferred(ctx context.Context, settings core.CopySettings) (string, error) {
	req := c.captureRequest(settings.Source)
	job := c.printJob(settings)

	c.setState(core.StateCapturing, "Scanning all pages...", 10)
	var doc *core.Document
	err := c.runStage(ctx, "capture", 0, func() error {
		var cerr error
		doc, cerr = capture.Sequence(ctx, c.device, req, capture.Options{
			MaxPages: c.cfg.MaxPages,
			Logger:   c.logger,
			Progress: c.remapProgress(10, 45),
		})
		return cerr
	})
	if err != nil {
		return "", err
	}
	defer doc.Release()
	if doc.Len() == 0 {
		return "No pages to copy", nil
	}

	c.setState(core.StateAdjusting, fmt.Sprintf("Scanned %d pages. Processing...", doc.Len()), 50)
	if err := c.adjustDocument(ctx, doc, c.copySteps(settings)); err != nil {
		return "", err
	}

	c.setState(core.StateComposing, "Composing document...", 70)
	var composed *core.Document
	err = c.runStage(ctx, "compose", doc.Len(), func() error {
		var cerr error
		composed, cerr = c.composer().Paginate(ctx, doc)
		return cerr
	})
	if err != nil {
		return "", err
	}
	defer composed.Release()

	c.setState(core.StatePrinting, "Printing document...", 85)
	err = c.runStage(ctx, "print", composed.Len(), func() error {
		return printstream.Stream(ctx, composed, job, c.sink, printstream.Options{Logger: c.logger})
	})
	if err != nil {
		return "", err
	}
	return "Copy complete", nil
}

// runIDCopy captures both sides of a flat document from the flatbed, waiting
// for the operator to flip it in between, and prints the two-up sheet.
// If either side fails to capture the operation aborts with no print attempt.
func (c *Copier) runIDCopy(ctx context.Context, settings core.CopySettings) (string, error) {
	// ID copies always come off the glass in colour.
	req := core.CaptureRequest{
		Source:    core.SourceFlatbed,
		DPI:       c.cfg.CopyDPI,
		ColorMode: core.ColorModeColor,
	}
	job := c.printJob(settings)

	c.setState(core.StateCapturing, "Scanning front side...", 10)
	var frontDoc *core.Document
	err := c.runStage(ctx, "capture", 0, func() error {
		var cerr error
		frontDoc, cerr = capture.Sequence(ctx, c.device, req, capture.Options{Logger: c.logger})
		return cerr
	})
	if err != nil {
		return "", err
	}
	defer frontDoc.Release()
	front := frontDoc.Page(0)

	c.setState(core.StateAwaitFlip, "Turn the document over and confirm to scan the back side", 40)
	if err := c.awaitFlip(ctx); err != nil {
		return "", err
	}

	c.setState(core.StateCapturing, "Scanning back side...", 50)
	var backDoc *core.Document
	err = c.runStage(ctx, "capture", 1, func() error {
		var cerr error
		backDoc, cerr = capture.Sequence(ctx, c.device, req, capture.Options{Logger: c.logger})
		return cerr
	})
	if err != nil {
		return "", err
	}
	defer backDoc.Release()
	back := backDoc.Page(0)

	c.setState(core.StateComposing, "Creating ID copy...", 70)
	var composed *core.Document
	err = c.runStage(ctx, "compose", 2, func() error {
		var cerr error
		composed, cerr = c.composer().TwoUp(ctx, front, back)
		return cerr
	})
	if err != nil {
		return "", err
	}
	defer composed.Release()

	c.setState(core.StatePrinting, "Printing ID copy...", 85)
	err = c.runStage(ctx, "print", 1, func() error {
		return printstream.Stream(ctx, composed, job, c.sink, printstream.Options{Logger: c.logger})
	})
	if err != nil {
		return "", err
	}
	return "ID copy complete", nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (c *Copier) captureRequest(source core.ScanSource) core.CaptureRequest {
	return core.CaptureRequest{
		Source:    source,
		DPI:       c.cfg.CopyDPI,
		ColorMode: core.ColorMode(c.cfg.CopyColorMode),
	}
}

func (c *Copier) printJob(settings core.CopySettings) core.PrintJobSpec {
	copies := settings.Copies
	if copies < 1 {
		copies = c.cfg.DefaultCopies
	}
	return core.PrintJobSpec{
		Copies:      copies,
		Duplex:      settings.Duplex,
		PageRange:   "all",
		PaperSize:   core.PaperSize(c.cfg.PaperSize),
		Orientation: core.Portrait,
	}
}

func (c *Copier) copySteps(settings core.CopySettings) []adjust.Step {
	return adjust.StepsFor(core.AdjustmentSpec{
		Brightness:   settings.Brightness,
		Contrast:     settings.Contrast,
		ScalePercent: settings.ScalePercent,
	})
}

func (c *Copier) composer() *compose.Composer {
	cmp := compose.New(core.PaperSize(c.cfg.PaperSize), core.Portrait, c.cfg.ComposeDPI)
	cmp.MarginPt = c.cfg.MarginPt
	cmp.SpacingPt = c.cfg.SpacingPt
	return cmp
}

func (c *Copier) adjustDocument(ctx context.Context, doc *core.Document, steps []adjust.Step) error {
	if len(steps) == 0 {
		return nil
	}
	return c.runStage(ctx, "adjust", doc.Len(), func() error {
		for i := 0; i < doc.Len(); i++ {
			page, err := adjust.Chain(ctx, doc.Page(i), steps...)
			if err != nil {
				return err
			}
			doc.Replace(i, page)
		}
		return nil
	})
}

// remapProgress rescales a stage's local 0..100 progress into the
// [lo, lo+span] slice of the overall operation.
func (c *Copier) remapProgress(lo, span int) core.ProgressFunc {
	return func(ev core.ProgressEvent) {
		c.emit(lo+ev.Percent*span/100, ev.Message)
	}
}

func pagePercent(pageNum int) int {
	p := 10 + pageNum*8
	if p > 90 {
		p = 90
	}
	return p
}
