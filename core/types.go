package core

import (
	"image"
)

// ScanSource selects which part of the device feeds pages.
type ScanSource string

const (
	SourceFlatbed ScanSource = "flatbed"
	SourceFeeder  ScanSource = "feeder"
)

// ColorMode represents the capture colour model.
type ColorMode string

const (
	ColorModeColor      ColorMode = "color"
	ColorModeGrayscale  ColorMode = "grayscale"
	ColorModeMonochrome ColorMode = "monochrome"
)

// CopyMode selects which sequence of pipeline stages an operation runs.
type CopyMode string

const (
	// ModeInstant scans and prints page by page without an intermediate document.
	ModeInstant CopyMode = "instant"
	// ModeDeferred captures the full document, composes it, then prints one job.
	ModeDeferred CopyMode = "deferred"
	// ModeIDCopy places both sides of a flat document on one output page.
	ModeIDCopy CopyMode = "idcopy"
)

// PaperSize identifies a physical output page size.
type PaperSize string

const (
	PaperA4     PaperSize = "A4"
	PaperLetter PaperSize = "Letter"
	PaperLegal  PaperSize = "Legal"
	PaperA5     PaperSize = "A5"
	PaperB5     PaperSize = "B5"
)

// Orientation of the output page.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// RasterPage is the unit of work flowing through the pipeline: a decoded
// pixel buffer with an explicit resolution.  A page is owned by exactly one
// pipeline stage at a time; transforms return a new page and the caller must
// treat the input as retired.
type RasterPage struct {
	Pix *image.RGBA
	DPI int
}

// NewRasterPage allocates a page of the given pixel dimensions.
func NewRasterPage(width, height, dpi int) *RasterPage {
	return &RasterPage{Pix: image.NewRGBA(image.Rect(0, 0, width, height)), DPI: dpi}
}

// Width returns the page width in pixels.
func (p *RasterPage) Width() int { return p.Pix.Bounds().Dx() }

// Height returns the page height in pixels.
func (p *RasterPage) Height() int { return p.Pix.Bounds().Dy() }

// Valid reports whether the page satisfies the pipeline invariants.
func (p *RasterPage) Valid() bool {
	return p != nil && p.Pix != nil && p.Width() > 0 && p.Height() > 0 && p.DPI > 0
}

// Document is an ordered sequence of raster pages; insertion order is the
// intended print order and is never rearranged implicitly.
type Document struct {
	pages []*RasterPage
}

// NewDocument returns an empty document.
func NewDocument() *Document { return &Document{} }

// Append adds a page at the end of the document, taking ownership of it.
func (d *Document) Append(p *RasterPage) { d.pages = append(d.pages, p) }

// Len returns the number of pages.
func (d *Document) Len() int { return len(d.pages) }

// Page returns the i-th page (0-based).
func (d *Document) Page(i int) *RasterPage { return d.pages[i] }

// Replace swaps the i-th page for a transformed one, retiring the old page.
func (d *Document) Replace(i int, p *RasterPage) { d.pages[i] = p }

// Release drops all page references so transient documents can be reclaimed
// before the owning operation reaches its terminal state.
func (d *Document) Release() { d.pages = nil }

// CaptureRequest describes a single-page acquisition.  Immutable once issued.
type CaptureRequest struct {
	Source    ScanSource
	DPI       int
	ColorMode ColorMode
}

// AdjustmentSpec carries the user-facing image corrections.  Every field is a
// no-op at its neutral value (0, 0, 0, 100).
type AdjustmentSpec struct {
	Brightness   int // -50..50
	Contrast     int // -50..50
	Sharpness    int // 0..100
	ScalePercent int // 25..400; 100 = original size
}

// Neutral reports whether the spec changes nothing.
func (a AdjustmentSpec) Neutral() bool {
	return a.Brightness == 0 && a.Contrast == 0 && a.Sharpness == 0 &&
		(a.ScalePercent == 100 || a.ScalePercent == 0)
}

// PrintJobSpec describes one print job.  Copies, duplex, paper size and
// orientation apply once per job, not per page.
type PrintJobSpec struct {
	Copies      int
	Duplex      bool
	PageRange   string // "", "all", "1-5", "1,3,5-7"
	PaperSize   PaperSize
	Orientation Orientation

	// Optional per-job corrections applied before streaming.
	Adjust AdjustmentSpec
}

// CopySettings parameterises a copy operation.
type CopySettings struct {
	Mode         CopyMode
	Source       ScanSource
	Copies       int
	Duplex       bool
	Brightness   int
	Contrast     int
	ScalePercent int
}

// ProgressEvent reports operation progress.  Percent is monotonically
// non-decreasing within one operation and the final event is always 100.
type ProgressEvent struct {
	Percent int
	Message string
}

// State enumerates the orchestrator's operation states.
type State string

const (
	StateIdle      State = "idle"
	StateCapturing State = "capturing"
	StateAdjusting State = "adjusting"
	StateAwaitFlip State = "await_flip"
	StateComposing State = "composing"
	StatePrinting  State = "printing"
	StateDone      State = "done"
	StateFailed    State = "failed"
)
