// Package compose assembles raster pages into printable, paginated output.
package compose

import (
	"context"
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/mfpkit/copyflow/core"
	apperrors "github.com/mfpkit/copyflow/errors"
)

// Composer places raster pages onto fixed-size output canvases.
type Composer struct {
	Paper       core.PaperSize
	Orientation core.Orientation
	DPI         int
	// Two-up layout geometry, in printer's points.
	MarginPt  float64
	SpacingPt float64
	// Resampler controls placement quality.  Defaults to xdraw.CatmullRom.
	Resampler xdraw.Interpolator
}

// New returns a Composer with the layout constants used by the ID-copy sheet.
func New(paper core.PaperSize, orient core.Orientation, dpi int) *Composer {
	return &Composer{
		Paper:       paper,
		Orientation: orient,
		DPI:         dpi,
		MarginPt:    20,
		SpacingPt:   20,
	}
}

// Paginate produces one output page per input page, each placed full-bleed:
// fit to the page with aspect preserved and centred on both axes, in input
// order.  Composing an empty document is a caller error.
func (c *Composer) Paginate(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if doc == nil || doc.Len() == 0 {
		return nil, apperrors.New(apperrors.CategoryCompose, "compose.paginate", apperrors.ErrEmptyDocument)
	}

	out := core.NewDocument()
	for i := 0; i < doc.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryCompose, "compose.paginate", err)
		}
		page := doc.Page(i)
		canvas := c.blankCanvas(c.Orientation)
		fit := core.FitRect(canvas.Pix.Bounds(), page.Width(), page.Height())
		c.drawFitted(canvas.Pix, fit, page.Pix)
		out.Append(canvas)
	}
	return out, nil
}

// TwoUp places the front page in the upper half and the back page in the
// lower half of a single portrait output page.  Each side is fit-to-box
// within its half after subtracting the outer margin and the inter-half
// spacing, centred independently, with a divider line drawn at the vertical
// midpoint between the halves.
func (c *Composer) TwoUp(ctx context.Context, front, back *core.RasterPage) (*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryCompose, "compose.two_up", err)
	}
	if !front.Valid() || !back.Valid() {
		return nil, apperrors.New(apperrors.CategoryCompose, "compose.two_up", apperrors.ErrEmptyDocument)
	}

	canvas := c.blankCanvas(core.Portrait)
	b := canvas.Pix.Bounds()
	pageW, pageH := b.Dx(), b.Dy()

	margin := core.PointsToPixels(c.MarginPt, c.DPI)
	spacing := core.PointsToPixels(c.SpacingPt, c.DPI)
	availW := pageW - 2*margin
	availH := (pageH - 2*margin - spacing) / 2

	frontBox := image.Rect(margin, margin, margin+availW, margin+availH)
	c.drawFitted(canvas.Pix, core.FitRect(frontBox, front.Width(), front.Height()), front.Pix)

	middleY := margin + availH + spacing/2
	drawDivider(canvas.Pix, margin, pageW-margin, middleY, core.PointsToPixels(1, c.DPI))

	backTop := margin + availH + spacing
	backBox := image.Rect(margin, backTop, margin+availW, backTop+availH)
	c.drawFitted(canvas.Pix, core.FitRect(backBox, back.Width(), back.Height()), back.Pix)

	out := core.NewDocument()
	out.Append(canvas)
	return out, nil
}

// blankCanvas allocates a white output page at the composer's paper size.
func (c *Composer) blankCanvas(orient core.Orientation) *core.RasterPage {
	w, h := core.PaperPixels(c.Paper, orient, c.DPI)
	page := core.NewRasterPage(w, h, c.DPI)
	draw.Draw(page.Pix, page.Pix.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return page
}

func (c *Composer) drawFitted(dst *image.RGBA, rect image.Rectangle, src *image.RGBA) {
	sampler := c.Resampler
	if sampler == nil {
		sampler = xdraw.CatmullRom
	}
	sampler.Scale(dst, rect, src, src.Bounds(), xdraw.Src, nil)
}

var dividerGray = color.RGBA{R: 0xD3, G: 0xD3, B: 0xD3, A: 0xFF}

// drawDivider paints a horizontal light-gray rule centred on y.
func drawDivider(dst *image.RGBA, x0, x1, y, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	top := y - thickness/2
	draw.Draw(dst, image.Rect(x0, top, x1, top+thickness),
		image.NewUniform(dividerGray), image.Point{}, draw.Src)
}
