// Package renderer implements the external DocumentRenderer collaborator on
// top of go-fitz (MuPDF), turning PDF files into ordered raster pages.
package renderer

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"

	"github.com/mfpkit/copyflow/core"
	apperrors "github.com/mfpkit/copyflow/errors"
)

// Fitz renders PDF documents page by page at a requested resolution.
type Fitz struct{}

// NewFitz creates a go-fitz backed renderer.
func NewFitz() *Fitz { return &Fitz{} }

// Render opens filePath and rasterises every page at dpi, in document order.
func (f *Fitz) Render(ctx context.Context, filePath string, dpi int) ([]*core.RasterPage, error) {
	if dpi <= 0 {
		dpi = 300
	}

	doc, err := fitz.New(filePath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryRender, "fitz.open", err)
	}
	defer doc.Close()

	count := doc.NumPage()
	if count == 0 {
		return nil, apperrors.New(apperrors.CategoryRender, "fitz.render", apperrors.ErrEmptyDocument)
	}

	pages := make([]*core.RasterPage, 0, count)
	for n := 0; n < count; n++ {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryRender, "fitz.render", err)
		}
		img, err := doc.ImageDPI(n, float64(dpi))
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryRender,
				fmt.Sprintf("fitz.render.page_%d", n+1), err)
		}
		pages = append(pages, &core.RasterPage{Pix: img, DPI: dpi})
	}
	return pages, nil
}

var _ core.DocumentRenderer = (*Fitz)(nil)
