// Package encoder provides PageEncoder implementations for scan output.
package encoder

import (
	"context"
	"image/png"
	"io"

	"github.com/mfpkit/copyflow/core"
	apperrors "github.com/mfpkit/copyflow/errors"
)

// PNG encodes pages losslessly using the standard library.
type PNG struct{}

func NewPNG() *PNG { return &PNG{} }

func (p *PNG) Extension() string { return ".png" }

func (p *PNG) Encode(ctx context.Context, page *core.RasterPage, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "png.encode", err)
	}
	if !page.Valid() {
		return apperrors.New(apperrors.CategoryStorage, "png.encode", apperrors.ErrInvalidDimensions)
	}
	if err := png.Encode(w, page.Pix); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "png.encode", err)
	}
	return nil
}

var _ core.PageEncoder = (*PNG)(nil)
