package encoder

import (
	"context"
	"image/jpeg"
	"io"

	"github.com/mfpkit/copyflow/core"
	apperrors "github.com/mfpkit/copyflow/errors"
)

// JPEG encodes pages with lossy compression.
type JPEG struct {
	Quality int // 1-100
}

func NewJPEG(quality int) *JPEG {
	if quality <= 0 {
		quality = 85
	}
	return &JPEG{Quality: quality}
}

func (j *JPEG) Extension() string { return ".jpg" }

func (j *JPEG) Encode(ctx context.Context, page *core.RasterPage, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "jpeg.encode", err)
	}
	if !page.Valid() {
		return apperrors.New(apperrors.CategoryStorage, "jpeg.encode", apperrors.ErrInvalidDimensions)
	}
	if err := jpeg.Encode(w, page.Pix, &jpeg.Options{Quality: j.Quality}); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "jpeg.encode", err)
	}
	return nil
}

var _ core.PageEncoder = (*JPEG)(nil)
