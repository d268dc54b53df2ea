// Package adjust provides the pure image transformation steps applied to
// raster pages between capture and output.
package adjust

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/mfpkit/copyflow/core"
	apperrors "github.com/mfpkit/copyflow/errors"
	"github.com/mfpkit/copyflow/utils"
)

// Step transforms one raster page into another.  Steps are pure: the input
// page is never modified and a new page is returned, except when the step is
// a no-op for its parameters, in which case the input page passes through.
// Steps must be safe for concurrent use across goroutines.
type Step interface {
	Name() string
	Apply(ctx context.Context, page *core.RasterPage) (*core.RasterPage, error)
}

// Chain applies steps in order, threading page ownership forward.
func Chain(ctx context.Context, page *core.RasterPage, steps ...Step) (*core.RasterPage, error) {
	current := page
	for _, step := range steps {
		next, err := step.Apply(ctx, current)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// StepsFor translates an AdjustmentSpec into the standard correction order:
// brightness/contrast, then sharpen, then scale.  Neutral fields produce no
// step at all.
func StepsFor(spec core.AdjustmentSpec) []Step {
	var steps []Step
	if spec.Brightness != 0 || spec.Contrast != 0 {
		steps = append(steps, &BrightnessContrastStep{Brightness: spec.Brightness, Contrast: spec.Contrast})
	}
	if spec.Sharpness > 0 {
		steps = append(steps, &SharpenStep{Amount: spec.Sharpness})
	}
	if spec.ScalePercent != 0 && spec.ScalePercent != 100 {
		steps = append(steps, &ScalePercentStep{Percent: spec.ScalePercent})
	}
	return steps
}

// ── Brightness / contrast ─────────────────────────────────────────────────────

// BrightnessContrastStep shifts and stretches channel values.  With values in
// normalised [0,1] space the transfer function is
//
//	out = clamp(v*(1 + contrast/100) + (1 + brightness/100) - 1, 0, 1)
//
// Alpha is passed through untouched.
type BrightnessContrastStep struct {
	Brightness int // -50..50
	Contrast   int // -50..50
}

func (s *BrightnessContrastStep) Name() string { return "brightness_contrast" }

func (s *BrightnessContrastStep) Apply(ctx context.Context, page *core.RasterPage) (*core.RasterPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryAdjust, s.Name(), err)
	}
	if s.Brightness == 0 && s.Contrast == 0 {
		return page, nil // nothing to do
	}

	contrastFactor := 1 + float64(s.Contrast)/100
	// The brightness offset is (brightnessFactor-1) in [0,1] space, which is
	// the same shift scaled by 255 in channel space.
	offset := float64(s.Brightness) / 100 * 255

	src := page.Pix
	b := src.Bounds()
	dst := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		si := src.PixOffset(b.Min.X, y)
		di := dst.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Pix[di+0] = utils.Clamp8(float64(src.Pix[si+0])*contrastFactor + offset)
			dst.Pix[di+1] = utils.Clamp8(float64(src.Pix[si+1])*contrastFactor + offset)
			dst.Pix[di+2] = utils.Clamp8(float64(src.Pix[si+2])*contrastFactor + offset)
			dst.Pix[di+3] = src.Pix[si+3]
			si += 4
			di += 4
		}
	}
	return &core.RasterPage{Pix: dst, DPI: page.DPI}, nil
}

// ── Sharpen ───────────────────────────────────────────────────────────────────

// SharpenStep applies a 3x3 unsharp kernel to interior pixels.  With
// f = Amount/100 the kernel weights are 1+4f at the centre, -f on the four
// orthogonal neighbours and 0 on the diagonals.  The 1-pixel border is left
// unmodified.
type SharpenStep struct {
	Amount int // 0..100
}

func (s *SharpenStep) Name() string { return "sharpen" }

func (s *SharpenStep) Apply(ctx context.Context, page *core.RasterPage) (*core.RasterPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryAdjust, s.Name(), err)
	}
	if s.Amount == 0 {
		return page, nil
	}

	f := float64(s.Amount) / 100
	center := 1 + 4*f

	src := page.Pix
	b := src.Bounds()
	dst := image.NewRGBA(b)
	copy(dst.Pix, src.Pix) // border rows and columns stay as-is

	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			i := src.PixOffset(x, y)
			up := src.PixOffset(x, y-1)
			down := src.PixOffset(x, y+1)
			left := src.PixOffset(x-1, y)
			right := src.PixOffset(x+1, y)
			for c := 0; c < 3; c++ {
				v := center*float64(src.Pix[i+c]) -
					f*(float64(src.Pix[up+c])+float64(src.Pix[down+c])+
						float64(src.Pix[left+c])+float64(src.Pix[right+c]))
				dst.Pix[dst.PixOffset(x, y)+c] = utils.Clamp8(v)
			}
		}
	}
	return &core.RasterPage{Pix: dst, DPI: page.DPI}, nil
}

// ── Scale ─────────────────────────────────────────────────────────────────────

// ScaleStep resamples the page into a target box.  With PreserveAspect the
// output is the largest size fitting (MaxWidth, MaxHeight) at the source
// aspect ratio; otherwise the box dimensions are used exactly.
type ScaleStep struct {
	MaxWidth, MaxHeight int
	PreserveAspect      bool
	// Resampler controls quality vs speed.  Defaults to xdraw.CatmullRom.
	Resampler xdraw.Interpolator
}

func (s *ScaleStep) Name() string { return "scale" }

func (s *ScaleStep) Apply(ctx context.Context, page *core.RasterPage) (*core.RasterPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryAdjust, s.Name(), err)
	}

	srcW, srcH := page.Width(), page.Height()
	dstW, dstH := s.MaxWidth, s.MaxHeight
	if s.PreserveAspect {
		dstW, dstH = core.FitDimensions(srcW, srcH, s.MaxWidth, s.MaxHeight)
	}
	if dstW <= 0 || dstH <= 0 {
		return nil, apperrors.New(apperrors.CategoryAdjust, s.Name(), apperrors.ErrInvalidDimensions)
	}
	if dstW == srcW && dstH == srcH {
		return page, nil
	}

	sampler := s.Resampler
	if sampler == nil {
		sampler = xdraw.CatmullRom
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	sampler.Scale(dst, dst.Bounds(), page.Pix, page.Pix.Bounds(), xdraw.Src, nil)
	return &core.RasterPage{Pix: dst, DPI: page.DPI}, nil
}

// ScalePercentStep resizes by a percentage of the original dimensions.  Both
// axes use the same factor directly, so no separate fit ratio is computed.
type ScalePercentStep struct {
	Percent   int // 25..400
	Resampler xdraw.Interpolator
}

func (s *ScalePercentStep) Name() string { return "scale_percent" }

func (s *ScalePercentStep) Apply(ctx context.Context, page *core.RasterPage) (*core.RasterPage, error) {
	if s.Percent == 100 || s.Percent == 0 {
		return page, nil
	}
	dstW := int(float64(page.Width()) * float64(s.Percent) / 100)
	dstH := int(float64(page.Height()) * float64(s.Percent) / 100)
	inner := &ScaleStep{MaxWidth: dstW, MaxHeight: dstH, Resampler: s.Resampler}
	out, err := inner.Apply(ctx, page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryAdjust, s.Name(), err)
	}
	return out, nil
}

// ── Rotate ────────────────────────────────────────────────────────────────────

// RotateStep rotates the page by an arbitrary angle about its centre into a
// canvas of the original size.  Content leaving the original bounds is
// clipped; uncovered corners are filled white.
type RotateStep struct {
	Degrees float64
}

func (s *RotateStep) Name() string { return "rotate" }

func (s *RotateStep) Apply(ctx context.Context, page *core.RasterPage) (*core.RasterPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryAdjust, s.Name(), err)
	}
	if s.Degrees == 0 {
		return page, nil
	}

	b := page.Pix.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)

	rad := s.Degrees * math.Pi / 180
	sin, cos := math.Sincos(rad)
	cx := float64(b.Min.X) + float64(b.Dx())/2
	cy := float64(b.Min.Y) + float64(b.Dy())/2

	// Rotation about (cx, cy): translate to origin, rotate, translate back.
	m := f64.Aff3{
		cos, -sin, cx - cos*cx + sin*cy,
		sin, cos, cy - sin*cx - cos*cy,
	}
	xdraw.BiLinear.Transform(dst, m, page.Pix, b, xdraw.Over, nil)
	return &core.RasterPage{Pix: dst, DPI: page.DPI}, nil
}

// ── Crop ──────────────────────────────────────────────────────────────────────

// CropStep extracts an axis-aligned rectangle into a new page of the
// rectangle's dimensions.
type CropStep struct {
	X, Y, Width, Height int
}

func (s *CropStep) Name() string { return "crop" }

func (s *CropStep) Apply(ctx context.Context, page *core.RasterPage) (*core.RasterPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryAdjust, s.Name(), err)
	}

	rect := image.Rect(s.X, s.Y, s.X+s.Width, s.Y+s.Height)
	if !rect.In(page.Pix.Bounds()) {
		return nil, apperrors.New(apperrors.CategoryAdjust, s.Name(),
			fmt.Errorf("crop rect %v exceeds page bounds %v", rect, page.Pix.Bounds()))
	}

	dst := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	draw.Draw(dst, dst.Bounds(), page.Pix, rect.Min, draw.Src)
	return &core.RasterPage{Pix: dst, DPI: page.DPI}, nil
}
