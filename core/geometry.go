package core

import "image"

// Paper dimensions in millimetres, portrait.
var paperMM = map[PaperSize][2]float64{
	PaperA4:     {210, 297},
	PaperLetter: {216, 279},
	PaperLegal:  {216, 356},
	PaperA5:     {148, 210},
	PaperB5:     {176, 250},
}

const mmPerInch = 25.4

// KnownPaper reports whether size has a defined physical dimension.
func KnownPaper(size PaperSize) bool {
	_, ok := paperMM[size]
	return ok
}

// PaperPixels returns the paper dimensions in pixels at the given resolution,
// swapped for landscape orientation.  Unknown sizes fall back to A4.
func PaperPixels(size PaperSize, orient Orientation, dpi int) (int, int) {
	mm, ok := paperMM[size]
	if !ok {
		mm = paperMM[PaperA4]
	}
	w := int(mm[0] / mmPerInch * float64(dpi))
	h := int(mm[1] / mmPerInch * float64(dpi))
	if orient == Landscape {
		w, h = h, w
	}
	return w, h
}

// PointsToPixels converts a distance in printer's points (1/72 inch) to
// pixels at the given resolution.
func PointsToPixels(pt float64, dpi int) int {
	return int(pt / 72.0 * float64(dpi))
}

// FitDimensions returns the largest (w, h) that fits within (maxW, maxH)
// while preserving the source aspect ratio.  Dimensions are truncated, never
// rounded up, so the result always fits the box.
func FitDimensions(srcW, srcH, maxW, maxH int) (int, int) {
	ratioX := float64(maxW) / float64(srcW)
	ratioY := float64(maxH) / float64(srcH)
	ratio := ratioX
	if ratioY < ratio {
		ratio = ratioY
	}
	return int(float64(srcW) * ratio), int(float64(srcH) * ratio)
}

// FitRect places an image of (srcW, srcH) inside bounds, scaled with aspect
// preserved and centred on both axes.
func FitRect(bounds image.Rectangle, srcW, srcH int) image.Rectangle {
	w, h := FitDimensions(srcW, srcH, bounds.Dx(), bounds.Dy())
	x := bounds.Min.X + (bounds.Dx()-w)/2
	y := bounds.Min.Y + (bounds.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h)
}
