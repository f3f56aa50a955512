package processor

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
)

// fillFactor scales content up as the canvas rotates so that most of the
// exposed corners stay covered. Coverage is not exact near ±45°.
const fillFactor = 0.8

// FillScale returns the uniform scale applied for a rotation of degrees.
func FillScale(degrees float64) float64 {
	return 1 + math.Abs(math.Sin(gg.Radians(degrees)))*fillFactor
}

// rotate turns src about its centre and scales it by FillScale about the
// same point. Uncovered pixels are left transparent.
func rotate(src *image.NRGBA, degrees float64) *image.NRGBA {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	cx, cy := float64(w)/2, float64(h)/2
	scale := FillScale(degrees)

	dc := gg.NewContext(w, h)
	dc.RotateAbout(gg.Radians(degrees), cx, cy)
	dc.ScaleAbout(scale, scale, cx, cy)
	dc.DrawImage(src, 0, 0)

	return imaging.Clone(dc.Image())
}
