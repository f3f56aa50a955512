package processor

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/aliskhannn/lumina/internal/model"
)

// sharpenSigmaPerUnit maps the sharpness field (0..50) onto the unsharp
// mask radius (0..5px).
const sharpenSigmaPerUnit = 0.1

// rgb holds a colour as unpremultiplied channels in [0, 1].
type rgb [3]float64

type colorOp func(rgb) rgb

// tone runs the global stage: brightness, contrast, saturation, blur,
// sharpening, sepia and hue rotation, in that order. Channels are clamped
// after every step. Zero-valued parameters are skipped entirely.
func tone(img *image.NRGBA, adj model.Adjustments) *image.NRGBA {
	var pre []colorOp
	if adj.Exposure != 0 {
		pre = append(pre, brightness(1+adj.Exposure/100))
	}
	if adj.Contrast != 0 {
		pre = append(pre, contrast(1+adj.Contrast/100))
	}
	if adj.Saturation != 0 {
		pre = append(pre, saturate(1+adj.Saturation/100).op)
	}
	img = adjustColors(img, pre)

	if adj.Blur > 0 {
		img = imaging.Blur(img, adj.Blur)
	}
	if adj.Sharpness > 0 {
		img = imaging.Sharpen(img, adj.Sharpness*sharpenSigmaPerUnit)
	}

	var post []colorOp
	if adj.Warmth > 0 {
		post = append(post, sepia(adj.Warmth*0.5/100).op)
	}
	if adj.Tint != 0 {
		post = append(post, hueRotate(adj.Tint).op)
	}

	return adjustColors(img, post)
}

func adjustColors(img *image.NRGBA, ops []colorOp) *image.NRGBA {
	if len(ops) == 0 {
		return img
	}

	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		v := rgb{float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255}
		for _, op := range ops {
			v = clampRGB(op(v))
		}
		return color.NRGBA{R: to8(v[0]), G: to8(v[1]), B: to8(v[2]), A: c.A}
	})
}

// brightness scales every channel linearly.
func brightness(amount float64) colorOp {
	return func(c rgb) rgb {
		for i := range c {
			c[i] *= amount
		}
		return c
	}
}

// contrast scales every channel about mid-gray.
func contrast(amount float64) colorOp {
	return func(c rgb) rgb {
		for i := range c {
			c[i] = (c[i]-0.5)*amount + 0.5
		}
		return c
	}
}

// matrix is a row-major 3x3 colour matrix.
type matrix [9]float64

func (m matrix) op(c rgb) rgb {
	return rgb{
		m[0]*c[0] + m[1]*c[1] + m[2]*c[2],
		m[3]*c[0] + m[4]*c[1] + m[5]*c[2],
		m[6]*c[0] + m[7]*c[1] + m[8]*c[2],
	}
}

// saturate returns the luminance-preserving saturation matrix. At s == 0 all
// three rows are identical, so the output is exactly gray.
func saturate(s float64) matrix {
	return matrix{
		0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s,
		0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s,
		0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s,
	}
}

// sepia returns the sepia toning matrix for an amount in [0, 1].
func sepia(amount float64) matrix {
	k := 1 - math.Min(1, math.Max(0, amount))
	return matrix{
		0.393 + 0.607*k, 0.769 - 0.769*k, 0.189 - 0.189*k,
		0.349 - 0.349*k, 0.686 + 0.314*k, 0.168 - 0.168*k,
		0.272 - 0.272*k, 0.534 - 0.534*k, 0.131 + 0.869*k,
	}
}

// hueRotate returns the matrix rotating hues by degrees on the standard
// hue circle. Grays are fixed points.
func hueRotate(degrees float64) matrix {
	rad := degrees * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	return matrix{
		0.213 + cos*0.787 - sin*0.213, 0.715 - cos*0.715 - sin*0.715, 0.072 - cos*0.072 + sin*0.928,
		0.213 - cos*0.213 + sin*0.143, 0.715 + cos*0.285 + sin*0.140, 0.072 - cos*0.072 - sin*0.283,
		0.213 - cos*0.213 - sin*0.787, 0.715 - cos*0.715 + sin*0.715, 0.072 + cos*0.928 + sin*0.072,
	}
}

func clampRGB(c rgb) rgb {
	for i := range c {
		c[i] = clamp01(c[i])
	}
	return c
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func to8(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}
