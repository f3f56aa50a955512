package processor

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
)

// BlendMode selects the separable function used to mix a layer colour with
// the pixel beneath it.
type BlendMode int

const (
	Normal BlendMode = iota
	Overlay
	Multiply
)

func (m BlendMode) String() string {
	switch m {
	case Normal:
		return "normal"
	case Overlay:
		return "overlay"
	case Multiply:
		return "multiply"
	default:
		return fmt.Sprintf("BlendMode(%d)", int(m))
	}
}

// blendFuncs maps each mode to B(backdrop, source) on channels in [0, 1].
var blendFuncs = [...]func(cb, cs float64) float64{
	Normal: func(_, cs float64) float64 {
		return cs
	},
	Overlay: func(cb, cs float64) float64 {
		if cb <= 0.5 {
			return 2 * cs * cb
		}
		return screen(cs, 2*cb-1)
	},
	Multiply: func(cb, cs float64) float64 {
		return cb * cs
	},
}

func screen(cb, cs float64) float64 {
	return cb + cs - cb*cs
}

// Composite paints layer onto dst in place with source-over compositing,
// mixing colours through mode where the two overlap. Unknown modes fall back
// to Normal.
func Composite(dst *image.NRGBA, layer gg.Pattern, mode BlendMode) {
	if mode < 0 || int(mode) >= len(blendFuncs) {
		mode = Normal
	}
	blend := blendFuncs[mode]

	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			lc := color.NRGBAModel.Convert(layer.ColorAt(x-b.Min.X, y-b.Min.Y)).(color.NRGBA)
			if lc.A == 0 {
				continue
			}

			i := dst.PixOffset(x, y)
			as := float64(lc.A) / 255
			ab := float64(dst.Pix[i+3]) / 255
			ao := as + ab*(1-as)

			src := [3]uint8{lc.R, lc.G, lc.B}
			for c := 0; c < 3; c++ {
				cb := float64(dst.Pix[i+c]) / 255
				cs := float64(src[c]) / 255
				mixed := (1-ab)*cs + ab*blend(cb, cs)
				co := as*mixed + (1-as)*ab*cb
				dst.Pix[i+c] = to8(co / ao)
			}
			dst.Pix[i+3] = to8(ao)
		}
	}
}

var (
	warmTint = color.NRGBA{R: 255, G: 180, B: 0}
	coolTint = color.NRGBA{R: 0, G: 100, B: 255}
)

// warmthLayer is a flat amber (warmth > 0) or blue (warmth < 0) layer with
// opacity |warmth|/200.
func warmthLayer(warmth float64) gg.Pattern {
	c := warmTint
	if warmth < 0 {
		c = coolTint
	}
	c.A = to8(math.Abs(warmth) / 200)
	return gg.NewSolidPattern(c)
}

// vignetteLayer is a radial gradient from transparent at 0.3*min(w,h) to
// black at opacity vignette/100 at 0.8*max(w,h), centred on the canvas.
func vignetteLayer(w, h int, vignette float64) gg.Pattern {
	cx, cy := float64(w)/2, float64(h)/2
	inner := 0.3 * float64(min(w, h))
	outer := 0.8 * float64(max(w, h))

	g := gg.NewRadialGradient(cx, cy, inner, cx, cy, outer)
	g.AddColorStop(0, color.NRGBA{})
	g.AddColorStop(1, color.NRGBA{A: to8(vignette / 100)})
	return g
}
