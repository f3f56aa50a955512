package preset

import (
	"fmt"
	"math"

	"github.com/aliskhannn/lumina/internal/model"
)

// IntensityRange is the domain of a blend intensity.
var IntensityRange = model.Range{Min: 0, Max: 100}

// Blend interpolates each field independently from neutral towards the
// preset target. Fields the target does not override stay at their neutral
// value. The result is always computed from neutral, never from a previous
// blend, so repeated calls cannot drift.
//
// The lerp is written as n*(1-t) + v*t so that intensity 0 and 100 yield
// neutral and the full merge bit-for-bit.
func Blend(neutral model.Adjustments, target model.Overrides, intensity float64) (model.Adjustments, error) {
	if math.IsNaN(intensity) || !IntensityRange.Contains(intensity) {
		return model.Adjustments{}, fmt.Errorf("intensity=%v not in [0, 100]: %w", intensity, model.ErrOutOfRange)
	}
	if err := target.Validate(); err != nil {
		return model.Adjustments{}, fmt.Errorf("preset target: %w", err)
	}

	t := intensity / 100
	effective := target.Merge(neutral)

	var out model.Adjustments
	for _, f := range model.Fields() {
		n := neutral.Get(f)
		v := effective.Get(f)
		out.Set(f, n*(1-t)+v*t)
	}

	return out, nil
}

// Merge applies a preset at full intensity.
func Merge(neutral model.Adjustments, target model.Overrides) (model.Adjustments, error) {
	return Blend(neutral, target, IntensityRange.Max)
}
