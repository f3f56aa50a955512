package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange is returned when an adjustment value or a preset intensity
// lies outside its declared domain.
var ErrOutOfRange = errors.New("value out of range")

// ErrUnknownField is returned for a field name outside the adjustment vector.
var ErrUnknownField = errors.New("unknown adjustment field")

// Field names one scalar parameter of an Adjustments vector.
type Field string

const (
	Exposure   Field = "exposure"
	Contrast   Field = "contrast"
	Saturation Field = "saturation"
	Warmth     Field = "warmth"
	Tint       Field = "tint"
	Blur       Field = "blur"
	Vignette   Field = "vignette"
	Sharpness  Field = "sharpness"
	Rotate     Field = "rotate"
)

// Range is the closed interval a field may take.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies in the range. NaN never does.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// fields lists every field in its canonical order together with its domain.
var fields = []struct {
	field Field
	rng   Range
}{
	{Exposure, Range{-100, 100}},
	{Contrast, Range{-100, 100}},
	{Saturation, Range{-100, 100}},
	{Warmth, Range{-100, 100}},
	{Tint, Range{-100, 100}},
	{Blur, Range{0, 20}},
	{Vignette, Range{0, 100}},
	{Sharpness, Range{0, 50}},
	{Rotate, Range{-45, 45}},
}

// Fields returns all fields in canonical order.
func Fields() []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = f.field
	}
	return out
}

// Domain returns the declared range of f.
func Domain(f Field) (Range, bool) {
	for _, d := range fields {
		if d.field == f {
			return d.rng, true
		}
	}
	return Range{}, false
}

// Adjustments is the nine-parameter vector describing one edit state.
// The zero value is the neutral edit.
type Adjustments struct {
	Exposure   float64 `json:"exposure"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Warmth     float64 `json:"warmth"`
	Tint       float64 `json:"tint"`
	Blur       float64 `json:"blur"`
	Vignette   float64 `json:"vignette"`
	Sharpness  float64 `json:"sharpness"`
	Rotate     float64 `json:"rotate"`
}

// Neutral returns the identity edit.
func Neutral() Adjustments {
	return Adjustments{}
}

// IsNeutral reports whether every field holds its neutral value.
func (a Adjustments) IsNeutral() bool {
	return a == Adjustments{}
}

// Get returns the value of f.
func (a Adjustments) Get(f Field) float64 {
	if p := a.ptr(f); p != nil {
		return *p
	}
	return 0
}

// Set assigns v to f without validating it.
func (a *Adjustments) Set(f Field, v float64) {
	if p := a.ptr(f); p != nil {
		*p = v
	}
}

func (a *Adjustments) ptr(f Field) *float64 {
	switch f {
	case Exposure:
		return &a.Exposure
	case Contrast:
		return &a.Contrast
	case Saturation:
		return &a.Saturation
	case Warmth:
		return &a.Warmth
	case Tint:
		return &a.Tint
	case Blur:
		return &a.Blur
	case Vignette:
		return &a.Vignette
	case Sharpness:
		return &a.Sharpness
	case Rotate:
		return &a.Rotate
	default:
		return nil
	}
}

// Validate checks every field against its domain and returns an error
// wrapping ErrOutOfRange for the first violation.
func (a Adjustments) Validate() error {
	for _, d := range fields {
		if err := ValidateField(d.field, a.Get(d.field)); err != nil {
			return err
		}
	}
	return nil
}

// ValidateField checks a single value against the domain of f.
func ValidateField(f Field, v float64) error {
	rng, ok := Domain(f)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	if math.IsNaN(v) || !rng.Contains(v) {
		return fmt.Errorf("%s=%v not in [%v, %v]: %w", f, v, rng.Min, rng.Max, ErrOutOfRange)
	}
	return nil
}

// Clamp pulls every field into its domain. NaN becomes the neutral value.
func (a Adjustments) Clamp() Adjustments {
	out := a
	for _, d := range fields {
		v := out.Get(d.field)
		switch {
		case math.IsNaN(v):
			v = 0
		case v < d.rng.Min:
			v = d.rng.Min
		case v > d.rng.Max:
			v = d.rng.Max
		}
		out.Set(d.field, v)
	}
	return out
}

// Overrides is a partial Adjustments: only the fields it names are set.
type Overrides map[Field]float64

// Merge returns base with every field named in o replaced by its override.
func (o Overrides) Merge(base Adjustments) Adjustments {
	out := base
	for f, v := range o {
		out.Set(f, v)
	}
	return out
}

// Validate checks that every override names a known field within its domain.
func (o Overrides) Validate() error {
	for f, v := range o {
		if err := ValidateField(f, v); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an independent copy of o.
func (o Overrides) Clone() Overrides {
	if o == nil {
		return nil
	}
	out := make(Overrides, len(o))
	for f, v := range o {
		out[f] = v
	}
	return out
}
