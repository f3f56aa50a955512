package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeutral(t *testing.T) {
	n := Neutral()
	assert.True(t, n.IsNeutral())
	assert.NoError(t, n.Validate())

	n.Set(Tint, 1)
	assert.False(t, n.IsNeutral())
}

func TestFieldsAndDomains(t *testing.T) {
	fs := Fields()
	require.Len(t, fs, 9)
	assert.Equal(t, Exposure, fs[0])
	assert.Equal(t, Rotate, fs[8])

	rng, ok := Domain(Sharpness)
	require.True(t, ok)
	assert.Equal(t, Range{Min: 0, Max: 50}, rng)

	_, ok = Domain("gamma")
	assert.False(t, ok)
}

func TestGetSetCoversEveryField(t *testing.T) {
	var a Adjustments
	for i, f := range Fields() {
		a.Set(f, float64(i+1))
	}
	for i, f := range Fields() {
		assert.Equal(t, float64(i+1), a.Get(f), f)
	}

	a.Set("gamma", 5)
	assert.Zero(t, a.Get("gamma"))
}

func TestValidateField(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		value float64
		err   error
	}{
		{"min exposure", Exposure, -100, nil},
		{"max exposure", Exposure, 100, nil},
		{"exposure above", Exposure, 100.5, ErrOutOfRange},
		{"negative blur", Blur, -1, ErrOutOfRange},
		{"blur limit", Blur, 20, nil},
		{"vignette above", Vignette, 101, ErrOutOfRange},
		{"sharpness above", Sharpness, 51, ErrOutOfRange},
		{"rotate below", Rotate, -46, ErrOutOfRange},
		{"nan", Contrast, math.NaN(), ErrOutOfRange},
		{"unknown", "gamma", 0, ErrUnknownField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateField(tt.field, tt.value)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestValidateReportsViolation(t *testing.T) {
	a := Neutral()
	a.Blur = 25

	err := a.Validate()
	require.ErrorIs(t, err, ErrOutOfRange)
	assert.Contains(t, err.Error(), "blur")
}

func TestClamp(t *testing.T) {
	a := Adjustments{
		Exposure:  150,
		Blur:      -3,
		Vignette:  math.NaN(),
		Sharpness: 60,
		Rotate:    -90,
		Tint:      12,
	}

	got := a.Clamp()
	assert.Equal(t, Adjustments{
		Exposure:  100,
		Blur:      0,
		Vignette:  0,
		Sharpness: 50,
		Rotate:    -45,
		Tint:      12,
	}, got)
	assert.NoError(t, got.Validate())
}

func TestOverrides(t *testing.T) {
	base := Adjustments{Exposure: 10, Rotate: 3}
	o := Overrides{Exposure: 20, Vignette: 30}

	got := o.Merge(base)
	assert.Equal(t, Adjustments{Exposure: 20, Vignette: 30, Rotate: 3}, got)
	assert.Equal(t, Adjustments{Exposure: 10, Rotate: 3}, base)

	c := o.Clone()
	c[Exposure] = -5
	assert.Equal(t, 20.0, o[Exposure])
	assert.Nil(t, Overrides(nil).Clone())

	assert.NoError(t, o.Validate())
	assert.ErrorIs(t, Overrides{Blur: 30}.Validate(), ErrOutOfRange)
	assert.ErrorIs(t, Overrides{"gamma": 1}.Validate(), ErrUnknownField)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusDone.Terminal())
	assert.True(t, StatusError.Terminal())
}
