// Package straighten provides rotation estimators for the "auto-straighten"
// action. None of them inspect the image: BoundedRandom is a heuristic that
// applies a small perturbation, and a real horizon detector can be plugged in
// behind the same interface.
package straighten

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// MaxLimit is the largest absolute angle a strategy may produce.
const MaxLimit = 45.0

var ErrInvalidLimit = errors.New("invalid straighten limit")

// Strategy yields the rotation, in degrees, to apply to one image.
type Strategy interface {
	Angle() float64
}

// FixedZero never rotates.
type FixedZero struct{}

// Angle implements Strategy.
func (FixedZero) Angle() float64 { return 0 }

// BoundedRandom draws a uniform angle in [-limit, +limit] on every call.
type BoundedRandom struct {
	limit float64
	step  float64

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option configures a BoundedRandom.
type Option func(*BoundedRandom)

// WithSource replaces the time-seeded random source.
func WithSource(src rand.Source) Option {
	return func(b *BoundedRandom) { b.rnd = rand.New(src) }
}

// WithStep rounds every drawn angle to a multiple of step.
func WithStep(step float64) Option {
	return func(b *BoundedRandom) { b.step = step }
}

// NewBoundedRandom creates a strategy with the given limit in (0, MaxLimit].
func NewBoundedRandom(limit float64, opts ...Option) (*BoundedRandom, error) {
	if math.IsNaN(limit) || limit <= 0 || limit > MaxLimit {
		return nil, fmt.Errorf("limit %v not in (0, %v]: %w", limit, MaxLimit, ErrInvalidLimit)
	}

	b := &BoundedRandom{
		limit: limit,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// Limit returns the configured bound.
func (b *BoundedRandom) Limit() float64 { return b.limit }

// Angle implements Strategy. It is safe for concurrent use.
func (b *BoundedRandom) Angle() float64 {
	b.mu.Lock()
	v := (b.rnd.Float64()*2 - 1) * b.limit
	b.mu.Unlock()

	if b.step > 0 {
		v = math.Round(v/b.step) * b.step
	}

	return math.Max(-b.limit, math.Min(b.limit, v))
}
