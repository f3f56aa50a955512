package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/aliskhannn/lumina/internal/model"
)

var (
	// ErrInvalidImage is returned for undecodable input or an image with a
	// zero width or height.
	ErrInvalidImage = errors.New("invalid image")
	// ErrEncodeFailure is returned when encoding produced no artifact.
	ErrEncodeFailure = errors.New("encode failure")
)

// DefaultJPEGQuality is the quality used for batch output (0.9 on a 0-1 scale).
const DefaultJPEGQuality = 90

// Processor runs the decode → render → encode path for raw image bytes.
// It holds no per-call state and may be shared between goroutines.
type Processor struct {
	jpegQuality int
}

// New creates a Processor that encodes JPEG output at the given quality.
// Values outside 1..100 fall back to DefaultJPEGQuality.
func New(jpegQuality int) *Processor {
	if jpegQuality < 1 || jpegQuality > 100 {
		jpegQuality = DefaultJPEGQuality
	}
	return &Processor{jpegQuality: jpegQuality}
}

// Process decodes src, renders it with adj and returns the JPEG encoding.
func (p *Processor) Process(ctx context.Context, src []byte, adj model.Adjustments) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Decode into an image object.
	img, err := Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	// Apply the adjustments.
	out, err := Render(img, adj)
	if err != nil {
		return nil, fmt.Errorf("failed to render image: %w", err)
	}

	// Encode the result for export.
	data, err := EncodeJPEG(out, p.jpegQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rendered image: %w", err)
	}

	return data, nil
}

// Render applies adj to src and returns a new image of the same size.
//
// Stages run in a fixed order: geometry, global tone and colour, warmth
// overlay, vignette. Every overlay carries its own blend mode, so nothing
// leaks from one call to the next. The neutral vector returns an exact copy.
func Render(src image.Image, adj model.Adjustments) (*image.NRGBA, error) {
	if err := checkImage(src); err != nil {
		return nil, err
	}
	if err := adj.Validate(); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	img := imaging.Clone(src)
	if adj.IsNeutral() {
		return img, nil
	}

	if adj.Rotate != 0 {
		img = rotate(img, adj.Rotate)
	}

	img = tone(img, adj)

	if adj.Warmth != 0 {
		Composite(img, warmthLayer(adj.Warmth), Overlay)
	}

	if adj.Vignette > 0 {
		b := img.Bounds()
		Composite(img, vignetteLayer(b.Dx(), b.Dy(), adj.Vignette), Multiply)
	}

	return img, nil
}

func checkImage(img image.Image) error {
	if img == nil {
		return fmt.Errorf("nil image: %w", ErrInvalidImage)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("degenerate size %dx%d: %w", b.Dx(), b.Dy(), ErrInvalidImage)
	}
	return nil
}
