package processor

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Decode reads a JPEG, PNG, GIF, BMP, TIFF or WebP image and applies its
// EXIF orientation.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if err := checkImage(img); err != nil {
		return nil, err
	}
	return img, nil
}

// EncodePNG returns the lossless PNG encoding of img.
func EncodePNG(img image.Image) ([]byte, error) {
	return encode(img, imaging.PNG)
}

// EncodeJPEG returns the JPEG encoding of img at the given quality.
// Transparent pixels are flattened onto black.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	return encode(img, imaging.JPEG, imaging.JPEGQuality(quality))
}

func encode(img image.Image, format imaging.Format, opts ...imaging.EncodeOption) ([]byte, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, img, format, opts...); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncodeFailure, format, err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w: %s: empty output", ErrEncodeFailure, format)
	}

	return buf.Bytes(), nil
}
