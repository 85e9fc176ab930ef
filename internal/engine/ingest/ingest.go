package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"github.com/disintegration/imaging"
)

const (
	// DefaultMaxBytes caps uploads at 10 MiB.
	DefaultMaxBytes = 10 << 20
	// DefaultMaxPixels caps decoded images at 40 megapixels.
	DefaultMaxPixels = 40_000_000
)

var (
	// ErrDecode is returned when the input is not a decodable JPEG or PNG.
	ErrDecode = errors.New("ingest: not a decodable JPEG or PNG image")
	// ErrTooLarge is returned when the input exceeds the size cap.
	ErrTooLarge = errors.New("ingest: image exceeds size limit")
	// ErrTooManyPixels is returned when the image header declares more
	// pixels than the cap. The bitmap is never allocated.
	ErrTooManyPixels = errors.New("ingest: image exceeds pixel limit")
)

type options struct {
	maxPixels int64
}

// Option configures decoding.
type Option func(*options)

// WithMaxPixels caps width*height of a decoded image. n <= 0 keeps
// DefaultMaxPixels.
func WithMaxPixels(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPixels = n
		}
	}
}

// Upload is a decoded user image.
type Upload struct {
	Data        []byte      // raw file bytes as received
	ContentType string      // sniffed MIME type: image/jpeg or image/png
	Image       image.Image // decoded bitmap, EXIF orientation applied
}

// Decode reads at most maxBytes from r, sniffs the format and decodes the
// image. maxBytes <= 0 means DefaultMaxBytes.
func Decode(r io.Reader, maxBytes int64, opts ...Option) (Upload, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return Upload{}, fmt.Errorf("ingest: read: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return Upload{}, fmt.Errorf("%w (%d bytes)", ErrTooLarge, maxBytes)
	}
	return DecodeBytes(data, opts...)
}

// DecodeBytes decodes an in-memory image. The header is checked against the
// pixel cap before the bitmap is decoded.
func DecodeBytes(data []byte, opts ...Option) (Upload, error) {
	o := options{maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(&o)
	}

	if len(data) == 0 {
		return Upload{}, fmt.Errorf("%w: empty input", ErrDecode)
	}

	ct := http.DetectContentType(data)
	if ct != "image/jpeg" && ct != "image/png" {
		return Upload{}, fmt.Errorf("%w: detected %s", ErrDecode, ct)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Upload{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > o.maxPixels {
		return Upload{}, fmt.Errorf("%w: %dx%d is over %d pixels", ErrTooManyPixels, cfg.Width, cfg.Height, o.maxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Upload{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return Upload{}, fmt.Errorf("%w: image has no pixels", ErrDecode)
	}

	return Upload{Data: data, ContentType: ct, Image: img}, nil
}

// IsRejection reports whether err is an input problem the user can fix by
// uploading a different file.
func IsRejection(err error) bool {
	return errors.Is(err, ErrDecode) || errors.Is(err, ErrTooLarge) || errors.Is(err, ErrTooManyPixels)
}
