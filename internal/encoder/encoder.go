package encoder

import (
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
)

// ErrUnknownFormat is returned by New for an unsupported output format.
var ErrUnknownFormat = errors.New("encoder: unknown format")

// Encoder writes an image in a portable raster format.
type Encoder interface {
	Encode(w io.Writer, img image.Image) error
	// Ext is the file extension for the format, including the dot.
	Ext() string
}

// Formats lists the accepted format names.
var Formats = []string{"png", "bmp", "tiff", "jpeg"}

// New returns the encoder for format. quality only applies to jpeg.
func New(format string, quality int) (Encoder, error) {
	switch strings.ToLower(format) {
	case "png":
		return NewPNGEncoder(), nil
	case "bmp":
		return NewBMPEncoder(), nil
	case "tiff", "tif":
		return NewTIFFEncoder(), nil
	case "jpeg", "jpg":
		return NewJPEGEncoder(quality), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Lossless reports whether format preserves every sample exactly. BMP keeps
// colour but not alpha, so it is not lossless.
func Lossless(format string) bool {
	switch strings.ToLower(format) {
	case "png", "tiff", "tif":
		return true
	default:
		return false
	}
}
