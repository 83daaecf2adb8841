package encoder

import (
	"image"
	"io"

	"golang.org/x/image/tiff"
)

// TIFFEncoder encodes images as deflate-compressed TIFF.
type TIFFEncoder struct {
	opts tiff.Options
}

func NewTIFFEncoder() *TIFFEncoder {
	return &TIFFEncoder{opts: tiff.Options{Compression: tiff.Deflate, Predictor: true}}
}

func (e *TIFFEncoder) Encode(w io.Writer, img image.Image) error {
	return tiff.Encode(w, toNRGBA(img), &e.opts)
}

func (e *TIFFEncoder) Ext() string { return ".tiff" }
