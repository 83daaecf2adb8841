package encoder

import (
	"image"
	"io"

	"golang.org/x/image/bmp"
)

// BMPEncoder encodes images as BMP. Decoders read the result as opaque.
type BMPEncoder struct{}

func NewBMPEncoder() *BMPEncoder {
	return &BMPEncoder{}
}

func (e *BMPEncoder) Encode(w io.Writer, img image.Image) error {
	return bmp.Encode(w, toNRGBA(img))
}

func (e *BMPEncoder) Ext() string { return ".bmp" }
