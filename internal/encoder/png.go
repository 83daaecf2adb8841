package encoder

import (
	"image"
	"image/png"
	"io"
)

// PNGEncoder encodes images as PNG.
type PNGEncoder struct {
	enc png.Encoder
}

func NewPNGEncoder() *PNGEncoder {
	return &PNGEncoder{enc: png.Encoder{CompressionLevel: png.BestCompression}}
}

func (e *PNGEncoder) Encode(w io.Writer, img image.Image) error {
	return e.enc.Encode(w, toNRGBA(img))
}

func (e *PNGEncoder) Ext() string { return ".png" }
