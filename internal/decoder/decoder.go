package decoder

import (
	"image"
	"image/color"
	"io"
)

// Decoder decodes a byte stream into an image.
type Decoder interface {
	Decode(r io.Reader) (*Image, error)
}

// Header holds the dimensions read from a raw container.
type Header struct {
	Width  uint32
	Height uint32
}

// Image is a decoded raw container: Width*Height packed 0xAARRGGBB samples
// in row-major order, top row first.
type Image struct {
	Width  int
	Height int
	Pix    []uint32
}

// NewImage allocates a zeroed image of the given size.
func NewImage(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]uint32, width*height),
	}
}

// Header returns the dimensions as stored in the container.
func (m *Image) Header() Header {
	return Header{Width: uint32(m.Width), Height: uint32(m.Height)}
}

// ARGBAt returns the packed sample at (x, y), or 0 outside the image.
func (m *Image) ARGBAt(x, y int) uint32 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	return m.Pix[y*m.Width+x]
}

// --- image.Image interface ---

func (m *Image) ColorModel() color.Model {
	return color.NRGBAModel
}

func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

func (m *Image) At(x, y int) color.Color {
	return unpackARGB(m.ARGBAt(x, y))
}

// NRGBA converts the packed samples into a byte-per-channel image.
func (m *Image) NRGBA() *image.NRGBA {
	out := image.NewNRGBA(m.Bounds())
	for i, p := range m.Pix {
		o := i * 4
		out.Pix[o+0] = uint8(p >> 16)
		out.Pix[o+1] = uint8(p >> 8)
		out.Pix[o+2] = uint8(p)
		out.Pix[o+3] = uint8(p >> 24)
	}
	return out
}

func unpackARGB(p uint32) color.NRGBA {
	return color.NRGBA{
		R: uint8(p >> 16),
		G: uint8(p >> 8),
		B: uint8(p),
		A: uint8(p >> 24),
	}
}

func packARGB(c color.NRGBA) uint32 {
	return uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}
