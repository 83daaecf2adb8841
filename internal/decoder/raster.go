package decoder

import (
	"image"
	"image/color"
	"io"

	// Registered for RasterDecoder.
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// RasterDecoder decodes a standard raster file (PNG, BMP, TIFF) back into
// packed ARGB samples. Written output is checked with it.
type RasterDecoder struct{}

func NewRasterDecoder() *RasterDecoder {
	return &RasterDecoder{}
}

func (d *RasterDecoder) Decode(r io.Reader) (*Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	img := NewImage(b.Dx(), b.Dy())

	// Fast path for the type image/png returns for NRGBA input.
	if nrgba, ok := src.(*image.NRGBA); ok {
		for y := 0; y < img.Height; y++ {
			row := nrgba.Pix[nrgba.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < img.Width; x++ {
				p := row[x*4 : x*4+4]
				img.Pix[y*img.Width+x] = packARGB(color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]})
			}
		}
		return img, nil
	}

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			c := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			img.Pix[y*img.Width+x] = packARGB(c)
		}
	}
	return img, nil
}
