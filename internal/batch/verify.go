package batch

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/junsooki/rawconv/internal/decoder"
)

// ErrVerifyMismatch means the written file does not decode to the pixels
// that were encoded.
var ErrVerifyMismatch = errors.New("batch: verify mismatch")

func verifyFile(path string, want image.Image) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	got, err := decoder.NewRasterDecoder().Decode(f)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	return comparePixels(got, want)
}

func comparePixels(got *decoder.Image, want image.Image) error {
	b := want.Bounds()
	if got.Width != b.Dx() || got.Height != b.Dy() {
		return fmt.Errorf("%w: size %dx%d, want %dx%d", ErrVerifyMismatch, got.Width, got.Height, b.Dx(), b.Dy())
	}
	for y := 0; y < got.Height; y++ {
		for x := 0; x < got.Width; x++ {
			w := wantARGB(want, b.Min.X+x, b.Min.Y+y)
			if g := got.Pix[y*got.Width+x]; g != w {
				return fmt.Errorf("%w: pixel (%d,%d) = %#08x, want %#08x", ErrVerifyMismatch, x, y, g, w)
			}
		}
	}
	return nil
}

func wantARGB(img image.Image, x, y int) uint32 {
	if m, ok := img.(*decoder.Image); ok {
		return m.ARGBAt(x, y)
	}
	c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	return uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}
