package encoder

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// nrgbaer is implemented by decoder.Image.
type nrgbaer interface {
	NRGBA() *image.NRGBA
}

func toNRGBA(img image.Image) *image.NRGBA {
	switch m := img.(type) {
	case *image.NRGBA:
		return m
	case nrgbaer:
		return m.NRGBA()
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// MaxScale is the largest accepted upscale factor.
const MaxScale = 64

// Scale enlarges img by an integer factor with nearest-neighbour sampling so
// texels stay sharp. A factor below 2 returns img unchanged.
func Scale(img image.Image, factor int) image.Image {
	if factor < 2 {
		return img
	}
	src := toNRGBA(img)
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}
