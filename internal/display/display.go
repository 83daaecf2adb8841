package display

import (
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/junsooki/rawconv/internal/decoder"
)

// Display renders frames until the user closes it.
type Display interface {
	Run() error
}

// FrameSource provides decoded frames by index.
type FrameSource interface {
	Len() int
	Name(i int) string
	Frame(i int) (*image.NRGBA, error)
}

// FileSource decodes files on demand.
type FileSource struct {
	Paths   []string
	Decoder decoder.Decoder
}

func (s *FileSource) Len() int {
	return len(s.Paths)
}

func (s *FileSource) Name(i int) string {
	return filepath.Base(s.Paths[i])
}

// Frame decodes the i'th file. The file is closed before returning.
func (s *FileSource) Frame(i int) (*image.NRGBA, error) {
	f, err := os.Open(s.Paths[i])
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := s.Decoder.Decode(f)
	if err != nil {
		return nil, err
	}
	return img.NRGBA(), nil
}

// aspectFitTransform returns scale and offsets to fit frame into view with letterboxing.
func aspectFitTransform(viewW, viewH, frameW, frameH float64) (scale, offsetX, offsetY float64) {
	scale = math.Min(viewW/frameW, viewH/frameH)
	offsetX = (viewW - frameW*scale) / 2
	offsetY = (viewH - frameH*scale) / 2
	return
}

// step moves i by delta and wraps around n frames.
func step(i, delta, n int) int {
	if n == 0 {
		return 0
	}
	return ((i+delta)%n + n) % n
}

const placeholderSize = 64

// placeholder is a checkerboard shown in place of a frame that failed to decode.
func placeholder() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, placeholderSize, placeholderSize))
	dark := color.NRGBA{0x20, 0x20, 0x20, 0xFF}
	mark := color.NRGBA{0xFF, 0x00, 0xFF, 0xFF}
	for y := 0; y < placeholderSize; y++ {
		for x := 0; x < placeholderSize; x++ {
			c := dark
			if (x/8+y/8)%2 == 0 {
				c = mark
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}
