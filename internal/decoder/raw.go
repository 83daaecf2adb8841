package decoder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// DefaultMaxPixels bounds width*height so a misread header cannot trigger an
// unbounded allocation.
const DefaultMaxPixels = 1 << 26

// Layout describes the reserved regions around the dimension fields. Their
// contents are not interpreted.
//
//	[Prologue][Preamble][u32 width][u32 height][Reserved][width*height u32 ARGB]
type Layout struct {
	Prologue int
	Preamble int
	Reserved int
}

// DefaultLayout is the layout of the unpacked PC asset files.
var DefaultLayout = Layout{
	Prologue: 4,
	Preamble: 16,
	Reserved: 100,
}

// HeaderSize is the number of bytes before the first pixel sample.
func (l Layout) HeaderSize() int64 {
	return int64(l.Prologue) + int64(l.Preamble) + 8 + int64(l.Reserved)
}

// FileSize is the exact length of a container with header h.
func (l Layout) FileSize(h Header) int64 {
	return l.HeaderSize() + 4*int64(h.Width)*int64(h.Height)
}

// Validate rejects layouts with negative region sizes.
func (l Layout) Validate() error {
	if l.Prologue < 0 || l.Preamble < 0 || l.Reserved < 0 {
		return fmt.Errorf("%w: negative region in %+v", ErrInvalidLayout, l)
	}
	return nil
}

// RawDecoder decodes fixed-layout raw containers.
type RawDecoder struct {
	layout    Layout
	maxPixels int
	strict    bool
}

// Option configures a RawDecoder.
type Option func(*RawDecoder)

// WithLayout selects a container variant.
func WithLayout(l Layout) Option {
	return func(d *RawDecoder) { d.layout = l }
}

// WithMaxPixels overrides DefaultMaxPixels. Values <= 0 are ignored.
func WithMaxPixels(n int) Option {
	return func(d *RawDecoder) {
		if n > 0 {
			d.maxPixels = n
		}
	}
}

// WithStrict makes bytes after the pixel array an error.
func WithStrict(strict bool) Option {
	return func(d *RawDecoder) { d.strict = strict }
}

// NewRawDecoder creates a decoder for DefaultLayout unless overridden.
func NewRawDecoder(opts ...Option) *RawDecoder {
	d := &RawDecoder{
		layout:    DefaultLayout,
		maxPixels: DefaultMaxPixels,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Layout returns the layout the decoder reads.
func (d *RawDecoder) Layout() Layout {
	return d.layout
}

var defaultDecoder = NewRawDecoder()

// Decode decodes a container in DefaultLayout.
func Decode(r io.Reader) (*Image, error) {
	return defaultDecoder.Decode(r)
}

// DecodeHeader reads only the dimensions of a container in DefaultLayout.
func DecodeHeader(r io.Reader) (Header, error) {
	return defaultDecoder.DecodeHeader(r)
}

// DecodeFile opens path and decodes it. The file is closed on every path.
func (d *RawDecoder) DecodeFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return d.Decode(f)
}

// DecodeHeader reads and validates the header, leaving r positioned at the
// first pixel sample.
func (d *RawDecoder) DecodeHeader(r io.Reader) (Header, error) {
	s := &stream{r: r}
	return d.readHeader(s)
}

// Decode reads exactly HeaderSize()+4*width*height bytes from r (plus one
// byte in strict mode) and returns the image.
func (d *RawDecoder) Decode(r io.Reader) (*Image, error) {
	s := &stream{r: r}
	h, err := d.readHeader(s)
	if err != nil {
		return nil, err
	}

	img := NewImage(int(h.Width), int(h.Height))
	if err := s.readPixels(img); err != nil {
		return nil, err
	}

	if d.strict {
		if err := s.expectEOF(); err != nil {
			return nil, err
		}
	}
	return img, nil
}

func (d *RawDecoder) readHeader(s *stream) (Header, error) {
	var h Header
	if err := d.layout.Validate(); err != nil {
		return h, err
	}

	if err := s.skip("prologue", d.layout.Prologue); err != nil {
		return h, err
	}
	if err := s.skip("preamble", d.layout.Preamble); err != nil {
		return h, err
	}
	var err error
	if h.Width, err = s.readUint32("width"); err != nil {
		return h, err
	}
	if h.Height, err = s.readUint32("height"); err != nil {
		return h, err
	}
	if err := s.skip("reserved", d.layout.Reserved); err != nil {
		return h, err
	}

	if err := d.checkDimensions(h, s.off); err != nil {
		return h, err
	}
	return h, nil
}

func (d *RawDecoder) checkDimensions(h Header, off int64) error {
	fail := func(detail string) error {
		return &DecodeError{Op: "dimensions", Offset: off, Err: ErrInvalidDimensions, Detail: detail}
	}
	// Bit 31 set means the field is negative when read as a signed int32.
	if h.Width == 0 || h.Width > math.MaxInt32 {
		return fail(fmt.Sprintf("width %d", int32(h.Width)))
	}
	if h.Height == 0 || h.Height > math.MaxInt32 {
		return fail(fmt.Sprintf("height %d", int32(h.Height)))
	}
	n := uint64(h.Width) * uint64(h.Height)
	if n > uint64(d.maxPixels) || n > math.MaxInt/4 {
		return fail(fmt.Sprintf("%dx%d exceeds %d pixels", h.Width, h.Height, d.maxPixels))
	}
	return nil
}

// stream is a forward-only cursor that tracks its offset.
type stream struct {
	r   io.Reader
	off int64
}

func (s *stream) skip(op string, n int) error {
	if n == 0 {
		return nil
	}
	got, err := io.CopyN(io.Discard, s.r, int64(n))
	start := s.off
	s.off += got
	if err != nil {
		return s.headerError(op, start, err)
	}
	return nil
}

func (s *stream) readUint32(op string) (uint32, error) {
	var buf [4]byte
	start := s.off
	n, err := io.ReadFull(s.r, buf[:])
	s.off += int64(n)
	if err != nil {
		return 0, s.headerError(op, start, err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (s *stream) headerError(op string, start int64, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = ErrUnexpectedEOF
	}
	return &DecodeError{Op: op, Offset: start, Err: err}
}

// readPixels fills img one row at a time so no byte past the pixel array is
// consumed.
func (s *stream) readPixels(img *Image) error {
	row := make([]byte, img.Width*4)
	for y := 0; y < img.Height; y++ {
		n, err := io.ReadFull(s.r, row)
		s.off += int64(n)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				got := y*img.Width + n/4
				return &DecodeError{
					Op:     "pixels",
					Offset: s.off,
					Err:    ErrTruncatedStream,
					Detail: fmt.Sprintf("%d of %d samples", got, len(img.Pix)),
				}
			}
			return &DecodeError{Op: "pixels", Offset: s.off, Err: err}
		}
		dst := img.Pix[y*img.Width : (y+1)*img.Width]
		for x := range dst {
			dst[x] = binary.LittleEndian.Uint32(row[x*4:])
		}
	}
	return nil
}

func (s *stream) expectEOF() error {
	var b [1]byte
	n, err := io.ReadFull(s.r, b[:])
	if n > 0 {
		return &DecodeError{Op: "trailer", Offset: s.off, Err: ErrTrailingData}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return &DecodeError{Op: "trailer", Offset: s.off, Err: err}
	}
	return nil
}
