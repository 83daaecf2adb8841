package decoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// buildRaw assembles a container in DefaultLayout.
func buildRaw(width, height uint32, pix []uint32) []byte {
	var buf bytes.Buffer
	buf.Write(make([]byte, 4))
	buf.Write(make([]byte, 16))
	binary.Write(&buf, binary.LittleEndian, width)
	binary.Write(&buf, binary.LittleEndian, height)
	buf.Write(make([]byte, 100))
	for _, p := range pix {
		binary.Write(&buf, binary.LittleEndian, p)
	}
	return buf.Bytes()
}

// countingReader counts bytes handed out by the underlying reader.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func TestDecode_TwoPixelScenario(t *testing.T) {
	data := []byte{}
	data = append(data, 0, 0, 0, 0)
	data = append(data, make([]byte, 16)...)
	data = append(data, 0x02, 0x00, 0x00, 0x00)
	data = append(data, 0x01, 0x00, 0x00, 0x00)
	data = append(data, make([]byte, 100)...)
	data = append(data, 0xFF, 0x00, 0x00, 0xFF)
	data = append(data, 0xFF, 0x00, 0xFF, 0x00)

	img, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Width != 2 || img.Height != 1 {
		t.Fatalf("dimensions = %dx%d, want 2x1", img.Width, img.Height)
	}
	if img.Pix[0] != 0xFF0000FF {
		t.Errorf("pixel[0] = %#08x, want 0xff0000ff", img.Pix[0])
	}
	if img.Pix[1] != 0xFF00FF00 {
		t.Errorf("pixel[1] = %#08x, want 0xff00ff00", img.Pix[1])
	}

	// 0xFF0000FF packs A=0xFF, R=0x00, G=0x00, B=0xFF.
	if got, want := img.At(0, 0), (color.NRGBA{R: 0x00, G: 0x00, B: 0xFF, A: 0xFF}); got != want {
		t.Errorf("At(0,0) = %v, want %v", got, want)
	}
	if got, want := img.At(1, 0), (color.NRGBA{R: 0x00, G: 0xFF, B: 0x00, A: 0xFF}); got != want {
		t.Errorf("At(1,0) = %v, want %v", got, want)
	}
}

func TestDecode_ConsumesExactLength(t *testing.T) {
	tests := []struct {
		w, h uint32
	}{
		{1, 1},
		{2, 1},
		{3, 5},
		{64, 32},
	}
	for _, tt := range tests {
		pix := make([]uint32, tt.w*tt.h)
		for i := range pix {
			pix[i] = uint32(i) * 0x01010101
		}
		data := buildRaw(tt.w, tt.h, pix)
		// Trailing garbage must be left unread.
		data = append(data, 0xDE, 0xAD, 0xBE, 0xEF)

		cr := &countingReader{r: bytes.NewReader(data)}
		img, err := Decode(cr)
		if err != nil {
			t.Fatalf("%dx%d: Decode: %v", tt.w, tt.h, err)
		}
		want := int64(124 + 4*tt.w*tt.h)
		if cr.n != want {
			t.Errorf("%dx%d: consumed %d bytes, want %d", tt.w, tt.h, cr.n, want)
		}
		if len(img.Pix) != int(tt.w*tt.h) {
			t.Errorf("%dx%d: len(Pix) = %d, want %d", tt.w, tt.h, len(img.Pix), tt.w*tt.h)
		}
		for i := range pix {
			if img.Pix[i] != pix[i] {
				t.Fatalf("%dx%d: Pix[%d] = %#08x, want %#08x", tt.w, tt.h, i, img.Pix[i], pix[i])
			}
		}
	}
}

func TestDecode_RowMajorOrder(t *testing.T) {
	pix := []uint32{
		0xFF000001, 0xFF000002, 0xFF000003,
		0xFF000004, 0xFF000005, 0xFF000006,
	}
	img, err := Decode(bytes.NewReader(buildRaw(3, 2, pix)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			if got, want := img.ARGBAt(x, y), pix[y*3+x]; got != want {
				t.Errorf("ARGBAt(%d,%d) = %#08x, want %#08x", x, y, got, want)
			}
		}
	}
	if got := img.ARGBAt(3, 0); got != 0 {
		t.Errorf("ARGBAt outside bounds = %#08x, want 0", got)
	}
}

func TestDecode_Errors(t *testing.T) {
	full := buildRaw(2, 1, []uint32{0xFF0000FF, 0xFF00FF00})

	tests := []struct {
		name string
		data []byte
		want error
		op   string
	}{
		{"empty", nil, ErrUnexpectedEOF, "prologue"},
		{"short prologue", full[:3], ErrUnexpectedEOF, "prologue"},
		{"short preamble", full[:10], ErrUnexpectedEOF, "preamble"},
		{"short width", full[:22], ErrUnexpectedEOF, "width"},
		{"short height", full[:27], ErrUnexpectedEOF, "height"},
		{"short reserved", full[:123], ErrUnexpectedEOF, "reserved"},
		{"header only", full[:124], ErrTruncatedStream, "pixels"},
		{"one pixel", full[:128], ErrTruncatedStream, "pixels"},
		{"partial sample", full[:130], ErrTruncatedStream, "pixels"},
		{"zero width", buildRaw(0, 1, nil), ErrInvalidDimensions, "dimensions"},
		{"zero height", buildRaw(1, 0, nil), ErrInvalidDimensions, "dimensions"},
		{"negative width", buildRaw(0x80000000, 1, nil), ErrInvalidDimensions, "dimensions"},
		{"overflow", buildRaw(0xFFFFFFF0, 0xFFFFFFF0, nil), ErrInvalidDimensions, "dimensions"},
		{"too large", buildRaw(1<<14, 1<<13, nil), ErrInvalidDimensions, "dimensions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Decode(bytes.NewReader(tt.data))
			if img != nil {
				t.Errorf("got image %dx%d on failure", img.Width, img.Height)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("err %T is not *DecodeError", err)
			}
			if de.Op != tt.op {
				t.Errorf("Op = %q, want %q", de.Op, tt.op)
			}
		})
	}
}

func TestDecode_InvalidDimensionsBeforePixels(t *testing.T) {
	// The header alone is enough to reject oversized dimensions.
	data := buildRaw(0xFFFFFFF0, 0xFFFFFFF0, nil)
	cr := &countingReader{r: bytes.NewReader(data)}
	_, err := Decode(cr)
	if !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("err = %v, want ErrInvalidDimensions", err)
	}
	if cr.n != 124 {
		t.Errorf("consumed %d bytes, want 124", cr.n)
	}
}

func TestDecode_TruncatedOffset(t *testing.T) {
	full := buildRaw(2, 1, []uint32{0xFF0000FF, 0xFF00FF00})
	_, err := Decode(bytes.NewReader(full[:128]))
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *DecodeError", err)
	}
	if de.Offset != 128 {
		t.Errorf("Offset = %d, want 128", de.Offset)
	}
	if de.Detail != "1 of 2 samples" {
		t.Errorf("Detail = %q, want %q", de.Detail, "1 of 2 samples")
	}
}

func TestDecode_Idempotent(t *testing.T) {
	pix := []uint32{0x00112233, 0x44556677, 0x8899AABB, 0xCCDDEEFF}
	data := buildRaw(2, 2, pix)

	a, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("first Decode: %v", err)
	}
	b, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("second Decode: %v", err)
	}
	if a.Width != b.Width || a.Height != b.Height {
		t.Fatalf("dimensions differ: %dx%d vs %dx%d", a.Width, a.Height, b.Width, b.Height)
	}
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("Pix[%d] differs: %#08x vs %#08x", i, a.Pix[i], b.Pix[i])
		}
	}
}

func TestDecode_Strict(t *testing.T) {
	data := buildRaw(1, 1, []uint32{0xFFFFFFFF})

	strict := NewRawDecoder(WithStrict(true))
	if _, err := strict.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("exact input: %v", err)
	}

	_, err := strict.Decode(bytes.NewReader(append(data, 0)))
	if !errors.Is(err, ErrTrailingData) {
		t.Fatalf("err = %v, want ErrTrailingData", err)
	}

	lenient := NewRawDecoder()
	if _, err := lenient.Decode(bytes.NewReader(append(data, 0))); err != nil {
		t.Fatalf("lenient decode with trailer: %v", err)
	}
}

func TestDecode_CustomLayout(t *testing.T) {
	l := Layout{Prologue: 0, Preamble: 2, Reserved: 6}
	if got := l.HeaderSize(); got != 16 {
		t.Fatalf("HeaderSize = %d, want 16", got)
	}

	var buf bytes.Buffer
	buf.Write([]byte{0xAA, 0xBB})
	binary.Write(&buf, binary.LittleEndian, uint32(1))
	binary.Write(&buf, binary.LittleEndian, uint32(2))
	buf.Write(make([]byte, 6))
	binary.Write(&buf, binary.LittleEndian, uint32(0x80FF0000))
	binary.Write(&buf, binary.LittleEndian, uint32(0x8000FF00))

	img, err := NewRawDecoder(WithLayout(l)).Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Width != 1 || img.Height != 2 {
		t.Fatalf("dimensions = %dx%d, want 1x2", img.Width, img.Height)
	}
	if img.Pix[1] != 0x8000FF00 {
		t.Errorf("Pix[1] = %#08x, want 0x8000ff00", img.Pix[1])
	}
}

func TestDecode_InvalidLayout(t *testing.T) {
	d := NewRawDecoder(WithLayout(Layout{Prologue: -1}))
	_, err := d.Decode(bytes.NewReader(buildRaw(1, 1, []uint32{0})))
	if !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("err = %v, want ErrInvalidLayout", err)
	}
}

func TestDecode_MaxPixels(t *testing.T) {
	data := buildRaw(4, 4, make([]uint32, 16))
	d := NewRawDecoder(WithMaxPixels(15))
	if _, err := d.Decode(bytes.NewReader(data)); !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("err = %v, want ErrInvalidDimensions", err)
	}
	d = NewRawDecoder(WithMaxPixels(16))
	if _, err := d.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("at bound: %v", err)
	}
}

func TestDecodeHeader(t *testing.T) {
	data := buildRaw(7, 3, nil)
	r := bytes.NewReader(data)
	h, err := DecodeHeader(r)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if h != (Header{Width: 7, Height: 3}) {
		t.Errorf("header = %+v, want 7x3", h)
	}
	if r.Len() != 0 {
		t.Errorf("%d bytes left unread", r.Len())
	}
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tex.raw")
	if err := os.WriteFile(path, buildRaw(1, 1, []uint32{0xFF123456}), 0o644); err != nil {
		t.Fatal(err)
	}
	img, err := NewRawDecoder().DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if img.Pix[0] != 0xFF123456 {
		t.Errorf("Pix[0] = %#08x", img.Pix[0])
	}

	if _, err := NewRawDecoder().DecodeFile(filepath.Join(t.TempDir(), "missing.raw")); !os.IsNotExist(err) {
		t.Errorf("missing file err = %v, want not-exist", err)
	}
}

func TestRoundTripPNG(t *testing.T) {
	// Includes transparent and translucent samples so alpha handling is covered.
	pix := []uint32{
		0xFF0000FF, 0xFF00FF00, 0xFFFF0000,
		0x00000000, 0x80402010, 0x00FFFFFF,
	}
	src, err := Decode(bytes.NewReader(buildRaw(3, 2, pix)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, src.NRGBA()); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}

	got, err := NewRasterDecoder().Decode(&buf)
	if err != nil {
		t.Fatalf("RasterDecoder.Decode: %v", err)
	}
	if got.Width != 3 || got.Height != 2 {
		t.Fatalf("dimensions = %dx%d, want 3x2", got.Width, got.Height)
	}
	for i := range pix {
		if got.Pix[i] != pix[i] {
			t.Errorf("Pix[%d] = %#08x, want %#08x", i, got.Pix[i], pix[i])
		}
	}
}

func TestRoundTripOpaquePNG(t *testing.T) {
	// image/png writes opaque images as RGB and decodes them to *image.RGBA.
	pix := []uint32{0xFF102030, 0xFF405060, 0xFF708090, 0xFFA0B0C0}
	src, err := Decode(bytes.NewReader(buildRaw(2, 2, pix)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	got, err := NewRasterDecoder().Decode(&buf)
	if err != nil {
		t.Fatalf("RasterDecoder.Decode: %v", err)
	}
	for i := range pix {
		if got.Pix[i] != pix[i] {
			t.Errorf("Pix[%d] = %#08x, want %#08x", i, got.Pix[i], pix[i])
		}
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		kind string
	}{
		{&DecodeError{Op: "width", Err: ErrUnexpectedEOF}, "unexpected_eof"},
		{&DecodeError{Op: "dimensions", Err: ErrInvalidDimensions}, "invalid_dimensions"},
		{&DecodeError{Op: "pixels", Err: ErrTruncatedStream}, "truncated_stream"},
		{&DecodeError{Op: "trailer", Err: ErrTrailingData}, "trailing_data"},
		{io.ErrClosedPipe, "internal"},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.kind {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.kind)
		}
		if tt.kind != "internal" && !errors.Is(KindError(tt.kind), errors.Unwrap(tt.err)) {
			t.Errorf("KindError(%q) does not match %v", tt.kind, tt.err)
		}
	}
}
