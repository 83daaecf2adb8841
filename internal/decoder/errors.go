package decoder

import (
	"errors"
	"fmt"
)

var (
	ErrUnexpectedEOF     = errors.New("rawimg: unexpected end of header")
	ErrInvalidDimensions = errors.New("rawimg: invalid dimensions")
	ErrTruncatedStream   = errors.New("rawimg: truncated pixel data")
	ErrTrailingData      = errors.New("rawimg: trailing data after pixels")
	ErrInvalidLayout     = errors.New("rawimg: invalid layout")
)

// DecodeError records which step of the decode failed and where.
type DecodeError struct {
	Op     string
	Offset int64
	Err    error
	Detail string
}

func (e *DecodeError) Error() string {
	s := fmt.Sprintf("%v: %s at offset %d", e.Err, e.Op, e.Offset)
	if e.Detail != "" {
		s += " (" + e.Detail + ")"
	}
	return s
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Kind returns a short stable name for err's decode failure class, or
// "internal" when err is not a decode failure.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrUnexpectedEOF):
		return "unexpected_eof"
	case errors.Is(err, ErrInvalidDimensions):
		return "invalid_dimensions"
	case errors.Is(err, ErrTruncatedStream):
		return "truncated_stream"
	case errors.Is(err, ErrTrailingData):
		return "trailing_data"
	default:
		return "internal"
	}
}

// KindError maps a name produced by Kind back to its sentinel.
func KindError(kind string) error {
	switch kind {
	case "unexpected_eof":
		return ErrUnexpectedEOF
	case "invalid_dimensions":
		return ErrInvalidDimensions
	case "truncated_stream":
		return ErrTruncatedStream
	case "trailing_data":
		return ErrTrailingData
	default:
		return nil
	}
}
