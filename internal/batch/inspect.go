package batch

import (
	"io"
	"os"

	"github.com/junsooki/rawconv/internal/decoder"
)

// HeaderDecoder reads only the header of a container.
type HeaderDecoder interface {
	DecodeHeader(r io.Reader) (decoder.Header, error)
	Layout() decoder.Layout
}

// HeaderInfo is one line of an -info listing.
type HeaderInfo struct {
	Path   string
	Size   int64
	Header decoder.Header
	Err    error
}

// Expected is the file size the header implies.
func (h HeaderInfo) Expected(l decoder.Layout) int64 {
	return l.FileSize(h.Header)
}

// Inspect reads the header of every job's input. Failures are reported per
// file, never as a whole.
func Inspect(jobs []Job, hd HeaderDecoder) []HeaderInfo {
	out := make([]HeaderInfo, 0, len(jobs))
	for _, job := range jobs {
		info := HeaderInfo{Path: job.Input}
		info.Header, info.Size, info.Err = inspectFile(job.Input, hd)
		out = append(out, info)
	}
	return out
}

func inspectFile(path string, hd HeaderDecoder) (decoder.Header, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return decoder.Header{}, 0, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return decoder.Header{}, 0, err
	}
	h, err := hd.DecodeHeader(f)
	return h, fi.Size(), err
}
