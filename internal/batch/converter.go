package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/junsooki/rawconv/internal/decoder"
	"github.com/junsooki/rawconv/internal/encoder"
	"github.com/junsooki/rawconv/internal/logging"
)

// EventKind is the state a job has reached.
type EventKind int

const (
	EventStarted EventKind = iota
	EventDone
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventDone:
		return "done"
	case EventFailed:
		return "failed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event reports progress on one job.
type Event struct {
	Kind   EventKind
	Job    Job
	Header decoder.Header
	Err    error
}

// Failure is a job that did not produce output.
type Failure struct {
	Job Job
	Err error
}

// Summary is the outcome of a Run.
type Summary struct {
	Total     int
	Converted int
	Failed    []Failure
}

// Skipped counts jobs never attempted because the run stopped early.
func (s Summary) Skipped() int {
	return s.Total - s.Converted - len(s.Failed)
}

// ErrScaleTooLarge is returned when the upscaled image would exceed the
// converter's pixel limit.
var ErrScaleTooLarge = errors.New("batch: scaled image too large")

// ContextDecoder is a decoder whose requests can be cancelled, such as a
// remote client. Converter prefers DecodeContext when it is available.
type ContextDecoder interface {
	DecodeContext(ctx context.Context, r io.Reader) (*decoder.Image, error)
}

// Converter decodes containers and writes them through an encoder.
type Converter struct {
	Decoder decoder.Decoder
	Encoder encoder.Encoder
	Scale   int
	// MaxPixels bounds the output size after scaling. Zero means
	// decoder.DefaultMaxPixels.
	MaxPixels int
	// Verify re-decodes each written file and compares it to the source
	// pixels. Only meaningful for lossless encoders.
	Verify   bool
	Workers  int
	FailFast bool
	Logger   *zap.Logger
	// OnEvent is called from worker goroutines and must be safe for
	// concurrent use.
	OnEvent func(Event)
}

// Run converts jobs, at most Workers at a time. Failed jobs are logged and
// collected in the summary; with FailFast the first failure stops the run
// and is returned. Cancelling ctx abandons pending jobs.
func (c *Converter) Run(ctx context.Context, jobs []Job) (Summary, error) {
	log := c.Logger
	if log == nil {
		log = logging.Logger()
	}
	workers := c.Workers
	if workers < 1 {
		workers = 1
	}

	sum := Summary{Total: len(jobs)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		job := job // per-iteration copy (go.mod targets go 1.21)
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			c.emit(Event{Kind: EventStarted, Job: job})

			h, err := c.convert(gctx, job)
			mu.Lock()
			if err != nil {
				sum.Failed = append(sum.Failed, Failure{Job: job, Err: err})
			} else {
				sum.Converted++
			}
			mu.Unlock()

			if err != nil {
				log.Warn("convert failed",
					zap.String("file", job.Input),
					zap.String("kind", decoder.Kind(err)),
					zap.Error(err))
				c.emit(Event{Kind: EventFailed, Job: job, Err: err})
				if c.FailFast {
					return fmt.Errorf("%s: %w", job.Input, err)
				}
				return nil
			}

			log.Debug("converted",
				zap.String("file", job.Input),
				zap.String("output", job.Output),
				zap.Uint32("width", h.Width),
				zap.Uint32("height", h.Height))
			c.emit(Event{Kind: EventDone, Job: job, Header: h})
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	sort.Slice(sum.Failed, func(i, j int) bool {
		return sum.Failed[i].Job.Input < sum.Failed[j].Job.Input
	})
	return sum, err
}

func (c *Converter) emit(e Event) {
	if c.OnEvent != nil {
		c.OnEvent(e)
	}
}

func (c *Converter) convert(ctx context.Context, job Job) (decoder.Header, error) {
	img, err := c.decode(ctx, job.Input)
	if err != nil {
		return decoder.Header{}, err
	}
	// Decoding is the slow part; drop the buffer if the run was cancelled.
	if err := ctx.Err(); err != nil {
		return decoder.Header{}, err
	}

	var out image.Image = img
	if c.Scale > 1 {
		if err := c.checkScaled(img.Header()); err != nil {
			return decoder.Header{}, err
		}
		out = encoder.Scale(img, c.Scale)
	}
	if err := c.write(job.Output, out); err != nil {
		return decoder.Header{}, err
	}
	return img.Header(), nil
}

func (c *Converter) decode(ctx context.Context, path string) (*decoder.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if cd, ok := c.Decoder.(ContextDecoder); ok {
		return cd.DecodeContext(ctx, f)
	}
	return c.Decoder.Decode(f)
}

func (c *Converter) checkScaled(h decoder.Header) error {
	limit := uint64(c.MaxPixels)
	if limit == 0 {
		limit = decoder.DefaultMaxPixels
	}
	f := uint64(c.Scale)
	// n*f*f > limit, ordered so nothing overflows.
	n := uint64(h.Width) * uint64(h.Height)
	if n > limit/f || n*f > limit/f {
		return fmt.Errorf("%w: %dx%d at scale %d, limit %d pixels",
			ErrScaleTooLarge, h.Width, h.Height, c.Scale, limit)
	}
	return nil
}

// write encodes into a temporary file next to path and renames it into
// place, so a failed job leaves no partial output.
func (c *Converter) write(path string, img image.Image) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := c.Encoder.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if c.Verify {
		if err := verifyFile(tmpName, img); err != nil {
			return err
		}
	}
	return os.Rename(tmpName, path)
}
