package loader

import (
	"context"
	"errors"
	"io"
	"time"

	"golang.org/x/time/rate"
)

// ProgressInterval is the minimum spacing between progress callbacks.
const ProgressInterval = 50 * time.Millisecond

// ProgressFunc receives the number of bytes consumed so far.
type ProgressFunc func(bytesRead int64)

// ProgressReader reports read progress at most once per ProgressInterval,
// plus one final report when the underlying reader is exhausted.
type ProgressReader struct {
	ctx     context.Context
	r       io.Reader
	fn      ProgressFunc
	limiter *rate.Limiter
	n       int64
	done    bool
}

// NewProgressReader wraps r. A nil fn disables reporting; a cancelled ctx
// makes the next Read fail with the context error.
func NewProgressReader(ctx context.Context, r io.Reader, fn ProgressFunc) *ProgressReader {
	return &ProgressReader{
		ctx:     ctx,
		r:       r,
		fn:      fn,
		limiter: rate.NewLimiter(rate.Every(ProgressInterval), 1),
	}
}

// BytesRead returns the number of bytes consumed so far.
func (p *ProgressReader) BytesRead() int64 {
	return p.n
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.r.Read(b)
	p.n += int64(n)
	if p.fn == nil || p.done {
		return n, err
	}
	if errors.Is(err, io.EOF) {
		p.done = true
		p.fn(p.n)
		return n, err
	}
	if n > 0 && p.limiter.Allow() {
		p.fn(p.n)
	}
	return n, err
}
