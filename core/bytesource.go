package core

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/ulikunitz/xz"
	"golang.org/x/sync/errgroup"
)

// minChunkSize is the floor from §4.A: "Chunk size ≥ 64 KiB."
const minChunkSize = 64 * 1024

// chunk is a lazily-produced byte buffer, or the end-of-stream marker.
type chunk struct {
	data []byte
	err  error // non-nil only for a terminal IoError
}

// ByteSource is the component-A buffered chunked reader. It runs a single
// read-ahead goroutine (producer) feeding a channel that the rest of the
// pipeline drains synchronously (consumer) — the same shape as the
// teacher's storage/csv.go `go func(){ for scanner.Scan() {...} }()`
// pattern, supervised here with errgroup instead of a bare goroutine+close
// so cancellation and the first read error propagate uniformly.
type ByteSource struct {
	cfg     Config
	r       io.Reader
	ch      chan chunk
	g       *errgroup.Group
	ctx     context.Context
	total   int64 // atomic
	started bool
}

// NewByteSource wraps r, transparently unwrapping a leading gzip or xz
// framing so that compressed input is still "a seekless byte stream (file
// path or standard input)" rather than a new input channel.
func NewByteSource(ctx context.Context, r io.Reader, cfg Config) (*ByteSource, error) {
	br := newPeeker(r)
	magic, err := br.peek(6)
	if err != nil && err != io.EOF {
		return nil, &IoError{Cause: err}
	}
	switch {
	case len(magic) >= 2 && magic[0] == 0x1f && magic[1] == 0x8b:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, &IoError{Cause: fmt.Errorf("gzip header: %w", err)}
		}
		r = gz
	case len(magic) >= 6 && bytes.Equal(magic[:6], []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}):
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, &IoError{Cause: fmt.Errorf("xz header: %w", err)}
		}
		r = xr
	default:
		r = br
	}

	g, gctx := errgroup.WithContext(ctx)
	bs := &ByteSource{
		cfg: cfg,
		r:   r,
		ch:  make(chan chunk, 2),
		g:   g,
		ctx: gctx,
	}
	return bs, nil
}

// Start launches the read-ahead producer. Idempotent.
func (b *ByteSource) Start() {
	if b.started {
		return
	}
	b.started = true
	size := b.cfg.ChunkSize
	if size < minChunkSize {
		size = minChunkSize
	}
	b.g.Go(func() error {
		defer close(b.ch)
		buf := make([]byte, size)
		for {
			select {
			case <-b.ctx.Done():
				return nil
			default:
			}
			n, err := b.r.Read(buf)
			if n > 0 {
				out := make([]byte, n)
				copy(out, buf[:n])
				atomic.AddInt64(&b.total, int64(n))
				select {
				case b.ch <- chunk{data: out}:
				case <-b.ctx.Done():
					return nil
				}
			}
			if err == io.EOF {
				return nil
			}
			if err != nil {
				ioErr := &IoError{Cause: err, ByteOffset: atomic.LoadInt64(&b.total)}
				select {
				case b.ch <- chunk{err: ioErr}:
				case <-b.ctx.Done():
				}
				return ioErr
			}
		}
	})
}

// Next returns the next chunk, or (nil, nil) at a clean end of stream, or
// a non-nil *IoError on fatal read failure.
func (b *ByteSource) Next() ([]byte, error) {
	c, ok := <-b.ch
	if !ok {
		return nil, nil
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.data, nil
}

// TotalBytes reports the number of bytes read so far (post-decompression).
func (b *ByteSource) TotalBytes() int64 {
	return atomic.LoadInt64(&b.total)
}

// Wait blocks until the producer goroutine has exited, returning its error.
func (b *ByteSource) Wait() error {
	return b.g.Wait()
}

// peeker lets us sniff a small magic-byte prefix without consuming it,
// since the underlying reader (stdin, a file) is seekless per §6.
type peeker struct {
	r    io.Reader
	buf  []byte
	pos  int
	full bool
}

func newPeeker(r io.Reader) *peeker {
	return &peeker{r: r}
}

func (p *peeker) peek(n int) ([]byte, error) {
	if !p.full {
		p.buf = make([]byte, n)
		read, err := io.ReadFull(p.r, p.buf)
		p.buf = p.buf[:read]
		p.full = true
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return p.buf, err
		}
		return p.buf, nil
	}
	return p.buf, nil
}

func (p *peeker) Read(out []byte) (int, error) {
	if p.pos < len(p.buf) {
		n := copy(out, p.buf[p.pos:])
		p.pos += n
		return n, nil
	}
	return p.r.Read(out)
}
