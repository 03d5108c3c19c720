// Package demux slices an arbitrarily chunked raw-pixel byte stream into
// fixed-size frame buffers.
//
// The pieces are a Pool of reusable buffers, a FlowController that blocks
// the producer when buffers run out, and a Demuxer that fills buffers from
// incoming chunks and promotes complete ones to a bounded ready queue.
// One goroutine calls Feed/Finish; one goroutine consumes Ready().
package demux

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// ErrFinished is returned by Feed after Finish was called.
var ErrFinished = errors.New("demux: stream already finished")

// Demuxer reassembles frames from chunks.
//
// State lives in explicit fields instead of closures: the buffer being
// filled (active) and how many bytes of it are valid (length).
type Demuxer struct {
	frameSize int
	pool      *Pool
	ready     chan *Buffer
	flow      *FlowController

	active   *Buffer
	length   int
	finished bool

	framesProduced atomic.Uint64
	bytesFed       atomic.Uint64
	discardedBytes atomic.Uint64
	overflows      atomic.Uint64
}

// New creates a demuxer with a pool of poolSize buffers and a ready queue of
// poolSize-1 slots.
func New(poolSize, frameSize int) (*Demuxer, error) {
	pool, err := NewPool(poolSize, frameSize)
	if err != nil {
		return nil, err
	}
	ready := make(chan *Buffer, poolSize-1)

	return &Demuxer{
		frameSize: frameSize,
		pool:      pool,
		ready:     ready,
		flow:      NewFlowController(pool, ready),
	}, nil
}

// Pool exposes the buffer pool so the consumer can release buffers.
func (d *Demuxer) Pool() *Pool { return d.pool }

// Flow exposes the flow controller (pause state, hooks).
func (d *Demuxer) Flow() *FlowController { return d.flow }

// Ready is the FIFO of complete frames. It is closed by Finish.
func (d *Demuxer) Ready() <-chan *Buffer { return d.ready }

// FrameSize is the fixed frame length in bytes.
func (d *Demuxer) FrameSize() int { return d.frameSize }

// Feed consumes one chunk. Every complete frame contained in the chunk is
// promoted before Feed returns; a trailing partial frame stays in the active
// buffer for the next chunk.
//
// Feed blocks while the pool is exhausted or the ready queue is full. It
// returns ctx.Err() if ctx is cancelled while blocked; the chunk is then only
// partially consumed.
func (d *Demuxer) Feed(ctx context.Context, chunk []byte) error {
	if d.finished {
		return ErrFinished
	}
	d.bytesFed.Add(uint64(len(chunk)))

	for len(chunk) > 0 {
		if d.active == nil {
			b, err := d.flow.Acquire(ctx)
			if err != nil {
				return err
			}
			d.active = b
			d.length = 0
		}

		// a cursor past the frame end means the fill state is corrupt
		if d.length > d.frameSize {
			d.overflows.Add(1)
			slog.Warn("demux: video data overflow, truncating", "length", d.length, "frame_size", d.frameSize)
			d.length = d.frameSize
		}

		n := copy(d.active.data[d.length:], chunk)
		d.length += n
		chunk = chunk[n:]

		if d.length == d.frameSize {
			b := d.active
			d.active = nil
			d.length = 0
			if err := d.flow.Promote(ctx, b); err != nil {
				return err
			}
			seq := d.framesProduced.Add(1)
			slog.Debug("demux: frame ready", "seq", seq, "buffer", b.id)
		}
	}
	return nil
}

// Finish marks upstream end. An incomplete frame is discarded, never
// promoted, and the ready queue is closed so the consumer drains what is
// left and then sees the end. Finish is idempotent.
func (d *Demuxer) Finish() {
	if d.finished {
		return
	}
	d.finished = true

	if d.active != nil {
		if d.length > 0 {
			d.discardedBytes.Add(uint64(d.length))
			slog.Warn("demux: discarding incomplete trailing frame",
				"bytes", d.length,
				"frame_size", d.frameSize,
			)
		}
		d.pool.Release(d.active)
		d.active = nil
		d.length = 0
	}
	close(d.ready)
}

// Filling reports whether a buffer is currently being filled and how many bytes it holds.
func (d *Demuxer) Filling() (active bool, length int) {
	return d.active != nil, d.length
}

// FramesProduced is the number of frames promoted so far.
func (d *Demuxer) FramesProduced() uint64 { return d.framesProduced.Load() }

// BytesFed is the number of bytes passed to Feed.
func (d *Demuxer) BytesFed() uint64 { return d.bytesFed.Load() }

// DiscardedBytes is the size of the incomplete trailing frame dropped by Finish.
func (d *Demuxer) DiscardedBytes() uint64 { return d.discardedBytes.Load() }

// Overflows counts integrity warnings where the fill cursor passed the frame size.
func (d *Demuxer) Overflows() uint64 { return d.overflows.Load() }
