package demux

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// FlowController is the backpressure point between the demuxer and the consumer.
//
// The demuxer runs on the goroutine that reads the byte source. When no
// buffer is free (or the ready queue is full) the controller marks the
// stream paused and blocks that goroutine, so nothing more is read from the
// source; the decoder then stalls on its own output pipe. The first release
// unblocks it and the stream resumes.
type FlowController struct {
	pool  *Pool
	ready chan *Buffer

	paused  atomic.Bool
	pauses  atomic.Uint64
	resumes atomic.Uint64

	// OnPause and OnResume, when set, observe the transitions. They run on
	// the producer goroutine.
	OnPause  func(reason string)
	OnResume func()
}

// NewFlowController wires the controller to a pool and its ready queue.
func NewFlowController(pool *Pool, ready chan *Buffer) *FlowController {
	return &FlowController{pool: pool, ready: ready}
}

// Acquire returns a free buffer, pausing the stream while the pool is exhausted.
func (f *FlowController) Acquire(ctx context.Context) (*Buffer, error) {
	if b, ok := f.pool.TryAcquire(); ok {
		return b, nil
	}

	f.pause("pool exhausted")
	b, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	f.resume()
	return b, nil
}

// Promote hands a filled buffer to the ready queue, pausing while the queue is full.
func (f *FlowController) Promote(ctx context.Context, b *Buffer) error {
	f.pool.MarkQueued(b)

	select {
	case f.ready <- b:
		return nil
	default:
	}

	f.pause("ready queue full")
	select {
	case f.ready <- b:
		f.resume()
		return nil
	case <-ctx.Done():
		f.pool.Release(b)
		return ctx.Err()
	}
}

// Paused reports whether the producer is currently blocked.
func (f *FlowController) Paused() bool { return f.paused.Load() }

// Pauses is the number of times the stream was paused.
func (f *FlowController) Pauses() uint64 { return f.pauses.Load() }

// Resumes is the number of times the stream was resumed.
func (f *FlowController) Resumes() uint64 { return f.resumes.Load() }

func (f *FlowController) pause(reason string) {
	if !f.paused.CompareAndSwap(false, true) {
		return
	}
	f.pauses.Add(1)
	slog.Debug("demux: pausing byte source", "reason", reason, "pool", f.pool.Counts())
	if f.OnPause != nil {
		f.OnPause(reason)
	}
}

func (f *FlowController) resume() {
	if !f.paused.CompareAndSwap(true, false) {
		return
	}
	f.resumes.Add(1)
	slog.Debug("demux: resuming byte source")
	if f.OnResume != nil {
		f.OnResume()
	}
}
