package demux

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// State is the current owner of a pooled buffer.
type State int

const (
	StateFree     State = iota // in the pool
	StateFilling               // demuxer is writing into it
	StateQueued                // complete, waiting in the ready queue
	StateBorrowed              // consumer is reading it
	numStates
)

// String returns a human-readable name for the state
func (s State) String() string {
	switch s {
	case StateFree:
		return "free"
	case StateFilling:
		return "filling"
	case StateQueued:
		return "queued"
	case StateBorrowed:
		return "borrowed"
	default:
		return "unknown"
	}
}

// Buffer is one frame-sized block owned by the pool.
type Buffer struct {
	id    int
	data  []byte
	state State // guarded by Pool.mu
}

// Bytes returns the frame bytes. Valid only while the caller owns the buffer.
func (b *Buffer) Bytes() []byte { return b.data }

// ID is the buffer's stable index inside its pool.
func (b *Buffer) ID() int { return b.id }

// Counts is a snapshot of the ownership ledger.
type Counts struct {
	Free     int
	Filling  int
	Queued   int
	Borrowed int
}

// Total sums every state; it always equals the pool capacity.
func (c Counts) Total() int {
	return c.Free + c.Filling + c.Queued + c.Borrowed
}

// Pool is a fixed set of reusable frame buffers.
//
// All buffers are allocated in NewPool; nothing is allocated afterwards.
// The free list is a buffered channel of capacity N, so acquiring blocks
// (or fails, for TryAcquire) once every buffer is owned elsewhere.
type Pool struct {
	frameSize int
	free      chan *Buffer

	mu     sync.Mutex
	counts [numStates]int
}

// NewPool allocates capacity buffers of frameSize bytes each.
func NewPool(capacity, frameSize int) (*Pool, error) {
	if capacity < 2 {
		return nil, fmt.Errorf("demux: pool capacity %d too small (need >= 2)", capacity)
	}
	if frameSize <= 0 {
		return nil, fmt.Errorf("demux: invalid frame size %d", frameSize)
	}

	p := &Pool{
		frameSize: frameSize,
		free:      make(chan *Buffer, capacity),
	}
	for i := 0; i < capacity; i++ {
		p.free <- &Buffer{id: i, data: make([]byte, frameSize)}
	}
	p.counts[StateFree] = capacity

	slog.Debug("demux: buffer pool allocated",
		"capacity", capacity,
		"frame_size", frameSize,
		"total_bytes", capacity*frameSize,
	)
	return p, nil
}

// Capacity is the number of buffers the pool owns.
func (p *Pool) Capacity() int { return cap(p.free) }

// FrameSize is the length of every buffer.
func (p *Pool) FrameSize() int { return p.frameSize }

// TryAcquire takes a free buffer without blocking. ok is false when the pool is exhausted.
func (p *Pool) TryAcquire() (b *Buffer, ok bool) {
	select {
	case b = <-p.free:
		p.move(b, StateFilling)
		return b, true
	default:
		return nil, false
	}
}

// Acquire blocks until a buffer is released or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*Buffer, error) {
	select {
	case b := <-p.free:
		p.move(b, StateFilling)
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a buffer to the pool from any non-free state.
// Releasing a buffer that is already free is logged and ignored.
func (p *Pool) Release(b *Buffer) {
	if b == nil {
		return
	}
	p.mu.Lock()
	if b.state == StateFree {
		p.mu.Unlock()
		slog.Error("demux: buffer released twice, ignoring", "buffer", b.id)
		return
	}
	p.counts[b.state]--
	p.counts[StateFree]++
	b.state = StateFree
	p.mu.Unlock()

	// never blocks: at most Capacity buffers exist
	p.free <- b
}

// MarkQueued records the filling -> queued handoff.
func (p *Pool) MarkQueued(b *Buffer) { p.move(b, StateQueued) }

// MarkBorrowed records the queued -> borrowed handoff.
func (p *Pool) MarkBorrowed(b *Buffer) { p.move(b, StateBorrowed) }

// Counts returns a consistent snapshot of the ledger.
func (p *Pool) Counts() Counts {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Counts{
		Free:     p.counts[StateFree],
		Filling:  p.counts[StateFilling],
		Queued:   p.counts[StateQueued],
		Borrowed: p.counts[StateBorrowed],
	}
}

func (p *Pool) move(b *Buffer, to State) {
	p.mu.Lock()
	p.counts[b.state]--
	p.counts[to]++
	b.state = to
	p.mu.Unlock()
}
