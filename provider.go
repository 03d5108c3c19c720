package framesource

import (
	"context"
	"image"
)

// FrameProvider defines the contract a renderer pulls frames through
//
// Implementations must guarantee:
//   - ReadNextFrame has at most one call in flight
//   - ReadNextFrame returns (nil, nil) both after compositing onto the canvas
//     and once the stream ended and drained (or after Close); Drained tells
//     the two apart
//   - Close is idempotent and resolves a pending ReadNextFrame
//   - Stats is safe from any goroutine
type FrameProvider interface {
	// ReadNextFrame returns the next frame.
	//
	// When the frame fills the requested box and needs no background it is
	// returned as *Frame. Otherwise it is composited onto canvas (with a
	// blurred background for contain-blur) and ReadNextFrame returns nil.
	//
	// Returns an error if:
	//   - ctx is cancelled or the read timeout elapses
	//   - another call is in flight
	//   - the decoder failed (after queued frames were read)
	ReadNextFrame(ctx context.Context, canvas Canvas) (*Frame, error)

	// Drained reports whether no more frames will be produced: the stream
	// ended and every queued frame was read, or the provider was closed.
	// Once true it stays true.
	Drained() bool

	// Close stops the decoder and releases resources.
	Close() error

	// Stats returns current session statistics.
	Stats() Stats
}

// Canvas is the compositing sink frames are drawn onto
type Canvas interface {
	// Add queues an element for drawing, in call order
	Add(el *Element)
	// Blur returns a blurred copy of src stretched to width x height
	Blur(src *image.RGBA, width, height int) *image.RGBA
}

// Element is a positioned image on the canvas
type Element struct {
	Image *image.RGBA
	// Left and Top are canvas pixel positions of the anchor point
	Left float64
	Top  float64

	OriginX Origin
	OriginY Origin
}
