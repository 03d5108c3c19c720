package framesource

import (
	"fmt"
	"strings"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/frame-source/internal/geometry"
)

// Frame is a decoded frame handed back to the caller
type Frame struct {
	// Seq is the monotonic sequence number of delivered frames, starting at 1
	Seq uint64
	// Timestamp is when the frame was handed to the caller
	Timestamp time.Time
	// Width in pixels
	Width int
	// Height in pixels
	Height int
	// Data contains Width*Height*4 RGBA bytes, owned by the caller
	Data []byte
	// TraceID is a unique identifier for distributed tracing
	TraceID string
}

// ResizeMode maps the input aspect ratio onto the requested box
type ResizeMode int

const (
	// ResizeContainBlur letterboxes over a blurred copy filling the box (default)
	ResizeContainBlur ResizeMode = iota
	// ResizeContain letterboxes inside the box
	ResizeContain
	// ResizeCover fills the box and crops the overflow
	ResizeCover
	// ResizeStretch ignores the aspect ratio
	ResizeStretch
)

// String returns the mode's config name
func (m ResizeMode) String() string {
	switch m {
	case ResizeContainBlur:
		return "contain-blur"
	case ResizeContain:
		return "contain"
	case ResizeCover:
		return "cover"
	case ResizeStretch:
		return "stretch"
	default:
		return fmt.Sprintf("ResizeMode(%d)", int(m))
	}
}

// ParseResizeMode parses a mode name. The empty string selects contain-blur.
func ParseResizeMode(s string) (ResizeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "contain-blur":
		return ResizeContainBlur, nil
	case "contain":
		return ResizeContain, nil
	case "cover":
		return ResizeCover, nil
	case "stretch":
		return ResizeStretch, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownResizeMode, s)
	}
}

func (m ResizeMode) geometryMode() geometry.Mode {
	switch m {
	case ResizeContainBlur:
		return geometry.ModeContainBlur
	case ResizeContain:
		return geometry.ModeContain
	case ResizeCover:
		return geometry.ModeCover
	default:
		return geometry.ModeStretch
	}
}

// Origin is the anchor point of an element relative to its Left/Top position
type Origin int

const (
	// OriginStart anchors at the left (X) or top (Y) edge
	OriginStart Origin = iota
	// OriginCenter anchors at the center
	OriginCenter
	// OriginEnd anchors at the right (X) or bottom (Y) edge
	OriginEnd
)

// ParseOrigin accepts left/top, center and right/bottom. The empty string is OriginStart.
func ParseOrigin(s string) (Origin, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "left", "top":
		return OriginStart, nil
	case "center":
		return OriginCenter, nil
	case "right", "bottom":
		return OriginEnd, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownOrigin, s)
	}
}

// direction is +1 for left/top origins, 0 for center and -1 for right/bottom
func (o Origin) direction() float64 {
	switch o {
	case OriginStart:
		return 1
	case OriginCenter:
		return 0
	default:
		return -1
	}
}

// Backend selects the decoder producing the raw byte stream
type Backend int

const (
	// BackendFFmpeg runs an ffmpeg subprocess (default)
	BackendFFmpeg Backend = iota
	// BackendGStreamer runs an in-process GStreamer pipeline
	BackendGStreamer
)

// String returns a human-readable name for the backend
func (b Backend) String() string {
	switch b {
	case BackendFFmpeg:
		return "ffmpeg"
	case BackendGStreamer:
		return "gstreamer"
	default:
		return "unknown"
	}
}

// HardwareAccel represents hardware decoding preference
type HardwareAccel int

const (
	// AccelAuto uses GPU decoding where available (hevc via cuvid)
	AccelAuto HardwareAccel = iota
	// AccelSoftware forces CPU decoding
	AccelSoftware
)

// ClipParams describes the clip and where it lands on the canvas
type ClipParams struct {
	// Path is the input file (required)
	Path string
	// CutFrom and CutTo trim the input, in seconds; 0 means unset
	CutFrom float64
	CutTo   float64

	ResizeMode ResizeMode
	// SpeedFactor scales presentation timestamps; 0 is treated as 1
	SpeedFactor float64

	// InputWidth and InputHeight are the source dimensions; probed when 0
	InputWidth  int
	InputHeight int

	// Width and Height are fractions of the canvas; 0 means the whole canvas
	Width  float64
	Height float64
	// WidthPx and HeightPx are absolute sizes and win over the fractions
	WidthPx  int
	HeightPx int

	// Left and Top are fractions of the canvas
	Left float64
	Top  float64

	OriginX Origin
	OriginY Origin
}

// Config contains configuration for a frame source session
type Config struct {
	CanvasWidth  int
	CanvasHeight int
	// FrameRate is the output rate, e.g. "30" or "30000/1001"
	FrameRate string

	// PoolSize is the number of frame buffers (default 5, minimum 2)
	PoolSize int
	// ChunkSize is the read size from the decoder pipe (default 64 KiB)
	ChunkSize int
	// ReadTimeout bounds a single ReadNextFrame wait; 0 disables it
	ReadTimeout time.Duration

	FFmpegPath      string
	FFprobePath     string
	EnableFFmpegLog bool

	Backend      Backend
	Acceleration HardwareAccel

	Clip ClipParams
}

const (
	defaultPoolSize  = 5
	defaultChunkSize = 64 * 1024
)

// Stats contains current session statistics
type Stats struct {
	// FramesProduced is the number of complete frames reassembled
	FramesProduced uint64
	// FramesDelivered is the number of frames returned to the caller
	FramesDelivered uint64
	// FramesComposited is the number of frames drawn onto the canvas
	FramesComposited uint64
	// BytesRead is the total bytes read from the decoder
	BytesRead uint64
	// Pauses and Resumes count flow-control transitions
	Pauses  uint64
	Resumes uint64
	// Paused is true while the decoder is not being read
	Paused bool
	// DiscardedBytes is the size of the incomplete trailing frame, if any
	DiscardedBytes uint64
	// OverflowEvents counts fill-cursor integrity warnings
	OverflowEvents uint64
	// Pool is the buffer ownership ledger
	Pool PoolCounts
	// FPSReal is frames read per second since Open
	FPSReal float64
	// Resolution is the target frame size (e.g. "640x360")
	Resolution string
	// Backend is the decoder backend name
	Backend string
	// Ended is true once the decoder stream ended
	Ended bool
}

// PoolCounts is how many buffers are in each ownership state
type PoolCounts struct {
	Free     int
	Filling  int
	Queued   int
	Borrowed int
}
