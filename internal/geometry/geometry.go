// Package geometry computes target frame dimensions, decoder scale/crop
// filters and placement offsets for a clip drawn onto a canvas.
//
// Everything here is a pure function of its inputs: the same Input always
// yields the same Plan.
package geometry

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidDimensions is returned when a canvas, input or requested size is not positive.
var ErrInvalidDimensions = errors.New("geometry: dimensions must be positive")

// Mode is the resize policy mapping the input aspect ratio onto the requested box.
type Mode int

const (
	// ModeContainBlur letterboxes the frame over a blurred copy filling the box
	ModeContainBlur Mode = iota
	// ModeContain letterboxes the frame inside the box
	ModeContain
	// ModeCover scales to fill the box, then crops the overflow
	ModeCover
	// ModeStretch ignores the input aspect ratio
	ModeStretch
)

// IsContain reports whether the mode letterboxes (contain or contain-blur).
func (m Mode) IsContain() bool {
	return m == ModeContain || m == ModeContainBlur
}

// Input describes one clip to be planned.
type Input struct {
	CanvasWidth  int
	CanvasHeight int

	// Width and Height are fractions of the canvas; 0 means the whole canvas.
	Width  float64
	Height float64
	// WidthPx and HeightPx are absolute sizes and win over the fractions when > 0.
	WidthPx  int
	HeightPx int

	// Left and Top are fractions of the canvas.
	Left float64
	Top  float64

	InputWidth  int
	InputHeight int

	Mode        Mode
	SpeedFactor float64 // 0 is treated as 1
	Channels    int     // bytes per pixel, 4 for RGBA
}

// Crop is a centered crop window applied after scaling (cover mode).
type Crop struct {
	Width  int
	Height int
	X      int
	Y      int
}

// Plan is the planner output.
type Plan struct {
	RequestedWidth  int
	RequestedHeight int
	TargetWidth     int
	TargetHeight    int

	// ScaledWidth/ScaledHeight is the size the decoder scales to before any crop.
	ScaledWidth  int
	ScaledHeight int
	Crop         *Crop

	// Left and Top are canvas pixel positions of the requested box.
	Left float64
	Top  float64

	Mode          Mode
	Channels      int
	FrameByteSize int
	SpeedFactor   float64

	ScaleFilter string // e.g. "scale=50:25" or "scale=100:50,crop=50:50"
	PTSFilter   string // empty when SpeedFactor == 1
}

// Compute plans one clip.
//
// Tie-break: ratioW = requested/input width, ratioH = requested/input height.
// For contain modes the height constrains when ratioW > ratioH; for cover the
// width constrains in that case (the frame is scaled to fill and cropped).
// Unknown modes fall back to stretch.
func Compute(in Input) (Plan, error) {
	if in.CanvasWidth <= 0 || in.CanvasHeight <= 0 {
		return Plan{}, fmt.Errorf("%w: canvas %dx%d", ErrInvalidDimensions, in.CanvasWidth, in.CanvasHeight)
	}
	if in.InputWidth <= 0 || in.InputHeight <= 0 {
		return Plan{}, fmt.Errorf("%w: input %dx%d", ErrInvalidDimensions, in.InputWidth, in.InputHeight)
	}

	channels := in.Channels
	if channels <= 0 {
		channels = 4
	}
	speed := in.SpeedFactor
	if speed == 0 {
		speed = 1
	}

	reqW := requestedSize(in.WidthPx, in.Width, in.CanvasWidth)
	reqH := requestedSize(in.HeightPx, in.Height, in.CanvasHeight)
	if reqW <= 0 || reqH <= 0 {
		return Plan{}, fmt.Errorf("%w: requested %dx%d", ErrInvalidDimensions, reqW, reqH)
	}

	ratioW := float64(reqW) / float64(in.InputWidth)
	ratioH := float64(reqH) / float64(in.InputHeight)
	aspect := float64(in.InputWidth) / float64(in.InputHeight)

	p := Plan{
		RequestedWidth:  reqW,
		RequestedHeight: reqH,
		TargetWidth:     reqW,
		TargetHeight:    reqH,
		Left:            in.Left * float64(in.CanvasWidth),
		Top:             in.Top * float64(in.CanvasHeight),
		Mode:            in.Mode,
		Channels:        channels,
		SpeedFactor:     speed,
	}

	switch in.Mode {
	case ModeContain, ModeContainBlur:
		if ratioW > ratioH {
			p.TargetHeight = reqH
			p.TargetWidth = round(float64(reqH) * aspect)
		} else {
			p.TargetWidth = reqW
			p.TargetHeight = round(float64(reqW) / aspect)
		}
		// Extreme aspect ratios can round a side down to zero
		p.TargetWidth = max(p.TargetWidth, 1)
		p.TargetHeight = max(p.TargetHeight, 1)
		p.ScaledWidth, p.ScaledHeight = p.TargetWidth, p.TargetHeight
		p.ScaleFilter = fmt.Sprintf("scale=%d:%d", p.TargetWidth, p.TargetHeight)

	case ModeCover:
		if ratioW > ratioH {
			p.ScaledWidth = reqW
			p.ScaledHeight = round(float64(reqW) / aspect)
		} else {
			p.ScaledHeight = reqH
			p.ScaledWidth = round(float64(reqH) * aspect)
		}
		p.Crop = &Crop{
			Width:  reqW,
			Height: reqH,
			X:      (p.ScaledWidth - reqW) / 2,
			Y:      (p.ScaledHeight - reqH) / 2,
		}
		p.ScaleFilter = fmt.Sprintf("scale=%d:%d,crop=%d:%d", p.ScaledWidth, p.ScaledHeight, reqW, reqH)

	default: // stretch
		p.ScaledWidth, p.ScaledHeight = reqW, reqH
		p.ScaleFilter = fmt.Sprintf("scale=%d:%d", reqW, reqH)
	}

	if speed != 1 {
		p.PTSFilter = "setpts=" + strconv.FormatFloat(speed, 'f', -1, 64) + "*PTS"
	}

	p.FrameByteSize = p.TargetWidth * p.TargetHeight * channels
	return p, nil
}

// CenterOffset returns the shift that centers the target frame inside the
// requested box. dirX/dirY are +1 for left/top origins, 0 for center
// origins (the anchor is already the box center) and -1 for right/bottom.
// Only contain modes are centered.
func (p Plan) CenterOffset(dirX, dirY float64) (dx, dy float64) {
	if !p.Mode.IsContain() {
		return 0, 0
	}
	dx = dirX * float64(p.RequestedWidth-p.TargetWidth) / 2
	dy = dirY * float64(p.RequestedHeight-p.TargetHeight) / 2
	return dx, dy
}

// Passthrough reports whether decoded frames can be handed to the caller as-is:
// no blurred background and the target already fills the requested box.
func (p Plan) Passthrough() bool {
	return p.Mode != ModeContainBlur &&
		p.RequestedWidth == p.TargetWidth &&
		p.RequestedHeight == p.TargetHeight
}

// FilterChain joins the timestamp, frame-rate and scale filters into one -vf value.
func (p Plan) FilterChain(frameRate string) string {
	chain := ""
	if p.PTSFilter != "" {
		chain = p.PTSFilter + ","
	}
	return chain + "fps=" + frameRate + "," + p.ScaleFilter
}

func requestedSize(px int, frac float64, canvas int) int {
	if px > 0 {
		return px
	}
	if frac == 0 {
		return canvas
	}
	return round(frac * float64(canvas))
}

func round(v float64) int {
	return int(math.Round(v))
}
