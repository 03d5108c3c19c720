package framesource

import (
	"fmt"

	"github.com/e7canasta/orion-care-sensor/modules/frame-source/internal/geometry"
)

// Geometry is the planned size and placement of a clip
type Geometry struct {
	// InputWidth and InputHeight are the decoded source dimensions
	InputWidth  int
	InputHeight int

	RequestedWidth  int
	RequestedHeight int
	TargetWidth     int
	TargetHeight    int

	// Left and Top are canvas pixel positions of the requested box
	Left float64
	Top  float64
	// CenterOffsetX/Y shift a letterboxed frame to the middle of the box
	CenterOffsetX float64
	CenterOffsetY float64

	// ScaleFilter and PTSFilter are decoder filter fragments
	ScaleFilter string
	PTSFilter   string

	FrameByteSize int
	// Passthrough is true when frames are returned to the caller instead of composited
	Passthrough bool
}

// PlanGeometry computes where and how large the clip is drawn. The clip's
// InputWidth and InputHeight must be set.
func PlanGeometry(canvasWidth, canvasHeight int, clip ClipParams) (Geometry, error) {
	p, err := plan(canvasWidth, canvasHeight, clip)
	if err != nil {
		return Geometry{}, err
	}
	dx, dy := p.CenterOffset(clip.OriginX.direction(), clip.OriginY.direction())
	return newGeometry(p, clip, dx, dy), nil
}

func newGeometry(p geometry.Plan, clip ClipParams, dx, dy float64) Geometry {
	return Geometry{
		InputWidth:      clip.InputWidth,
		InputHeight:     clip.InputHeight,
		RequestedWidth:  p.RequestedWidth,
		RequestedHeight: p.RequestedHeight,
		TargetWidth:     p.TargetWidth,
		TargetHeight:    p.TargetHeight,
		Left:            p.Left,
		Top:             p.Top,
		CenterOffsetX:   dx,
		CenterOffsetY:   dy,
		ScaleFilter:     p.ScaleFilter,
		PTSFilter:       p.PTSFilter,
		FrameByteSize:   p.FrameByteSize,
		Passthrough:     p.Passthrough(),
	}
}

func plan(canvasWidth, canvasHeight int, clip ClipParams) (geometry.Plan, error) {
	p, err := geometry.Compute(geometry.Input{
		CanvasWidth:  canvasWidth,
		CanvasHeight: canvasHeight,
		Width:        clip.Width,
		Height:       clip.Height,
		WidthPx:      clip.WidthPx,
		HeightPx:     clip.HeightPx,
		Left:         clip.Left,
		Top:          clip.Top,
		InputWidth:   clip.InputWidth,
		InputHeight:  clip.InputHeight,
		Mode:         clip.ResizeMode.geometryMode(),
		SpeedFactor:  clip.SpeedFactor,
		Channels:     4,
	})
	if err != nil {
		return geometry.Plan{}, fmt.Errorf("framesource: planning %s: %w", clip.Path, err)
	}
	return p, nil
}
