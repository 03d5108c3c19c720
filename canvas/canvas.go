// Package canvas is an in-memory RGBA compositing surface for frame sources.
//
// Elements are queued with Add and drawn in order by Render, which mirrors
// how a scene graph canvas accumulates objects before a frame is flushed.
package canvas

import (
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/draw"

	framesource "github.com/e7canasta/orion-care-sensor/modules/frame-source"
)

// BlurFactor is how much Blur shrinks an image before scaling it back up.
const BlurFactor = 8

// Canvas implements framesource.Canvas
type Canvas struct {
	width      int
	height     int
	background color.RGBA

	mu       sync.Mutex
	elements []*framesource.Element
	last     *image.RGBA
}

// New creates a canvas of the given size with a black background.
func New(width, height int) *Canvas {
	return &Canvas{
		width:      width,
		height:     height,
		background: color.RGBA{A: 255},
	}
}

// SetBackground changes the fill used by Render.
func (c *Canvas) SetBackground(bg color.RGBA) {
	c.mu.Lock()
	c.background = bg
	c.mu.Unlock()
}

// Bounds is the canvas rectangle.
func (c *Canvas) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.width, c.height)
}

// Add queues an element. Elements are drawn in call order.
func (c *Canvas) Add(el *framesource.Element) {
	if el == nil || el.Image == nil {
		return
	}
	c.mu.Lock()
	c.elements = append(c.elements, el)
	c.mu.Unlock()
}

// Elements returns the queued elements.
func (c *Canvas) Elements() []*framesource.Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*framesource.Element(nil), c.elements...)
}

// Blur returns src stretched to width x height and blurred, by scaling it
// down BlurFactor times and back up with bilinear filtering.
func (c *Canvas) Blur(src *image.RGBA, width, height int) *image.RGBA {
	small := image.NewRGBA(image.Rect(0, 0, max(width/BlurFactor, 1), max(height/BlurFactor, 1)))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(out, out.Bounds(), small, small.Bounds(), draw.Src, nil)
	return out
}

// Render draws every queued element over the background, clears the queue
// and returns the composed image. The image is also kept as Last.
func (c *Canvas) Render() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	draw.Draw(out, out.Bounds(), image.NewUniform(c.background), image.Point{}, draw.Src)

	for _, el := range c.elements {
		r := Placement(el)
		draw.Draw(out, r, el.Image, el.Image.Bounds().Min, draw.Over)
	}
	c.elements = c.elements[:0]
	c.last = out
	return out
}

// Last is the most recent Render result, or nil.
func (c *Canvas) Last() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Placement resolves an element's origin into the canvas rectangle it covers.
func Placement(el *framesource.Element) image.Rectangle {
	b := el.Image.Bounds()
	x := el.Left - anchor(el.OriginX)*float64(b.Dx())
	y := el.Top - anchor(el.OriginY)*float64(b.Dy())
	pt := image.Pt(round(x), round(y))
	return image.Rectangle{Min: pt, Max: pt.Add(b.Size())}
}

func anchor(o framesource.Origin) float64 {
	switch o {
	case framesource.OriginCenter:
		return 0.5
	case framesource.OriginEnd:
		return 1
	default:
		return 0
	}
}

func round(v float64) int {
	return int(math.Round(v))
}
