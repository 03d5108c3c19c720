package canvas

import (
	"image"
	"image/color"
	"testing"

	framesource "github.com/e7canasta/orion-care-sensor/modules/frame-source"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestPlacement(t *testing.T) {
	img := solid(50, 25, color.RGBA{R: 255, A: 255})
	tests := []struct {
		name    string
		el      framesource.Element
		wantMin image.Point
	}{
		{"left top", framesource.Element{Image: img, Left: 25, Top: 37.5}, image.Pt(25, 38)},
		{"center", framesource.Element{Image: img, Left: 50, Top: 50, OriginX: framesource.OriginCenter, OriginY: framesource.OriginCenter}, image.Pt(25, 38)},
		{"right bottom", framesource.Element{Image: img, Left: 100, Top: 100, OriginX: framesource.OriginEnd, OriginY: framesource.OriginEnd}, image.Pt(50, 75)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Placement(&tt.el)
			if r.Min != tt.wantMin || r.Dx() != 50 || r.Dy() != 25 {
				t.Errorf("Placement() = %v, want min %v size 50x25", r, tt.wantMin)
			}
		})
	}
}

func TestRender_OrderAndBackground(t *testing.T) {
	c := New(100, 100)
	red := color.RGBA{R: 255, A: 255}
	green := color.RGBA{G: 255, A: 255}

	c.Add(&framesource.Element{Image: solid(50, 50, red), Left: 25, Top: 25})
	c.Add(&framesource.Element{Image: solid(50, 25, green), Left: 25, Top: 37})
	c.Add(nil) // ignored
	if n := len(c.Elements()); n != 2 {
		t.Fatalf("Elements() = %d, want 2", n)
	}

	out := c.Render()
	if got := out.RGBAAt(0, 0); got != (color.RGBA{A: 255}) {
		t.Errorf("background = %v, want opaque black", got)
	}
	if got := out.RGBAAt(30, 30); got != red {
		t.Errorf("(30,30) = %v, want red background element", got)
	}
	if got := out.RGBAAt(50, 50); got != green {
		t.Errorf("(50,50) = %v, want green frame drawn last", got)
	}
	if len(c.Elements()) != 0 {
		t.Error("Render() did not clear the element queue")
	}
	if c.Last() != out {
		t.Error("Last() does not return the rendered image")
	}
	t.Logf("✅ elements drawn in order over the background")
}

func TestBlur(t *testing.T) {
	c := New(10, 10)
	src := solid(40, 20, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	out := c.Blur(src, 64, 48)
	if out.Bounds().Dx() != 64 || out.Bounds().Dy() != 48 {
		t.Fatalf("Blur() size = %v, want 64x48", out.Bounds())
	}
	// a uniform image stays uniform through down/up scaling
	if got := out.RGBAAt(32, 24); got.R < 190 || got.G < 90 || got.A != 255 {
		t.Errorf("Blur() center = %v, want close to source color", got)
	}

	tiny := c.Blur(src, 3, 3)
	if tiny.Bounds().Dx() != 3 {
		t.Errorf("Blur() smaller than factor = %v", tiny.Bounds())
	}
}
