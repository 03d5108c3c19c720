package main

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const lineHeight = 15

// addOverlay returns a copy of img with lines drawn in the top-left corner
func addOverlay(img *image.RGBA, lines []string) *image.RGBA {
	if img == nil || len(lines) == 0 {
		return img
	}

	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)

	// shaded band behind the text
	band := image.Rect(0, 0, out.Bounds().Dx(), 6+lineHeight*len(lines)).Add(out.Bounds().Min)
	draw.Draw(out, band, image.NewUniform(color.RGBA{A: 160}), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(color.RGBA{R: 255, G: 255, A: 255}),
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		d.Dot = fixed.P(out.Bounds().Min.X+6, out.Bounds().Min.Y+lineHeight*(i+1))
		d.DrawString(line)
	}
	return out
}
