package frontend

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// Renderer owns the ebiten offscreen buffer and draws core output with
// aspect-preserving integer-friendly scaling.
type Renderer struct {
	offscreen *ebiten.Image
	drawOpts  ebiten.DrawImageOptions
}

// NewRenderer creates an empty renderer; the offscreen buffer is
// allocated on first draw.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Draw renders RGBA pixel data to the screen, scaled to fit while
// preserving aspect ratio.
func (r *Renderer) Draw(screen *ebiten.Image, pixels []byte, width, height int) {
	if width == 0 || height == 0 {
		return
	}
	required := width * height * 4
	if len(pixels) < required {
		return
	}

	if r.offscreen == nil || r.offscreen.Bounds().Dx() != width || r.offscreen.Bounds().Dy() != height {
		r.offscreen = ebiten.NewImage(width, height)
	}
	r.offscreen.WritePixels(pixels[:required])

	screenW, screenH := screen.Bounds().Dx(), screen.Bounds().Dy()
	scaleX := float64(screenW) / float64(width)
	scaleY := float64(screenH) / float64(height)
	scale := scaleX
	if scaleY < scaleX {
		scale = scaleY
	}

	offsetX := (float64(screenW) - float64(width)*scale) / 2
	offsetY := (float64(screenH) - float64(height)*scale) / 2

	r.drawOpts = ebiten.DrawImageOptions{}
	r.drawOpts.GeoM.Scale(scale, scale)
	r.drawOpts.GeoM.Translate(offsetX, offsetY)
	r.drawOpts.Filter = ebiten.FilterNearest
	screen.DrawImage(r.offscreen, &r.drawOpts)
}
