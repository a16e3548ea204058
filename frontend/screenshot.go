package frontend

import (
	"fmt"
	"image"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"
)

// WriteScreenshot saves RGBA framebuffer pixels as a PNG, scaled up by an
// integer factor with nearest-neighbour sampling so pixels stay sharp.
func WriteScreenshot(path string, pixels []byte, width, height, scale int) error {
	if scale < 1 {
		scale = 1
	}
	if len(pixels) < width*height*4 {
		return fmt.Errorf("screenshot: short pixel data: %d bytes", len(pixels))
	}

	src := &image.RGBA{
		Pix:    pixels[:width*height*4],
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}

	out := image.NewRGBA(image.Rect(0, 0, width*scale, height*scale))
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, out); err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	return nil
}
