package escpos

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// lanczos3 is the three-lobe Lanczos windowed-sinc resampling kernel.
var lanczos3 = &draw.Kernel{Support: 3, At: func(t float64) float64 {
	if t == 0 {
		return 1
	}
	x := math.Pi * t
	return 3 * math.Sin(x) * math.Sin(x/3) / (x * x)
}}

// RasterImage downscales img (Lanczos resample) to at most maxWidth
// pixels wide, thresholds to monochrome at 128, and emits the
// GS v 0 raster command: header xL xH yL yH followed by
// byte_width*height bytes, MSB-first within each byte.
func (b *Builder) RasterImage(img image.Image, maxWidth int) *Builder {
	src := img.Bounds()
	w, h := src.Dx(), src.Dy()
	if w > maxWidth {
		scale := float64(maxWidth) / float64(w)
		h = int(float64(h) * scale)
		w = maxWidth
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	lanczos3.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)

	byteWidth := (w + 7) / 8
	bitmap := make([]byte, byteWidth*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := dst.GrayAt(x, y)
			if isDark(g) {
				bitmap[y*byteWidth+x/8] |= 0x80 >> uint(x%8)
			}
		}
	}

	xL := byte(byteWidth % 256)
	xH := byte(byteWidth / 256)
	yL := byte(h % 256)
	yH := byte(h / 256)

	b.buf = append(b.buf, gs, 0x76, 0x30, 0x00, xL, xH, yL, yH)
	b.buf = append(b.buf, bitmap...)
	return b
}

func isDark(g color.Gray) bool {
	return g.Y < 128
}
