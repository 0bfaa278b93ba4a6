package artifact

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
)

var (
	placeholderOnce sync.Once
	placeholderPNG  []byte
)

// Placeholder returns the generated "no preview" thumbnail served when a
// model has no stored thumbnail at any location. Rendered once, cached.
func Placeholder() []byte {
	placeholderOnce.Do(func() {
		const width, height = 400, 300

		background := color.RGBA{R: 0x1e, G: 0x29, B: 0x3b, A: 0xff}
		gridline := color.RGBA{R: 0x33, G: 0x41, B: 0x55, A: 0xff}

		img := image.NewRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if x%20 == 0 || y%20 == 0 {
					img.Set(x, y, gridline)
				} else {
					img.Set(x, y, background)
				}
			}
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			// Static input; encoding cannot fail at runtime.
			panic(err)
		}
		placeholderPNG = buf.Bytes()
	})
	return placeholderPNG
}
