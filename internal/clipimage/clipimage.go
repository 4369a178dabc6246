// Package clipimage turns raw clipboard pixels into PNG files.
package clipimage

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"time"

	"go.klb.dev/clipshare/internal/clip"
)

// nameLayout renders as YYYYMMDDHHMMSS.
const nameLayout = "20060102150405"

// Name returns the logical filename for an image captured at t, in t's
// location.
func Name(t time.Time) string {
	return t.Format(nameLayout) + ".png"
}

// Encode converts raw interleaved RGBA samples into a PNG. Channel order and
// alpha are preserved exactly; no colour-space conversion is applied.
func Encode(raw clip.RawImage) ([]byte, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, raw.Width, raw.Height))
	for y := 0; y < raw.Height; y++ {
		for x := 0; x < raw.Width; x++ {
			i := (y*raw.Width + x) * 4
			img.SetNRGBA(x, y, color.NRGBA{
				R: raw.Bytes[i],
				G: raw.Bytes[i+1],
				B: raw.Bytes[i+2],
				A: raw.Bytes[i+3],
			})
		}
	}

	var buf bytes.Buffer
	buf.Grow(len(raw.Bytes) / 2)
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}
