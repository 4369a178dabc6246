//go:build darwin || windows || linux

package clip

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"

	"golang.design/x/clipboard"
)

type systemBackend struct{}

// New returns the system clipboard backend, or the headless backend if the
// display environment is unavailable (e.g. a headless server without X11 or
// Wayland, or a build without cgo). clipboard.Init is called here rather than
// in init() so that CLI sub-commands that never read the clipboard don't log
// the warning.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return Headless()
	}
	return systemBackend{}
}

func (systemBackend) Name() string { return "system clipboard" }

func (systemBackend) Text() (string, error) {
	text := clipboard.Read(clipboard.FmtText)
	if len(text) == 0 {
		return "", ErrEmpty
	}
	return string(text), nil
}

// Image reads the clipboard image, which golang.design/x/clipboard hands out
// PNG-encoded, and unpacks it into non-premultiplied RGBA samples.
func (systemBackend) Image() (RawImage, error) {
	data := clipboard.Read(clipboard.FmtImage)
	if len(data) == 0 {
		return RawImage{}, ErrEmpty
	}
	return decodeRaw(data)
}

func (systemBackend) Close() {}

func decodeRaw(data []byte) (RawImage, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return RawImage{}, fmt.Errorf("decode clipboard image: %w", err)
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if n, ok := src.(*image.NRGBA); ok {
		// Copy rows verbatim; going through draw would premultiply and lose
		// the colour of fully transparent pixels.
		for y := 0; y < b.Dy(); y++ {
			from := n.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:(y+1)*dst.Stride], n.Pix[from:from+dst.Stride])
		}
	} else {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	}
	return RawImage{Width: b.Dx(), Height: b.Dy(), Bytes: dst.Pix}, nil
}
