//go:build darwin || windows || linux

package clip

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestDecodeRawKeepsAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{G: 200, A: 128})
	src.SetNRGBA(2, 1, color.NRGBA{R: 1, G: 2, B: 3, A: 0})

	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}

	raw, err := decodeRaw(buf.Bytes())
	if err != nil {
		t.Fatalf("decodeRaw: %v", err)
	}
	if err := raw.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if raw.Width != 3 || raw.Height != 2 {
		t.Fatalf("size = %dx%d, want 3x2", raw.Width, raw.Height)
	}
	px := func(x, y int) []byte {
		i := (y*raw.Width + x) * 4
		return raw.Bytes[i : i+4]
	}
	if got := px(1, 0); !bytes.Equal(got, []byte{0, 200, 0, 128}) {
		t.Fatalf("pixel (1,0) = %v", got)
	}
	if got := px(0, 0); !bytes.Equal(got, []byte{255, 0, 0, 255}) {
		t.Fatalf("pixel (0,0) = %v", got)
	}
	if got := px(2, 1); !bytes.Equal(got, []byte{1, 2, 3, 0}) {
		t.Fatalf("pixel (2,1) = %v", got)
	}
}

func TestDecodeRawRejectsGarbage(t *testing.T) {
	if _, err := decodeRaw([]byte("not a png")); err == nil {
		t.Fatal("expected decode error")
	}
}
