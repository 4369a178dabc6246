package clipimage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"go.klb.dev/clipshare/internal/clip"
)

func rawImage(w, h int, opaque bool) clip.RawImage {
	buf := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		buf[i*4] = byte(i)
		buf[i*4+1] = byte(i * 3)
		buf[i*4+2] = byte(255 - i)
		if opaque {
			buf[i*4+3] = 255
		} else {
			buf[i*4+3] = byte(i*11) | 1
		}
	}
	return clip.RawImage{Width: w, Height: h, Bytes: buf}
}

func TestEncodeRoundTrip(t *testing.T) {
	for _, opaque := range []bool{true, false} {
		raw := rawImage(7, 5, opaque)
		data, err := Encode(raw)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("png.Decode: %v", err)
		}
		if b := img.Bounds(); b.Dx() != raw.Width || b.Dy() != raw.Height {
			t.Fatalf("decoded size %dx%d, want %dx%d", b.Dx(), b.Dy(), raw.Width, raw.Height)
		}
		for y := 0; y < raw.Height; y++ {
			for x := 0; x < raw.Width; x++ {
				i := (y*raw.Width + x) * 4
				want := color.NRGBA{R: raw.Bytes[i], G: raw.Bytes[i+1], B: raw.Bytes[i+2], A: raw.Bytes[i+3]}
				got := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				if n, ok := img.(*image.NRGBA); ok {
					got = n.NRGBAAt(x, y)
				}
				if got != want {
					t.Fatalf("opaque=%v pixel (%d,%d) = %v, want %v", opaque, x, y, got, want)
				}
			}
		}
	}
}

func TestEncodeSinglePixelChannelOrder(t *testing.T) {
	raw := clip.RawImage{Width: 1, Height: 1, Bytes: []byte{10, 20, 30, 40}}
	data, err := Encode(raw)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	n, ok := img.(*image.NRGBA)
	if !ok {
		t.Fatalf("decoded %T, want *image.NRGBA for translucent pixel", img)
	}
	if got := n.NRGBAAt(0, 0); got != (color.NRGBA{R: 10, G: 20, B: 30, A: 40}) {
		t.Fatalf("pixel = %v", got)
	}
}

func TestEncodeRejectsBadBuffer(t *testing.T) {
	if _, err := Encode(clip.RawImage{Width: 2, Height: 2, Bytes: make([]byte, 12)}); err == nil {
		t.Fatal("expected error for short buffer")
	}
	if _, err := Encode(clip.RawImage{}); err == nil {
		t.Fatal("expected error for empty image")
	}
}

func TestName(t *testing.T) {
	ts := time.Date(2024, time.March, 7, 9, 5, 3, 0, time.Local)
	if got := Name(ts); got != "20240307090503.png" {
		t.Fatalf("Name = %q", got)
	}
}
