// Package clip provides read access to the system clipboard. Build
// constraints select the implementation:
//
//	clip_system.go    macOS / Windows / Linux via golang.design/x/clipboard
//	clip_other.go     everything else gets the headless backend
//
// Every backend is meant to be wrapped in Locked so that only one caller
// touches the clipboard at a time across all connections.
package clip

import (
	"errors"
	"fmt"
	"sync"
)

// ErrEmpty is returned when the clipboard holds nothing of the requested kind.
var ErrEmpty = errors.New("clipboard empty")

// RawImage is an uncompressed clipboard image. Bytes holds interleaved RGBA
// samples, 4 bytes per pixel, row-major, len(Bytes) == Width*Height*4.
type RawImage struct {
	Width  int
	Height int
	Bytes  []byte
}

// Validate checks that the buffer length matches the dimensions.
func (img RawImage) Validate() error {
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("invalid image dimensions %dx%d", img.Width, img.Height)
	}
	if want := img.Width * img.Height * 4; len(img.Bytes) != want {
		return fmt.Errorf("image buffer is %d bytes, want %d for %dx%d RGBA",
			len(img.Bytes), want, img.Width, img.Height)
	}
	return nil
}

// Backend is the interface that all platform clipboard implementations satisfy.
// Each call is a point-in-time read; nothing is cached.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Text returns the clipboard text, or ErrEmpty.
	Text() (string, error)

	// Image returns the clipboard image as raw RGBA pixels, or ErrEmpty.
	Image() (RawImage, error)

	// Close releases any resources held by the backend.
	Close()
}

// Locked serialises access to a Backend behind one mutex. The lock is held
// only for the duration of a single read.
type Locked struct {
	mu sync.Mutex
	b  Backend
}

// NewLocked wraps b.
func NewLocked(b Backend) *Locked {
	return &Locked{b: b}
}

func (l *Locked) Name() string { return l.b.Name() }

func (l *Locked) Text() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Text()
}

func (l *Locked) Image() (RawImage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Image()
}

func (l *Locked) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.b.Close()
}

// headlessBackend is a no-op backend for environments without a display
// server (headless Linux servers, containers, etc.). It is always empty.
type headlessBackend struct{}

// Headless returns the no-op backend.
func Headless() Backend { return headlessBackend{} }

func (headlessBackend) Name() string             { return "headless (no-op)" }
func (headlessBackend) Text() (string, error)    { return "", ErrEmpty }
func (headlessBackend) Image() (RawImage, error) { return RawImage{}, ErrEmpty }
func (headlessBackend) Close()                   {}
