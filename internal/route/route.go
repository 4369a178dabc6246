// Package route implements the two data-plane handlers: the copy handler,
// which decides what clipboard content to send, and the download handler,
// which streams a byte window of a file.
//
// Both write straight to the connection: a response head first, then
// whatever body the payload kind calls for. Handlers return an error only
// when the stream can no longer be trusted to be framed (write failure,
// short body); that error is for the dispatcher and is never sent to the peer.
package route

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"go.klb.dev/clipshare/internal/clip"
	"go.klb.dev/clipshare/internal/selection"
)

const (
	msgCopied         = "copy succeeded"
	msgNothingCopied  = "nothing has been copied yet"
	msgStartDownload  = "start download"
	maxDownloadBuffer = 30 * 1024 * 1024
)

// Options tunes a Handler.
type Options struct {
	// MaxBytesPerSec caps the combined download bandwidth of all
	// connections. Zero means unlimited.
	MaxBytesPerSec int
}

// Handler serves copy and download requests. It is safe for concurrent use
// by any number of connections.
type Handler struct {
	sel     *selection.Store
	clip    clip.Backend
	limiter *rate.Limiter
	now     func() time.Time

	copyFiles      atomic.Int64
	copyText       atomic.Int64
	copyImage      atomic.Int64
	copyEmpty      atomic.Int64
	downloads      atomic.Int64
	downloadErrors atomic.Int64
	bytesSent      atomic.Int64
}

// New returns a Handler reading the selection from sel and the clipboard
// from cb. cb should already be wrapped in clip.Locked when it is shared.
func New(sel *selection.Store, cb clip.Backend, opts Options) *Handler {
	return &Handler{
		sel:     sel,
		clip:    cb,
		limiter: newLimiter(opts.MaxBytesPerSec),
		now:     time.Now,
	}
}

// Stats is a snapshot of what a Handler has served.
type Stats struct {
	CopyFiles      int64
	CopyText       int64
	CopyImage      int64
	CopyEmpty      int64
	Downloads      int64
	DownloadErrors int64
	BytesSent      int64
}

// Stats returns the current counters.
func (h *Handler) Stats() Stats {
	return Stats{
		CopyFiles:      h.copyFiles.Load(),
		CopyText:       h.copyText.Load(),
		CopyImage:      h.copyImage.Load(),
		CopyEmpty:      h.copyEmpty.Load(),
		Downloads:      h.downloads.Load(),
		DownloadErrors: h.downloadErrors.Load(),
		BytesSent:      h.bytesSent.Load(),
	}
}
