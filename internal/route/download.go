package route

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"go.klb.dev/clipshare/internal/filepart"
	"go.klb.dev/clipshare/internal/message"
	"go.klb.dev/clipshare/internal/wire"
)

// ErrShortBody is returned by Download when fewer bytes than declared were
// streamed after a success head.
var ErrShortBody = errors.New("short body")

// Download streams the window [head.Start, head.End) of head.Path.
//
// Every check that can fail before the first body byte (existence, open,
// window bounds) is reported to the peer as an error response, so a success
// head is only sent once the range reader exists. After the head, failures
// are logged only: the response is already committed and the peer detects
// truncation by comparing against DataLen.
func (h *Handler) Download(c *wire.Conn, head *message.RequestHead) error {
	log := slog.With("path", head.Path, "start", head.Start, "end", head.End)

	info, err := os.Stat(head.Path)
	if err != nil {
		h.downloadErrors.Add(1)
		if errors.Is(err, fs.ErrNotExist) {
			log.Error("file not exists")
			return RespErrorMsg(c, fmt.Sprintf("file not exists: %s", head.Path))
		}
		log.Error("stat file failed", "err", err)
		return RespErrorMsg(c, fmt.Sprintf("stat file failed, err: %v", err))
	}
	if info.IsDir() {
		h.downloadErrors.Add(1)
		log.Error("download of a directory refused")
		return RespErrorMsg(c, fmt.Sprintf("not a regular file: %s", head.Path))
	}
	log.Debug("downloading file")

	f, err := os.Open(head.Path)
	if err != nil {
		h.downloadErrors.Add(1)
		log.Error("open file failed", "err", err)
		return RespErrorMsg(c, fmt.Sprintf("open file failed, err: %v", err))
	}
	r, err := filepart.NewReader(f, head.Start, head.End)
	if err != nil {
		_ = f.Close()
		h.downloadErrors.Add(1)
		log.Error("new file part reader failed", "err", err)
		return RespErrorMsg(c, fmt.Sprintf("invalid range: %v", err))
	}
	defer r.Close()

	want := head.Len()
	if err := SendHead(c, &message.ResponseHead{
		Code:     message.StatusSuccess,
		Msg:      msgStartDownload,
		DataType: message.DataBinary,
		DataLen:  want,
	}); err != nil {
		return fmt.Errorf("send download head: %w", err)
	}

	n, err := h.stream(c.Writer(), r, want)
	h.bytesSent.Add(n)
	if err != nil {
		h.downloadErrors.Add(1)
		log.Error("copy file to conn failed", "err", err, "sent", n)
		return fmt.Errorf("stream %s: %w", head.Path, err)
	}
	if n != want {
		h.downloadErrors.Add(1)
		log.Warn("copy file to conn incomplete", "sent", n, "expected", want)
		return fmt.Errorf("%w: sent %d of %d bytes", ErrShortBody, n, want)
	}
	h.downloads.Add(1)
	log.Info("file range served", "remote", c.RemoteAddr().String(), "bytes", n)
	return nil
}

// bufferSize returns the copy buffer size for a window of n bytes.
func bufferSize(n int64) int {
	return int(min(n, maxDownloadBuffer))
}

// stream copies n bytes from src to dst through a buffer of bufferSize(n).
func (h *Handler) stream(dst io.Writer, src io.Reader, n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	if h.limiter != nil {
		dst = &throttledWriter{w: dst, lim: h.limiter}
	}
	buf := make([]byte, bufferSize(n))
	// Hide ReaderFrom/WriterTo so that CopyBuffer uses buf and nothing larger.
	return io.CopyBuffer(struct{ io.Writer }{dst}, struct{ io.Reader }{src}, buf)
}
