package route

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"go.klb.dev/clipshare/internal/clip"
	"go.klb.dev/clipshare/internal/clipimage"
	"go.klb.dev/clipshare/internal/message"
	"go.klb.dev/clipshare/internal/wire"
)

// outcome is what a copy candidate reports back to the cascade.
type outcome int

const (
	absent   outcome = iota // nothing of this kind, try the next one
	failed                  // could not read this kind, try the next one
	produced                // a response was sent (or attempted), stop
)

type candidate struct {
	kind message.DataType
	send func(c *wire.Conn) (outcome, error)
}

// candidates returns the copy cascade in priority order.
func (h *Handler) candidates() []candidate {
	return []candidate{
		{message.DataFiles, h.sendFiles},
		{message.DataText, h.sendText},
		{message.DataClipImage, h.sendImage},
	}
}

// Copy sends exactly one response describing what is available to copy:
// the selected files if any are selected, otherwise the clipboard text,
// otherwise the clipboard image, otherwise an error response.
func (h *Handler) Copy(c *wire.Conn) error {
	for _, cand := range h.candidates() {
		out, err := cand.send(c)
		switch out {
		case produced:
			return err
		case failed:
			slog.Debug("copy candidate unavailable", "kind", cand.kind, "err", err)
		}
	}
	h.copyEmpty.Add(1)
	slog.Info("nothing to copy", "remote", c.RemoteAddr())
	return RespErrorMsg(c, msgNothingCopied)
}

// sendFiles sends the current selection. A non-empty selection always ends
// the cascade, even when every entry fails to stat.
func (h *Handler) sendFiles(c *wire.Conn) (outcome, error) {
	paths := h.sel.Snapshot()
	if len(paths) == 0 {
		return absent, nil
	}

	entries := make([]message.PathInfo, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			slog.Error("get file size failed", "path", p, "err", err)
			continue
		}
		entries = append(entries, message.PathInfo{Path: p, Size: info.Size()})
	}

	err := SendHead(c, &message.ResponseHead{
		Code:     message.StatusSuccess,
		Msg:      msgCopied,
		DataType: message.DataFiles,
		DataLen:  0,
		Paths:    entries,
	})
	if err != nil {
		return produced, fmt.Errorf("send files head: %w", err)
	}
	h.sel.NotifyConsumed()
	h.copyFiles.Add(1)
	logFiles(c.RemoteAddr().String(), entries)
	return produced, nil
}

func (h *Handler) sendText(c *wire.Conn) (outcome, error) {
	text, err := h.clip.Text()
	if err != nil {
		return classify(err), err
	}
	if text == "" {
		return absent, clip.ErrEmpty
	}
	if err := SendMsgWithBody(c, "", message.DataText, []byte(text)); err != nil {
		return produced, fmt.Errorf("send text: %w", err)
	}
	h.copyText.Add(1)
	logText(c.RemoteAddr().String(), text)
	return produced, nil
}

func (h *Handler) sendImage(c *wire.Conn) (outcome, error) {
	raw, err := h.clip.Image()
	if err != nil {
		return classify(err), err
	}
	data, err := clipimage.Encode(raw)
	if err != nil {
		return failed, fmt.Errorf("encode clipboard image: %w", err)
	}
	name := clipimage.Name(h.now())
	if err := SendMsgWithBody(c, name, message.DataClipImage, data); err != nil {
		return produced, fmt.Errorf("send image: %w", err)
	}
	h.copyImage.Add(1)
	slog.Info("clipboard image served",
		"remote", c.RemoteAddr().String(),
		"name", name,
		"size", fmt.Sprintf("%dx%d", raw.Width, raw.Height),
		"bytes", len(data),
	)
	return produced, nil
}

func classify(err error) outcome {
	if errors.Is(err, clip.ErrEmpty) {
		return absent
	}
	return failed
}
