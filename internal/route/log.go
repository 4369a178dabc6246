package route

import (
	"context"
	"log/slog"

	"go.klb.dev/clipshare/internal/message"
)

// logFiles logs a served selection at INFO (count, total size) and each
// entry at DEBUG.
func logFiles(remote string, entries []message.PathInfo) {
	var total int64
	for _, e := range entries {
		total += e.Size
	}
	slog.Info("selection served", "remote", remote, "files", len(entries), "total_bytes", total)

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	for _, e := range entries {
		slog.Debug("selection entry", "path", e.Path, "size_bytes", e.Size)
	}
}

// logText logs served clipboard text at INFO (length) and DEBUG (preview up
// to 120 chars).
func logText(remote, text string) {
	slog.Info("clipboard text served", "remote", remote, "bytes", len(text))

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	preview := []rune(text)
	if len(preview) > 120 {
		preview = append(preview[:120], '…')
	}
	slog.Debug("clipboard text", "preview", string(preview))
}
