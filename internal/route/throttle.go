package route

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

const maxThrottleBurst = 256 * 1024

func newLimiter(bytesPerSec int) *rate.Limiter {
	if bytesPerSec <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), min(bytesPerSec, maxThrottleBurst))
}

// throttledWriter paces writes to lim, splitting them into burst-sized pieces.
type throttledWriter struct {
	w   io.Writer
	lim *rate.Limiter
}

func (t *throttledWriter) Write(p []byte) (int, error) {
	var written int
	for len(p) > 0 {
		n := min(len(p), t.lim.Burst())
		if err := t.lim.WaitN(context.Background(), n); err != nil {
			return written, err
		}
		m, err := t.w.Write(p[:n])
		written += m
		if err != nil {
			return written, err
		}
		p = p[n:]
	}
	return written, nil
}
