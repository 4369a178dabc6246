package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"go.klb.dev/clipshare/internal/filepart"
	"go.klb.dev/clipshare/internal/message"
)

// Fetch defaults.
const (
	DefaultChunkSize = 8 * 1024 * 1024
	DefaultWorkers   = 4
	DefaultRetries   = 3
)

// FetchOptions tunes FetchFile.
type FetchOptions struct {
	ChunkSize int64
	Workers   int
	Retries   int
	// Coverage, when non-nil, holds parts already on disk from an earlier
	// attempt; only its missing parts are requested.
	Coverage *filepart.Coverage
	// Progress, when set, is called after every completed part.
	Progress func(received, total int64)
}

func (o FetchOptions) withDefaults() FetchOptions {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	return o
}

// FetchFile downloads entry into dst in parallel chunks. It returns the
// coverage reached so that a failed fetch can be resumed by passing it back
// in FetchOptions.Coverage.
func (c *Client) FetchFile(ctx context.Context, entry message.PathInfo, dst string, opts FetchOptions) (*filepart.Coverage, error) {
	opts = opts.withDefaults()

	cov := opts.Coverage
	resuming := cov != nil
	if cov == nil || cov.Size() != entry.Size {
		cov = filepart.NewCoverage(entry.Size)
		resuming = false
	}

	flags := os.O_CREATE | os.O_WRONLY
	if !resuming {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(dst, flags, 0o644)
	if err != nil {
		return cov, fmt.Errorf("open %s: %w", dst, err)
	}
	defer f.Close()
	if err := f.Truncate(entry.Size); err != nil {
		return cov, fmt.Errorf("truncate %s: %w", dst, err)
	}

	var parts []filepart.Part
	for _, gap := range cov.Missing() {
		for _, p := range filepart.Split(gap.Len(), opts.ChunkSize) {
			parts = append(parts, filepart.Part{Start: gap.Start + p.Start, End: gap.Start + p.End})
		}
	}
	log := slog.With("path", entry.Path, "dst", dst)
	log.Debug("fetch planned", "parts", len(parts), "size", entry.Size, "resuming", resuming)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, p := range parts {
		p := p
		g.Go(func() error {
			var err error
			for attempt := 0; attempt <= opts.Retries; attempt++ {
				if attempt > 0 {
					log.Warn("retrying part", "start", p.Start, "end", p.End, "attempt", attempt, "err", err)
					select {
					case <-gctx.Done():
						return gctx.Err()
					case <-time.After(backoff(attempt)):
					}
				}
				w := filepart.NewWriter(f, p.Start, p.End)
				if _, err = c.Download(gctx, entry.Path, p.Start, p.End, w); err == nil {
					cov.Add(p.Start, p.End)
					if opts.Progress != nil {
						opts.Progress(cov.Received(), entry.Size)
					}
					return nil
				}
				var remote *message.RemoteError
				if errors.As(err, &remote) || gctx.Err() != nil {
					break
				}
			}
			return fmt.Errorf("part [%d, %d): %w", p.Start, p.End, err)
		})
	}
	if err := g.Wait(); err != nil {
		return cov, err
	}
	if err := f.Sync(); err != nil {
		return cov, fmt.Errorf("sync %s: %w", dst, err)
	}
	if !cov.Complete() {
		return cov, fmt.Errorf("fetch %s: incomplete, missing %v", entry.Path, cov.Missing())
	}
	log.Info("fetch complete", "bytes", entry.Size, "parts", len(parts))
	return cov, nil
}

func backoff(attempt int) time.Duration {
	return min(time.Duration(attempt)*200*time.Millisecond, 2*time.Second)
}
