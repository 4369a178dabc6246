package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipshare/internal/filepart"
	"go.klb.dev/clipshare/internal/message"
)

func newFetchCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "fetch REMOTE_PATH",
		Short: "Download a file, or a byte range of it, from the server",
		Long: `Downloads REMOTE_PATH from the server in parallel chunks.

With --size the whole file is fetched into --out (default: the base name in
the current directory). With --start/--end only that half-open byte window
is fetched and written to --out, or to stdout when --out is "-".`,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd.Context(), v, args[0])
		},
	}

	f := cmd.Flags()
	f.Int64("size", 0, "size of the remote file in bytes (as listed by pull)")
	f.Int64("start", 0, "first byte of a range download")
	f.Int64("end", 0, "end (exclusive) of a range download")
	f.StringP("out", "o", "", "destination path")
	addFetchFlags(cmd)
	addPeerFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runFetch(ctx context.Context, v *viper.Viper, remote string) error {
	setupLogging(v)

	size := v.GetInt64("size")
	start, end := v.GetInt64("start"), v.GetInt64("end")
	out := v.GetString("out")
	if out == "" {
		out = filepath.Base(remote)
	}

	c, _, err := dataClient(ctx, v)
	if err != nil {
		return err
	}

	if end > 0 {
		if end < start {
			return fmt.Errorf("--end %d before --start %d", end, start)
		}
		if out == "-" {
			_, err := c.Download(ctx, remote, start, end, os.Stdout)
			return err
		}
		f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		// The window lands at its own offset, so repeated range fetches
		// assemble the file in place.
		_, err = c.Download(ctx, remote, start, end, filepart.NewWriter(f, start, end))
		return err
	}

	if size <= 0 {
		return errors.New("--size is required for a whole-file fetch (see the listing from pull)")
	}
	cov, err := c.FetchFile(ctx, message.PathInfo{Path: remote, Size: size}, out, fetchOptions(v))
	if err != nil {
		return fmt.Errorf("%w (received %s of %s)", err, fmtBytes(cov.Received()), fmtBytes(size))
	}
	fmt.Println(out)
	return nil
}
