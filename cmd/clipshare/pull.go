package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipshare/internal/client"
	"go.klb.dev/clipshare/internal/message"
)

func newPullCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Fetch whatever the server has on its clipboard",
		Long: `Asks the server for its current content. The server answers with the
first of these that is available:

  1. its selected files   (listed; downloaded with --fetch)
  2. its clipboard text   (written to stdout, or --out)
  3. its clipboard image  (saved as a PNG in --dir, or --out)`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runPull(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.StringP("out", "o", "", "write text or image here instead of stdout / --dir")
	f.String("dir", ".", "directory for images and fetched files")
	f.Bool("fetch", false, "download every listed file into --dir")
	addFetchFlags(cmd)
	addPeerFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runPull(ctx context.Context, v *viper.Viper) error {
	setupLogging(v)

	c, addr, err := dataClient(ctx, v)
	if err != nil {
		return err
	}
	res, err := c.Copy(ctx)
	if err != nil {
		return fmt.Errorf("pull from %s: %w", addr, err)
	}

	out := v.GetString("out")
	dir := v.GetString("dir")

	switch res.Kind {
	case message.DataText:
		if out == "" {
			_, err := os.Stdout.WriteString(res.Text)
			return err
		}
		return os.WriteFile(out, []byte(res.Text), 0o644)

	case message.DataClipImage:
		if out == "" {
			out = filepath.Join(dir, res.Name)
		}
		if err := os.WriteFile(out, res.Data, 0o644); err != nil {
			return err
		}
		fmt.Println(out)
		return nil

	case message.DataFiles:
		if len(res.Files) == 0 {
			fmt.Println("Selection is empty or unreadable on the server.")
			return nil
		}
		if !v.GetBool("fetch") {
			printFiles(res.Files)
			return nil
		}
		opts := fetchOptions(v)
		for _, e := range res.Files {
			dst := filepath.Join(dir, filepath.Base(e.Path))
			if _, err := c.FetchFile(ctx, e, dst, opts); err != nil {
				return fmt.Errorf("fetch %s: %w", e.Path, err)
			}
			fmt.Println(dst)
		}
		return nil
	}
	return fmt.Errorf("unexpected content kind %q", res.Kind)
}

func printFiles(files []message.PathInfo) {
	tw := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "SIZE\tPATH\n")
	for _, f := range files {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", fmtBytes(f.Size), f.Path)
	}
	_ = tw.Flush()
}

// addFetchFlags adds the chunked download tuning flags.
func addFetchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int64("chunk-size", client.DefaultChunkSize, "bytes requested per download")
	f.Int("workers", client.DefaultWorkers, "parallel downloads per file")
	f.Int("retries", client.DefaultRetries, "retries per failed chunk")
}

func fetchOptions(v *viper.Viper) client.FetchOptions {
	return client.FetchOptions{
		ChunkSize: v.GetInt64("chunk-size"),
		Workers:   v.GetInt("workers"),
		Retries:   v.GetInt("retries"),
		Progress: func(received, total int64) {
			slog.Debug("progress", "received", fmtBytes(received), "total", fmtBytes(total))
		},
	}
}

func fmtBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
