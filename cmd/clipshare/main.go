// clipshare: share the clipboard and selected files with a paired device.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "clipshare",
		Short: "Share clipboard contents and files with a paired device",
		Long: `clipshare exposes this machine's clipboard and a selection of files
over one TLS port. A paired device asks for "whatever is on the clipboard"
(files, text or an image) or downloads byte ranges of a selected file.

Run "clipshare server" on the sharing machine. Use "clipshare select" there
to choose files, and "clipshare pull" / "clipshare fetch" on the peer.

Both sides derive their TLS key from the same --token (or the built-in
default passphrase), so no certificates need to be distributed.

Config file search order (first found wins):
  /etc/clipshare/clipshare.toml
  $HOME/.config/clipshare/clipshare.toml
  path supplied via --config

All flags can be set via CLIPSHARE_<FLAG> env vars or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServerCmd(),
		newPullCmd(),
		newFetchCmd(),
		newSelectCmd(),
		newStatusCmd(),
		newDiscoverCmd(),
		newVersionCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("clipshare %s\n", Version)
		},
	}
}
