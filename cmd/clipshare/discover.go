package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipshare/internal/discovery"
)

func newDiscoverCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List clipshare servers advertised on the local network",
		Long: `Browses mDNS for servers started with --advertise and prints their
addresses, ready to pass to --server.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runDiscover(cmd.Context(), v) },
	}

	cmd.Flags().Duration("timeout", 3*time.Second, "how long to listen for answers")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDiscover(ctx context.Context, v *viper.Viper) error {
	setupLogging(v)

	ctx, cancel := context.WithTimeout(ctx, v.GetDuration("timeout"))
	defer cancel()
	peers, err := discovery.Browse(ctx)
	if err != nil {
		return err
	}
	if len(peers) == 0 {
		fmt.Println("No servers found.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "NAME\tADDR\tSOURCE\tVERSION\n")
	for _, p := range peers {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Instance, p.Addr(), orDash(p.Source), orDash(p.Version))
	}
	return tw.Flush()
}
