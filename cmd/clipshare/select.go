package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipshare/internal/control"
)

func newSelectCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "select [FILE...]",
		Short: "Choose the files a running server offers to peers",
		Long: `Replaces the server's file selection with FILE... (made absolute).
With --append the files are added to the current selection; with --clear
the selection is emptied. A non-empty selection takes priority over the
clipboard when a peer pulls.

The local server is reached over the IPC socket; pass --server to manage a
remote one over TLS.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(cmd.Context(), v, args)
		},
	}

	f := cmd.Flags()
	f.Bool("append", false, "add to the current selection instead of replacing it")
	f.Bool("clear", false, "empty the selection")
	addPeerFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runSelect(ctx context.Context, v *viper.Viper, args []string) error {
	mode := control.ModeReplace
	switch {
	case v.GetBool("clear"):
		if len(args) > 0 {
			return errors.New("--clear takes no files")
		}
		mode = control.ModeClear
	case len(args) == 0:
		return errors.New("no files given (use --clear to empty the selection)")
	case v.GetBool("append"):
		mode = control.ModeAppend
	}

	paths, err := absPaths(args)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil && v.GetString("server") == "" {
			return fmt.Errorf("select: %w", err)
		}
	}

	cc, transport, err := dialControl(v)
	if err != nil {
		return err
	}
	defer cc.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := control.NewClient(cc).Select(ctx, mode, paths); err != nil {
		return fmt.Errorf("select via %s: %w", transport, err)
	}

	switch mode {
	case control.ModeClear:
		fmt.Println("Selection cleared.")
	default:
		fmt.Printf("Selected %d file(s) (%s).\n", len(paths), mode)
	}
	return nil
}
