package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/protobuf/encoding/protojson"

	"go.klb.dev/clipshare/internal/control"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show server status, selection and connected peers",
		Long: `Displays the state of a clipshare server: clipboard backend, current
selection, served-content counters and open data sessions.

If a local server is running, the request is sent via the IPC socket. Pass
--server to target a specific server directly over TLS.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runStatus(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.Bool("json", false, "output raw JSON")
	addPeerFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runStatus(ctx context.Context, v *viper.Viper) error {
	cc, transport, err := dialControl(v)
	if err != nil {
		return err
	}
	defer cc.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	st, err := control.NewClient(cc).Status(ctx)
	if err != nil {
		return fmt.Errorf("status via %s: %w", transport, err)
	}

	if v.GetBool("json") {
		enc, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(st)
		if err != nil {
			return err
		}
		fmt.Println(string(enc))
		return nil
	}

	printStatus(st.AsMap(), transport)
	return nil
}

func printStatus(m map[string]any, transport string) {
	w := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Transport:\t%s\n", transport)
	fmt.Fprintf(w, "Server:\t%v (%v)\n", m["hostname"], m["addr"])
	fmt.Fprintf(w, "Version:\t%v\n", m["version"])
	fmt.Fprintf(w, "Clipboard:\t%v\n", m["clipboard"])
	fmt.Fprintf(w, "Up:\t%v (since %v)\n", m["uptime"], m["started"])
	if served, ok := m["served"].(map[string]any); ok {
		fmt.Fprintf(w, "Served:\tfiles %v, text %v, image %v, nothing %v\n",
			served["files"], served["text"], served["image"], served["empty"])
		fmt.Fprintf(w, "Downloads:\t%v ok, %v failed, %s sent\n",
			served["downloads"], served["download_errors"], fmtBytes(asInt64(served["bytes_sent"])))
	}
	fmt.Fprintln(w)
	_ = w.Flush()

	selected, _ := m["selection"].([]any)
	if len(selected) == 0 {
		fmt.Println("No files selected.")
	} else {
		fmt.Println("Selected files:")
		for _, p := range selected {
			fmt.Printf("  %v\n", p)
		}
	}
	fmt.Println()

	sessions, _ := m["sessions"].([]any)
	if len(sessions) == 0 {
		fmt.Println("No peers connected.")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "SOURCE\tADDR\tCONNECTED\tLAST SEEN\tREQUESTS\n")
	for _, s := range sessions {
		sm, _ := s.(map[string]any)
		_, _ = fmt.Fprintf(tw, "%v\t%v\t%s\t%s\t%v\n",
			orDash(sm["source"]), sm["addr"], fmtAge(sm["connected"]), fmtAge(sm["last_seen"]), sm["requests"])
	}
	_ = tw.Flush()
}

// fmtAge renders an RFC 3339 timestamp as a duration ago.
func fmtAge(v any) string {
	s, _ := v.(string)
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh%dm ago", int(d.Hours()), int(d.Minutes())%60)
	}
}

func orDash(v any) string {
	if s, _ := v.(string); s != "" {
		return s
	}
	return "-"
}

func asInt64(v any) int64 {
	if f, ok := v.(float64); ok {
		return int64(f)
	}
	return 0
}
