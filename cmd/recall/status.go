package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/recall/internal/rpc"
)

func newStatusCmd() *cobra.Command {
	cmd := newClientCmd(&cobra.Command{
		Use:   "status",
		Short: "Show the running daemon",
		Args:  cobra.NoArgs,
	}, false, func(ctx context.Context, cmd *cobra.Command, c *rpc.Client, v *viper.Viper, _ []string) error {
		st, err := c.Status(ctx)
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		if v.GetBool("json") {
			return printJSON(cmd.OutOrStdout(), st)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 1, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Version:\t%s\n", st.Version)
		fmt.Fprintf(w, "Backend:\t%s\n", st.Backend)
		fmt.Fprintf(w, "Store:\t%s (%s)\n", st.Store, st.Path)
		fmt.Fprintf(w, "Interval:\t%s\n", st.Interval)
		fmt.Fprintf(w, "Dedupe:\t%s\n", st.Dedupe)
		fmt.Fprintf(w, "Items:\t%d (%d pinned)\n", st.Items, st.Pinned)
		fmt.Fprintf(w, "Changes:\t%d since start\n", st.Changes)
		fmt.Fprintf(w, "Watchers:\t%d\n", st.Watchers)
		if !st.StartedAt.IsZero() {
			fmt.Fprintf(w, "Started:\t%s (%s)\n", st.StartedAt.UTC().Format(time.RFC3339), fmtAge(st.StartedAt))
		}
		return w.Flush()
	})
	cmd.Flags().Bool("json", false, "output raw JSON")
	return cmd
}
