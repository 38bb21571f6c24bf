package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.klb.dev/recall/internal/rpc"
)

func newWatchCmd() *cobra.Command {
	cmd := newClientCmd(&cobra.Command{
		Use:   "watch",
		Short: "Print history changes as they happen",
		Long: `Streams one line per history change until interrupted. With --json each
change is printed as a JSON object; --full adds the complete history to each.`,
		Args: cobra.NoArgs,
	}, true, func(ctx context.Context, cmd *cobra.Command, c *rpc.Client, v *viper.Viper, _ []string) error {
		jsonOut := v.GetBool("json")
		stream, err := c.Watch(ctx, v.GetBool("full"))
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		w := cmd.OutOrStdout()
		for {
			ev, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
					return nil
				}
				return fmt.Errorf("watch: %w", err)
			}
			if jsonOut {
				if err := printJSON(w, ev); err != nil {
					return err
				}
				continue
			}
			id := "-"
			if ev.ID != "" {
				id = short(ev.ID)
			}
			fmt.Fprintf(w, "%s  %-7s %s  (%d items)\n", time.Now().Format("15:04:05"), ev.Op, id, ev.Count)
		}
	})
	cmd.Flags().Bool("full", false, "include the full history in each event")
	cmd.Flags().Bool("json", false, "output JSON lines")
	return cmd
}
