package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"

	"go.klb.dev/recall/internal/ipc"
	"go.klb.dev/recall/internal/item"
	"go.klb.dev/recall/internal/message"
	"go.klb.dev/recall/internal/rpc"
)

const (
	callTimeout = 10 * time.Second
	shortID     = 8
)

// clientRun is the body of a command that talks to the daemon.
type clientRun func(ctx context.Context, cmd *cobra.Command, c *rpc.Client, v *viper.Viper, args []string) error

// newClientCmd builds a command that dials the daemon before run. Unary
// commands get a bounded context; streaming ones pass stream=true.
func newClientCmd(cmd *cobra.Command, stream bool, run clientRun) *cobra.Command {
	v := viper.New()
	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) }
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		conn, err := dialDaemon(v)
		if err != nil {
			return err
		}
		defer conn.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if !stream {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, callTimeout)
			defer cancel()
		}
		return run(ctx, cmd, rpc.NewClient(conn), v, args)
	}
	addSocketFlag(cmd)
	addConfigFlag(cmd)
	return cmd
}

// dialDaemon returns a connection to the daemon's IPC endpoint.
// The endpoint is local and owner-restricted by the OS, so no auth is sent.
func dialDaemon(v *viper.Viper) (*grpc.ClientConn, error) {
	path := ipc.SocketPath(v.GetString("socket"))
	if !ipc.IsRunning(path) {
		return nil, fmt.Errorf("no recall daemon listening on %s (start one with \"recall daemon\")", path)
	}
	return rpc.Dial(func(ctx context.Context) (net.Conn, error) { return ipc.Dial(ctx, path) })
}

// resolveID expands a unique ID prefix, as printed by list, to the full ID.
func resolveID(ctx context.Context, c *rpc.Client, arg string) (string, error) {
	if len(arg) >= 36 {
		return arg, nil
	}
	resp, err := c.List(ctx, message.ViewStored)
	if err != nil {
		return "", fmt.Errorf("list: %w", err)
	}
	var match string
	for _, it := range resp.Items {
		if !strings.HasPrefix(it.ID, arg) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("id prefix %q is ambiguous", arg)
		}
		match = it.ID
	}
	if match == "" {
		return "", fmt.Errorf("no item %q", arg)
	}
	return match, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printItems(w io.Writer, items []item.Summary) {
	if len(items) == 0 {
		fmt.Fprintln(w, "History is empty.")
		return
	}
	tw := tabwriter.NewWriter(w, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "\tID\tTYPE\tCOPIED\tSIZE\tNAME\n")
	_, _ = fmt.Fprintf(tw, "\t--\t----\t------\t----\t----\n")
	for _, it := range items {
		marker := ""
		if it.IsPinned {
			marker = "*"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			marker, short(it.ID), it.Type, fmtAge(it.Date), fmtSize(it.Size), it.DisplayName)
	}
	_ = tw.Flush()
}

func short(id string) string {
	if len(id) > shortID {
		return id[:shortID]
	}
	return id
}

func fmtAge(t time.Time) string {
	age := time.Since(t).Round(time.Second)
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return t.Local().Format("15:04:05")
	default:
		return t.Local().Format("2006-01-02")
	}
}

func fmtSize(n int) string {
	return humanize.IBytes(uint64(n))
}
