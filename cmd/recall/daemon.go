package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/recall/internal/engine"
	"go.klb.dev/recall/internal/history"
	"go.klb.dev/recall/internal/ipc"
	"go.klb.dev/recall/internal/poller"
	"go.klb.dev/recall/internal/rpc"
	"go.klb.dev/recall/internal/storage"
)

func newDaemonCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Watch the clipboard and serve the history",
		Long: `Starts the recall daemon. It polls the system clipboard, records every
new copy at the front of the history, persists the history after each change
and serves it to the other recall commands over the local socket.

Config file search order:
  /etc/recall/recall.toml
  $HOME/.config/recall/recall.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → RECALL_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runDaemon(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.Duration("interval", poller.DefaultInterval, "clipboard polling interval")
	f.String("data-dir", storage.DefaultDir(), "directory holding the history document")
	f.String("store", storage.DriverJSON, "storage driver: json|bolt")
	f.String("dedupe", "none", "duplicate policy: none|front (skip a copy identical to the newest entry)")
	f.String("backend", "auto", "clipboard backend: auto|memory")
	addSocketFlag(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(ctx context.Context, v *viper.Viper) error {
	if err := setupLogging(v); err != nil {
		return err
	}

	dedupe, err := history.ParseDedupe(v.GetString("dedupe"))
	if err != nil {
		return err
	}

	slog.Info("recall daemon starting", "version", Version, "data_dir", v.GetString("data-dir"), "store", v.GetString("store"))

	e, err := engine.New(engine.Config{
		Backend:  v.GetString("backend"),
		Store:    storage.Config{Driver: v.GetString("store"), Dir: v.GetString("data-dir")},
		Interval: v.GetDuration("interval"),
		Dedupe:   dedupe,
	})
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	e.Start(ctx)
	defer func() {
		if err := e.Stop(); err != nil {
			slog.Error("engine stop failed", "err", err)
		}
	}()

	path := ipc.SocketPath(v.GetString("socket"))
	ln, err := ipc.Listen(path)
	if err != nil {
		return fmt.Errorf("ipc listen %s: %w", path, err)
	}
	srv := rpc.NewServer(ln, rpc.NewService(e, Version))
	defer srv.Stop()
	go func() {
		if err := srv.Serve(); err != nil {
			slog.Error("ipc server failed", "err", err)
			stop()
		}
	}()
	slog.Info("ipc listening", "path", path)

	<-ctx.Done()
	slog.Info("recall daemon shutting down")
	return nil
}
