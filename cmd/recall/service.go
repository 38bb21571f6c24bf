package main

import (
	"errors"
	"fmt"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

const serviceName = "recall"

// daemonProgram satisfies service.Interface. The service manager launches
// "recall daemon" itself, so there is nothing to run in-process.
type daemonProgram struct{}

func (daemonProgram) Start(service.Service) error { return nil }
func (daemonProgram) Stop(service.Service) error  { return nil }

func newServiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the daemon as a login service",
		Long: `Installs, removes, starts, stops or reports the recall daemon as a
per-user service, so clipboard history is recorded from login onwards.

On macOS this is a launchd agent, on Linux a systemd user unit and on
Windows a service.`,
		Args: cobra.NoArgs,
	}

	ops := []struct {
		use, short, done string
		run              func(service.Service) error
	}{
		{"install", "Install the daemon service", "installed", func(s service.Service) error { return s.Install() }},
		{"uninstall", "Remove the daemon service", "uninstalled", uninstall},
		{"start", "Start the daemon service", "started", func(s service.Service) error { return s.Start() }},
		{"stop", "Stop the daemon service", "stopped", func(s service.Service) error { return s.Stop() }},
	}
	for _, op := range ops {
		cmd.AddCommand(&cobra.Command{
			Use:   op.use,
			Short: op.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := newService(cmd)
				if err != nil {
					return err
				}
				if err := op.run(s); err != nil {
					return fmt.Errorf("%s service: %w", op.use, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Service %s %s\n", serviceName, op.done)
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report the daemon service state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newService(cmd)
			if err != nil {
				return err
			}
			st, err := s.Status()
			if err != nil && !errors.Is(err, service.ErrNotInstalled) {
				return fmt.Errorf("service status: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Service %s: %s\n", serviceName, describeStatus(st, err))
			return nil
		},
	})

	cmd.PersistentFlags().StringSlice("daemon-args", nil, "extra arguments passed to \"recall daemon\" (e.g. --store=bolt)")
	return cmd
}

func newService(cmd *cobra.Command) (service.Service, error) {
	extra, _ := cmd.Flags().GetStringSlice("daemon-args")
	cfg := &service.Config{
		Name:        serviceName,
		DisplayName: "Recall clipboard history",
		Description: "Records clipboard history and serves it to the recall CLI.",
		Arguments:   append([]string{"daemon"}, extra...),
		Option:      service.KeyValue{"UserService": true},
	}
	s, err := service.New(daemonProgram{}, cfg)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	return s, nil
}

func uninstall(s service.Service) error {
	_ = s.Stop()
	return s.Uninstall()
}

func describeStatus(st service.Status, err error) string {
	if errors.Is(err, service.ErrNotInstalled) {
		return "not installed"
	}
	switch st {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
