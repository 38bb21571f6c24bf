package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/recall/internal/logging"
)

const envPrefix = "RECALL"

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and RECALL_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → RECALL_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	if configFlag, _ := cmd.Flags().GetString("config"); configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("recall")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/recall/")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "recall"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info for service, debug for interactive)")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addSocketFlag adds the --socket flag to a command.
func addSocketFlag(cmd *cobra.Command) {
	cmd.Flags().String("socket", "", "daemon socket or pipe path (default: platform location, or $RECALL_SOCKET)")
}

// setupLogging reads logging flags from viper and configures slog.
func setupLogging(v *viper.Viper) error {
	format, err := logging.ParseFormat(v.GetString("log-format"))
	if err != nil {
		return err
	}
	def := logging.DefaultLevel(os.Stderr)
	if v.GetBool("no-background") {
		def = slog.LevelDebug
		if format == logging.FormatAuto {
			format = logging.FormatText
		}
	}
	level, err := logging.ParseLevel(v.GetString("log-level"), def)
	if err != nil {
		return err
	}
	logging.Setup(format, level)
	return nil
}
