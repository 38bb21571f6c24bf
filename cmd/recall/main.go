// recall: clipboard history daemon and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "recall",
		Short: "Clipboard history",
		Long: `recall watches the system clipboard and keeps a searchable history
of everything copied: text, URLs and images. Entries can be pinned, renamed,
removed or copied back to the clipboard.

Run "recall daemon" once per login session. The other commands talk to the
running daemon over a local socket (named pipe on Windows).

Config file search order (first found wins):
  /etc/recall/recall.toml
  $HOME/.config/recall/recall.toml
  path supplied via --config

All flags can be set via RECALL_<FLAG> env vars or config-file keys.
See "recall daemon --help" for the full flag reference.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newDaemonCmd(),
		newListCmd(),
		newShowCmd(),
		newSearchCmd(),
		newCopyCmd(),
		newPinCmd(),
		newUnpinCmd(),
		newRenameCmd(),
		newRemoveCmd(),
		newClearCmd(),
		newWatchCmd(),
		newStatusCmd(),
		newServiceCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "recall %s\n", Version)
		},
	}
}
