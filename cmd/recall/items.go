package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/recall/internal/message"
	"go.klb.dev/recall/internal/rpc"
)

func newListCmd() *cobra.Command {
	cmd := newClientCmd(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the clipboard history",
		Long: `Lists the history newest first. With --pinned-first, pinned entries are
listed before the rest, as a history browser shows them. Pinned entries are
marked with *.`,
		Args: cobra.NoArgs,
	}, false, func(ctx context.Context, cmd *cobra.Command, c *rpc.Client, v *viper.Viper, _ []string) error {
		view := message.ViewStored
		if v.GetBool("pinned-first") {
			view = message.ViewDisplay
		}
		resp, err := c.List(ctx, view)
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}
		return printListing(cmd, v, resp)
	})
	cmd.Flags().Bool("pinned-first", false, "list pinned entries first")
	cmd.Flags().Bool("json", false, "output raw JSON")
	return cmd
}

func newSearchCmd() *cobra.Command {
	cmd := newClientCmd(&cobra.Command{
		Use:   "search <query>...",
		Short: "Search the clipboard history",
		Long: `Lists entries whose content or name fuzzily matches the query, or whose
type equals it (e.g. "recall search url"). Matching ignores case and accents.`,
		Args: cobra.MinimumNArgs(1),
	}, false, func(ctx context.Context, cmd *cobra.Command, c *rpc.Client, v *viper.Viper, args []string) error {
		resp, err := c.Search(ctx, strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		return printListing(cmd, v, resp)
	})
	cmd.Flags().Bool("json", false, "output raw JSON")
	return cmd
}

func printListing(cmd *cobra.Command, v *viper.Viper, resp *message.ItemsResponse) error {
	if v.GetBool("json") {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	printItems(cmd.OutOrStdout(), resp.Items)
	return nil
}

func newShowCmd() *cobra.Command {
	cmd := newClientCmd(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one history entry",
		Long: `Prints an entry's details followed by its content. With --raw only the
payload is written, so "recall show --raw <id> > file.png" saves an image.`,
		Args: cobra.ExactArgs(1),
	}, false, func(ctx context.Context, cmd *cobra.Command, c *rpc.Client, v *viper.Viper, args []string) error {
		id, err := resolveID(ctx, c, args[0])
		if err != nil {
			return err
		}
		resp, err := c.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get: %w", err)
		}
		if !resp.Found {
			return fmt.Errorf("no item %q", args[0])
		}
		it := resp.Item
		w := cmd.OutOrStdout()

		switch {
		case v.GetBool("raw"):
			if it.IsImage() {
				_, err = w.Write(it.Data)
			} else {
				_, err = fmt.Fprint(w, it.Content)
			}
			return err
		case v.GetBool("json"):
			return printJSON(w, it)
		}

		tw := tabwriter.NewWriter(w, 1, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "ID:\t%s\n", it.ID)
		fmt.Fprintf(tw, "Name:\t%s\n", it.DisplayName)
		fmt.Fprintf(tw, "Type:\t%s\n", it.Type)
		fmt.Fprintf(tw, "Copied:\t%s (%s)\n", it.Date.Local().Format("2006-01-02 15:04:05"), fmtAge(it.Date))
		fmt.Fprintf(tw, "Pinned:\t%t\n", it.IsPinned)
		if it.IsImage() {
			fmt.Fprintf(tw, "Size:\t%s\n", fmtSize(it.Size))
			return tw.Flush()
		}
		fmt.Fprintf(tw, "Stats:\t%d characters, %d words, %d lines\n", it.CharacterCount, it.WordCount, it.LineCount)
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(w, "\n%s\n", it.Content)
		return nil
	})
	cmd.Flags().Bool("raw", false, "write only the payload")
	cmd.Flags().Bool("json", false, "output raw JSON")
	return cmd
}

func newCopyCmd() *cobra.Command {
	return newClientCmd(&cobra.Command{
		Use:   "copy <id>",
		Short: "Copy an entry back to the clipboard",
		Long: `Puts the entry's content on the system clipboard and records it again at
the front of the history. The original entry keeps its place, name and pin.`,
		Args: cobra.ExactArgs(1),
	}, false, func(ctx context.Context, cmd *cobra.Command, c *rpc.Client, _ *viper.Viper, args []string) error {
		id, err := resolveID(ctx, c, args[0])
		if err != nil {
			return err
		}
		resp, err := c.Copy(ctx, id)
		if err != nil {
			return fmt.Errorf("copy: %w", err)
		}
		if !resp.Found {
			return fmt.Errorf("no item %q", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Copied %q (new entry %s)\n", resp.Item.DisplayName, short(resp.Item.ID))
		return nil
	})
}

// newFoundCmd builds a single-id command whose call reports found.
func newFoundCmd(use, summary, done string, call func(*rpc.Client, context.Context, string) (bool, error)) *cobra.Command {
	return newClientCmd(&cobra.Command{
		Use:   use + " <id>",
		Short: summary,
		Args:  cobra.ExactArgs(1),
	}, false, func(ctx context.Context, cmd *cobra.Command, c *rpc.Client, _ *viper.Viper, args []string) error {
		id, err := resolveID(ctx, c, args[0])
		if err != nil {
			return err
		}
		ok, err := call(c, ctx, id)
		if err != nil {
			return fmt.Errorf("%s: %w", use, err)
		}
		if !ok {
			return fmt.Errorf("no item %q", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", done, short(id))
		return nil
	})
}

func newPinCmd() *cobra.Command {
	return newFoundCmd("pin", "Pin an entry so it is listed first", "Pinned", (*rpc.Client).Pin)
}

func newUnpinCmd() *cobra.Command {
	return newFoundCmd("unpin", "Unpin an entry", "Unpinned", (*rpc.Client).Unpin)
}

func newRenameCmd() *cobra.Command {
	return newClientCmd(&cobra.Command{
		Use:   "rename <id> [name]",
		Short: "Name an entry, or clear its name",
		Long: `Sets the name an entry is listed under. Without a name, or with a blank
one, the name is cleared and the entry is listed by its content again.`,
		Args: cobra.RangeArgs(1, 2),
	}, false, func(ctx context.Context, cmd *cobra.Command, c *rpc.Client, _ *viper.Viper, args []string) error {
		id, err := resolveID(ctx, c, args[0])
		if err != nil {
			return err
		}
		name := ""
		if len(args) == 2 {
			name = args[1]
		}
		ok, err := c.Rename(ctx, id, name)
		if err != nil {
			return fmt.Errorf("rename: %w", err)
		}
		if !ok {
			return fmt.Errorf("no item %q", args[0])
		}
		if strings.TrimSpace(name) == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared name of %s\n", short(id))
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", short(id), strings.TrimSpace(name))
		}
		return nil
	})
}

func newRemoveCmd() *cobra.Command {
	return newClientCmd(&cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove entries from the history",
		Args:    cobra.MinimumNArgs(1),
	}, false, func(ctx context.Context, cmd *cobra.Command, c *rpc.Client, _ *viper.Viper, args []string) error {
		var errs []error
		for _, arg := range args {
			id, err := resolveID(ctx, c, arg)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			ok, err := c.Remove(ctx, id)
			switch {
			case err != nil:
				errs = append(errs, fmt.Errorf("remove %s: %w", arg, err))
			case !ok:
				errs = append(errs, fmt.Errorf("no item %q", arg))
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", short(id))
			}
		}
		return errors.Join(errs...)
	})
}

func newClearCmd() *cobra.Command {
	cmd := newClientCmd(&cobra.Command{
		Use:   "clear",
		Short: "Remove every entry, pinned ones included",
		Args:  cobra.NoArgs,
	}, false, func(ctx context.Context, cmd *cobra.Command, c *rpc.Client, v *viper.Viper, _ []string) error {
		if !v.GetBool("yes") {
			return errors.New("refusing to clear the history without --yes")
		}
		n, err := c.Clear(ctx)
		if err != nil {
			return fmt.Errorf("clear: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", n)
		return nil
	})
	cmd.Flags().Bool("yes", false, "confirm clearing the history")
	return cmd
}
