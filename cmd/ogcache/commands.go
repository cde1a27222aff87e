package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by get for a missing or expired key.
var ErrNotFound = errors.New("not found")

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List cache entries, oldest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dc, err := openDisk(cmd)
			if err != nil {
				return err
			}
			entries := dc.Entries(cmd.Context())
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tSIZE\tMODIFIED\tEXPIRES\tSTATUS")
			var total int64
			for _, e := range entries {
				total += e.Size
				status, expires := "ok", "never"
				switch {
				case e.Corrupt:
					status, expires = "corrupt", "-"
				case e.Expired:
					status = "expired"
				}
				if !e.Corrupt && e.TTL > 0 {
					expires = humanize.Time(e.CreatedAt.Add(e.TTL))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Key, humanize.IBytes(uint64(e.Size)), e.ModTime.Format(time.RFC3339), expires, status)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s, %s in %s\n", humanize.Comma(int64(len(entries))), plural(len(entries), "entry", "entries"), humanize.IBytes(uint64(total)), dc.Dir())
			return nil
		},
	}
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored for key as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dc, err := openDisk(cmd)
			if err != nil {
				return err
			}
			val, ok := dc.Get(cmd.Context(), args[0])
			if !ok {
				return errors.Wrapf(ErrNotFound, "%s", args[0])
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(val); err != nil {
				return errors.Wrap(err, "encoding value")
			}
			return enc.Close()
		},
	}
}

func newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <key>...",
		Short: "Remove entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dc, err := openDisk(cmd)
			if err != nil {
				return err
			}
			for _, key := range args {
				dc.Remove(cmd.Context(), key)
			}
			return nil
		},
	}
}

func newClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dc, err := openDisk(cmd)
			if err != nil {
				return err
			}
			dc.Clear(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", dc.Dir())
			return nil
		},
	}
}

func newPruneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired and unreadable entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dc, err := openDisk(cmd)
			if err != nil {
				return err
			}
			n := dc.Prune(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d %s\n", n, plural(n, "entry", "entries"))
			return nil
		},
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
