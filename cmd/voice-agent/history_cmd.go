package main

import (
	"fmt"
	"io"

	"voice-agent/internal/history"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	var path string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show tool calls recorded by previous sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := &history.Store{Path: path}
			if path == "" {
				var err error
				if store, err = history.NewDefault(); err != nil {
					return err
				}
			}
			return printHistory(cmd.OutOrStdout(), store, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of recent calls to show (0 = all)")
	cmd.Flags().StringVar(&path, "file", "", "History file (default ~/.voice-agent/calls.jsonl)")
	return cmd
}

func printHistory(out io.Writer, store *history.Store, limit int) error {
	entries, err := store.Load(limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(out, "no recorded tool calls")
		return nil
	}
	for _, e := range entries {
		_, _ = fmt.Fprintf(out, "%s %s#%d %s\n", e.TS.Local().Format("2006-01-02 15:04:05"), e.Config, e.Epoch, formatCall(e.Call))
	}
	return nil
}
