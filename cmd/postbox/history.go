package main

import (
	"fmt"
	"time"

	"github.com/blackcoderx/postbox/pkg/history"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently executed requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if a.history == nil {
				return fmt.Errorf("history is disabled (set history_path in .postbox/config.json)")
			}
			entries, err := a.history.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if outputFormat != outputText {
				return writeStructured(cmd.OutOrStdout(), outputFormat, entries)
			}
			renderHistory(cmd, entries)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "number of entries to show")
	return cmd
}

func renderHistory(cmd *cobra.Command, entries []history.Entry) {
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, dimStyle.Render("no requests recorded yet"))
		return
	}
	for _, e := range entries {
		status := errorStyle.Render("failed")
		if e.Error == "" {
			status = statusStyle(e.StatusCode).Render(fmt.Sprintf("%d", e.StatusCode))
		}
		source := ""
		if e.Endpoint != "" {
			source = dimStyle.Render(fmt.Sprintf(" [%s / %s]", e.Collection, e.Endpoint))
		}
		fmt.Fprintf(out, "%s %s %s %s%s %s\n",
			dimStyle.Render(e.ExecutedAt.Local().Format(time.DateTime)),
			status,
			methodStyle.Render(e.Method),
			e.URL,
			source,
			dimStyle.Render(fmt.Sprintf("%dms", e.DurationMs)),
		)
	}
}
