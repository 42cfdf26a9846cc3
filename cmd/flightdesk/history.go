package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/flightdesk/internal/analysis"
	"github.com/unkn0wn-root/flightdesk/internal/errdef"
	"github.com/unkn0wn-root/flightdesk/internal/history"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		stats  bool
		op     string
		limit  int
		wipe   bool
		output string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded calls or summarise their latency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(output, formatTable, formatJSON, formatYAML); err != nil {
				return err
			}
			if a.history == nil {
				return errdef.New(errdef.CodeHistory, "history is disabled")
			}
			if wipe {
				if err := a.history.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "history cleared")
				return nil
			}

			entries := a.history.Entries()
			if op != "" {
				entries = a.history.ByOperation(op)
			}
			if stats {
				summary := analysis.Summarize(entries, nil)
				if output == formatTable {
					return writeSummaryTable(a.out, summary)
				}
				return encode(a.out, summary, output)
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			if output == formatTable {
				return writeHistoryTable(a.out, entries)
			}
			return encode(a.out, entries, output)
		},
	}
	cmd.Flags().BoolVar(&stats, "stats", false, "Show per-operation latency instead of entries")
	cmd.Flags().StringVar(&op, "op", "", "Only entries for this operation, e.g. seats")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to list (0 for all)")
	cmd.Flags().BoolVar(&wipe, "clear", false, "Delete all recorded entries")
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "Output format: table, json or yaml")
	return cmd
}

func writeHistoryTable(w io.Writer, entries []history.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no history")
		return err
	}
	rows := [][]string{{"TIME", "OPERATION", "METHOD", "PATH", "OUTCOME", "STATUS", "DURATION"}}
	for _, e := range entries {
		status := ""
		if e.StatusCode > 0 {
			status = fmt.Sprintf("%d", e.StatusCode)
		}
		rows = append(rows, []string{
			e.ExecutedAt.Local().Format("2006-01-02 15:04:05"),
			e.Operation,
			e.Method,
			runewidth.Truncate(e.Path, 48, "…"),
			e.Outcome,
			status,
			e.Duration.Round(time.Millisecond).String(),
		})
	}
	return writeTable(w, rows)
}

func writeSummaryTable(w io.Writer, summary []analysis.OperationSummary) error {
	if len(summary) == 0 {
		_, err := fmt.Fprintln(w, "no history")
		return err
	}
	rows := [][]string{{"OPERATION", "CALLS", "FAILURES", "TIMEOUTS", "MIN", "P50", "P95", "MAX"}}
	for _, s := range summary {
		l := s.Latency
		rows = append(rows, []string{
			s.Operation,
			fmt.Sprintf("%d", s.Calls),
			fmt.Sprintf("%d", s.Failures),
			fmt.Sprintf("%d", s.Timeouts),
			ms(l.Min),
			ms(l.Percentiles[50]),
			ms(l.Percentiles[95]),
			ms(l.Max),
		})
	}
	return writeTable(w, rows)
}

func ms(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}

// writeTable pads columns by display width so wide runes line up.
func writeTable(w io.Writer, rows [][]string) error {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if n := runewidth.StringWidth(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}
	var b strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			if i == len(row)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString("  ")
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
