package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"crudload/internal/report"
	"crudload/internal/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List previous runs, newest first, or show one run's report",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 1 {
			return showRun(cmd, store, args[0])
		}

		items, err := store.List(limit)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tTARGET\tCONC\tREQS\tRPS\tSUCCESS\tAVG(ms)\tP99(ms)\t")
		for _, it := range items {
			s := it.Summary
			note := ""
			if s.Interrupted {
				note = "interrupted"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.1f\t%.2f%%\t%.2f\t%.2f\t%s\n",
				it.ID,
				s.StartedAt.Local().Format(time.DateTime),
				s.Target,
				s.Concurrency,
				s.TotalRequests,
				s.RPS,
				s.SuccessRate,
				s.AvgMs,
				s.P99Ms,
				note,
			)
		}
		return w.Flush()
	},
}

// showRun prints the full report of one stored run.
func showRun(cmd *cobra.Command, store *storage.Store, id string) error {
	rec, err := store.Get(id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no run %q in %s", id, store.Path())
	}
	if err != nil {
		return err
	}

	cfg, res, err := rec.Summary.Restore()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run %s (%s)", rec.ID, rec.Summary.StartedAt.Local().Format(time.DateTime))
	report.NewPrinter(cmd.OutOrStdout()).Summary(cfg, res)
	return nil
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of runs to show, 0 for all")
}
