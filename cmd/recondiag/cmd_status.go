package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"recondiag/internal/format"
	"recondiag/internal/store"
)

var statusFlags struct {
	dbPath string
	limit  int
	totals bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent analysis runs from the history DB",
	RunE:  runStatus,
}

func init() {
	f := statusCmd.Flags()
	f.StringVar(&statusFlags.dbPath, "db", store.DefaultDBPath, "Run-history DB path")
	f.IntVar(&statusFlags.limit, "limit", 10, "Number of runs to show")
	f.BoolVar(&statusFlags.totals, "totals", false, "Also show diagnosis totals across all runs")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if _, err := os.Stat(statusFlags.dbPath); os.IsNotExist(err) {
		fmt.Fprintf(out, "No run history at %s\n", statusFlags.dbPath)
		fmt.Fprintln(out, "Run 'recondiag analyze <dataset>' to record one.")
		return nil
	}
	s, err := store.Open(statusFlags.dbPath)
	if err != nil {
		return fmt.Errorf("open history db: %w", err)
	}
	defer s.Close()

	runs, err := s.RecentRuns(statusFlags.limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}
	fmt.Fprintln(out, format.RunsTable(runs, format.ASCII))

	if statusFlags.totals {
		totals, err := s.LabelTotals()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, format.DiagnosisTable("Diagnosis (all runs)", totals, format.ASCII))
	}
	return nil
}
