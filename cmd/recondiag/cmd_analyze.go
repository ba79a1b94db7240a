package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"recondiag/internal/dataset"
	"recondiag/internal/diagnose"
	"recondiag/internal/discovery"
	"recondiag/internal/format"
	"recondiag/internal/rules"
	"recondiag/internal/store"
	"recondiag/internal/vocab"
)

var analyzeFlags struct {
	configPath     string
	pvRulesPath    string
	deltaRulesPath string
	vocabPath      string
	dbPath         string
	outputPath     string
	reportPath     string
	workers        int
	noHistory      bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <dataset>",
	Short: "Run the full diagnosis pass over a two-run valuation extract",
	Long: `Analyze a merged two-run extract (CSV or JSON): compute diffs and
tolerance flags, diagnose every trade on the PV and delta dimensions,
discover recurring mismatch patterns, and fold the results into the
label vocabulary and the run history.

Usage:
  recondiag analyze eod_extract.csv
  recondiag analyze eod_extract.csv --output diagnosed.csv --report report.md`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.configPath, "config", "", "Engine config file (YAML)")
	f.StringVar(&analyzeFlags.pvRulesPath, "rules-pv", "", "PV ruleset file (default: built-in rules)")
	f.StringVar(&analyzeFlags.deltaRulesPath, "rules-delta", "", "Delta ruleset file (default: built-in rules)")
	f.StringVar(&analyzeFlags.vocabPath, "vocab", "", "Vocabulary snapshot path (default: $RECONDIAG_VOCAB or "+defaultVocabPath+")")
	f.StringVar(&analyzeFlags.dbPath, "db", store.DefaultDBPath, "Run-history DB path")
	f.StringVarP(&analyzeFlags.outputPath, "output", "o", "", "Write the diagnosed dataset here (default: print summary only)")
	f.StringVar(&analyzeFlags.reportPath, "report", "", "Write a Markdown report here")
	f.IntVar(&analyzeFlags.workers, "workers", 0, "Rule-evaluation workers (0 = one per CPU)")
	f.BoolVar(&analyzeFlags.noHistory, "no-history", false, "Skip recording the run in the history DB")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadEngineConfig(analyzeFlags.configPath)
	if err != nil {
		return err
	}
	if analyzeFlags.workers > 0 {
		cfg.Workers = analyzeFlags.workers
	}

	pvSet, err := loadRuleSet(analyzeFlags.pvRulesPath, rules.DefaultPVRuleSet)
	if err != nil {
		return err
	}
	deltaSet, err := loadRuleSet(analyzeFlags.deltaRulesPath, rules.DefaultDeltaRuleSet)
	if err != nil {
		return err
	}

	frame, err := dataset.LoadFile(args[0])
	if err != nil {
		return err
	}

	p := diagnose.New(cfg, pvSet, deltaSet)

	vocabPath, err := resolvePath(analyzeFlags.vocabPath, "RECONDIAG_VOCAB", defaultVocabPath)
	if err != nil {
		return err
	}
	p.AttachVocabulary(vocab.NewManager(vocabPath, discovery.New(cfg.Discovery)))

	if !analyzeFlags.noHistory {
		s, err := store.Open(analyzeFlags.dbPath)
		if err != nil {
			return fmt.Errorf("open history db: %w", err)
		}
		defer s.Close()
		p.AttachStore(s)
	}

	res, err := p.Run(cmd.Context(), frame, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, format.SummaryTable(res.Summary, format.ASCII))
	if len(res.Summary.PVDiagnoses) > 0 {
		fmt.Fprintln(out, format.DiagnosisTable("PV diagnosis", res.Summary.PVDiagnoses, format.ASCII))
	}
	if len(res.Summary.DeltaDiagnoses) > 0 {
		fmt.Fprintln(out, format.DiagnosisTable("Delta diagnosis", res.Summary.DeltaDiagnoses, format.ASCII))
	}
	if len(res.Patterns) > 0 {
		fmt.Fprintln(out, format.PatternsSection(res.Patterns, format.ASCII))
	}

	if analyzeFlags.outputPath != "" {
		if err := frame.SaveFile(analyzeFlags.outputPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Diagnosed dataset written to %s\n", analyzeFlags.outputPath)
	}
	if analyzeFlags.reportPath != "" {
		report := format.MarkdownReport(res.Summary, res.Patterns)
		if err := os.WriteFile(analyzeFlags.reportPath, []byte(report), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(out, "Report written to %s\n", analyzeFlags.reportPath)
	}
	if res.RunID != 0 {
		fmt.Fprintf(out, "Recorded as run #%d\n", res.RunID)
	}
	return nil
}
