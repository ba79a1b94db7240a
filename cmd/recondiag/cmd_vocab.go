package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"recondiag/internal/dataset"
	"recondiag/internal/discovery"
	"recondiag/internal/format"
	"recondiag/internal/vocab"
)

var vocabFlags struct {
	vocabPath    string
	datasetPath  string
	rulesPV      string
	rulesDelta   string
	noDiscovered bool
	noHistorical bool
}

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Inspect the diagnosis label vocabulary",
}

var vocabStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show vocabulary usage statistics",
	RunE:  runVocabStats,
}

var vocabLabelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List the labels the vocabulary currently generates",
	RunE:  runVocabLabels,
}

func init() {
	pf := vocabCmd.PersistentFlags()
	pf.StringVar(&vocabFlags.vocabPath, "vocab", "", "Vocabulary snapshot path (default: $RECONDIAG_VOCAB or "+defaultVocabPath+")")

	f := vocabLabelsCmd.Flags()
	f.StringVar(&vocabFlags.datasetPath, "dataset", "", "Derive data-driven labels from this dataset")
	f.StringVar(&vocabFlags.rulesPV, "rules-pv", "", "PV ruleset file (default: built-in)")
	f.StringVar(&vocabFlags.rulesDelta, "rules-delta", "", "Delta ruleset file (default: built-in)")
	f.BoolVar(&vocabFlags.noDiscovered, "no-discovered", false, "Exclude discovered-pattern labels")
	f.BoolVar(&vocabFlags.noHistorical, "no-historical", false, "Exclude frequent historical labels")

	vocabCmd.AddCommand(vocabStatsCmd)
	vocabCmd.AddCommand(vocabLabelsCmd)
}

func openVocab() (*vocab.Manager, error) {
	path, err := resolvePath(vocabFlags.vocabPath, "RECONDIAG_VOCAB", defaultVocabPath)
	if err != nil {
		return nil, err
	}
	return vocab.NewManager(path, discovery.New(discovery.DefaultConfig())), nil
}

func runVocabStats(cmd *cobra.Command, _ []string) error {
	m, err := openVocab()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), format.VocabStatsTable(m.Statistics(), format.ASCII))
	return nil
}

func runVocabLabels(cmd *cobra.Command, _ []string) error {
	m, err := openVocab()
	if err != nil {
		return err
	}
	var frame *dataset.Frame
	if vocabFlags.datasetPath != "" {
		frame, err = dataset.LoadFile(vocabFlags.datasetPath)
		if err != nil {
			return err
		}
	}
	ruleLabels, err := ruleSetLabels(vocabFlags.rulesPV, vocabFlags.rulesDelta)
	if err != nil {
		return err
	}
	labels := m.GenerateLabels(frame, ruleLabels, !vocabFlags.noDiscovered, !vocabFlags.noHistorical)
	out := cmd.OutOrStdout()
	for _, l := range labels {
		fmt.Fprintln(out, l)
	}
	fmt.Fprintf(out, "\n%d labels\n", len(labels))
	return nil
}
