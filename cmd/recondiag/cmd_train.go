package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"recondiag/internal/classifier"
	"recondiag/internal/dataset"
	"recondiag/internal/discovery"
	"recondiag/internal/vocab"
)

var trainFlags struct {
	labelColumn  string
	modelPath    string
	vocabPath    string
	rulesPV      string
	rulesDelta   string
	rounds       int
	learningRate float64
	maxDepth     int
}

var trainCmd = &cobra.Command{
	Use:   "train <dataset>",
	Short: "Train the fallback classifier on a diagnosed dataset",
	Long: `Train the gradient-boosted classifier on a dataset that already
carries diagnosis labels (the output of 'recondiag analyze'), and save
the model bundle. The label set is the union of the vocabulary, the
configured rule labels, and the labels observed in the dataset.

Usage:
  recondiag train diagnosed.csv --label-column PV_Diagnosis --model .recondiag/model-pv.json
  recondiag train diagnosed.csv --label-column Delta_Diagnosis --model .recondiag/model-delta.json`,
	Args: cobra.ExactArgs(1),
	RunE: runTrain,
}

func init() {
	f := trainCmd.Flags()
	f.StringVar(&trainFlags.labelColumn, "label-column", dataset.ColPVDiagnosis, "Label column to train against")
	f.StringVar(&trainFlags.modelPath, "model", "", "Model bundle output path (default by label column)")
	f.StringVar(&trainFlags.vocabPath, "vocab", "", "Vocabulary snapshot path (default: $RECONDIAG_VOCAB or "+defaultVocabPath+")")
	f.StringVar(&trainFlags.rulesPV, "rules-pv", "", "PV ruleset file (default: built-in)")
	f.StringVar(&trainFlags.rulesDelta, "rules-delta", "", "Delta ruleset file (default: built-in)")
	f.IntVar(&trainFlags.rounds, "rounds", 0, "Boosting rounds (0 = default)")
	f.Float64Var(&trainFlags.learningRate, "learning-rate", 0, "Shrinkage per round (0 = default)")
	f.IntVar(&trainFlags.maxDepth, "max-depth", 0, "Tree depth (0 = default)")
}

func defaultModelPath(labelColumn string) string {
	if labelColumn == dataset.ColDeltaDiagnosis {
		return defaultDeltaModelPath
	}
	return defaultPVModelPath
}

func runTrain(cmd *cobra.Command, args []string) error {
	frame, err := dataset.LoadFile(args[0])
	if err != nil {
		return err
	}

	vocabPath, err := resolvePath(trainFlags.vocabPath, "RECONDIAG_VOCAB", defaultVocabPath)
	if err != nil {
		return err
	}
	ruleLabels, err := ruleSetLabels(trainFlags.rulesPV, trainFlags.rulesDelta)
	if err != nil {
		return err
	}
	manager := vocab.NewManager(vocabPath, discovery.New(discovery.DefaultConfig()))
	vocabLabels := manager.GenerateLabels(frame, ruleLabels, true, true)

	cfg := classifier.DefaultTrainConfig()
	if trainFlags.rounds > 0 {
		cfg.Rounds = trainFlags.rounds
	}
	if trainFlags.learningRate > 0 {
		cfg.LearningRate = trainFlags.learningRate
	}
	if trainFlags.maxDepth > 0 {
		cfg.MaxDepth = trainFlags.maxDepth
	}

	d := classifier.NewDiagnoserWithConfig(cfg)
	if err := d.Train(frame, trainFlags.labelColumn, vocabLabels); err != nil {
		return err
	}

	modelPath, err := resolvePath(trainFlags.modelPath, "", defaultModelPath(trainFlags.labelColumn))
	if err != nil {
		return err
	}
	if err := d.Save(modelPath); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Trained on %d rows, %d labels; bundle written to %s\n",
		frame.Len(), len(d.Labels()), modelPath)
	return nil
}
