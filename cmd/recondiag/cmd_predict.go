package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"recondiag/internal/classifier"
	"recondiag/internal/dataset"
)

var predictFlags struct {
	pvModelPath    string
	deltaModelPath string
	outputPath     string
}

var predictCmd = &cobra.Command{
	Use:   "predict <dataset>",
	Short: "Append classifier diagnoses to a dataset",
	Long: `Load the trained model bundles and append ML_PV_Diagnosis and
ML_Delta_Diagnosis columns. A dimension whose bundle is absent is
skipped; at least one bundle must load.

Usage:
  recondiag predict extract.csv --output predicted.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runPredict,
}

func init() {
	f := predictCmd.Flags()
	f.StringVar(&predictFlags.pvModelPath, "model-pv", defaultPVModelPath, "PV model bundle path")
	f.StringVar(&predictFlags.deltaModelPath, "model-delta", defaultDeltaModelPath, "Delta model bundle path")
	f.StringVarP(&predictFlags.outputPath, "output", "o", "", "Write the predicted dataset here (required)")
	_ = predictCmd.MarkFlagRequired("output")
}

func runPredict(cmd *cobra.Command, args []string) error {
	frame, err := dataset.LoadFile(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	applied := 0
	for _, dim := range []struct {
		path string
		col  string
	}{
		{predictFlags.pvModelPath, dataset.ColMLPVDiagnosis},
		{predictFlags.deltaModelPath, dataset.ColMLDeltaDiagnosis},
	} {
		d := classifier.NewDiagnoser()
		if err := d.Load(dim.path); err != nil {
			fmt.Fprintf(out, "Skipping %s: %v\n", dim.col, err)
			continue
		}
		labels, err := d.Predict(frame)
		if err != nil {
			return fmt.Errorf("predict %s: %w", dim.col, err)
		}
		vals := make([]dataset.Value, len(labels))
		for i, l := range labels {
			vals[i] = dataset.String(l)
		}
		if err := frame.SetColumn(dim.col, vals); err != nil {
			return err
		}
		applied++
	}
	if applied == 0 {
		return fmt.Errorf("no model bundle could be loaded (tried %s, %s)",
			predictFlags.pvModelPath, predictFlags.deltaModelPath)
	}

	if err := frame.SaveFile(predictFlags.outputPath); err != nil {
		return err
	}
	fmt.Fprintf(out, "Predicted %d rows; written to %s\n", frame.Len(), predictFlags.outputPath)
	return nil
}
