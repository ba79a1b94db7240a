package classifier

import (
	"errors"
	"path/filepath"
	"testing"

	"recondiag/internal/dataset"
)

// trainingFrame builds a small but cleanly separable diagnosis dataset:
// the label is fully determined by ProductType.
func trainingFrame() *dataset.Frame {
	f := dataset.New(
		dataset.ColTradeID,
		dataset.ColPVOld, dataset.ColPVNew, dataset.ColPVDiff,
		dataset.ColDeltaOld, dataset.ColDeltaNew, dataset.ColDeltaDiff,
		dataset.ColProductType, dataset.ColFundingCurve,
		dataset.ColCSAType, dataset.ColModelVersion,
		dataset.ColPVDiagnosis,
	)
	type combo struct {
		product string
		label   string
	}
	combos := []combo{
		{"Swap", "Within tolerance"},
		{"Option", "Vol sensitivity likely – delta impact due to model curve shift"},
		{"Swaption", "Legacy LIBOR curve with outdated model – PV likely shifted"},
	}
	for rep := 0; rep < 6; rep++ {
		for i, c := range combos {
			base := float64(1000 * (i + 1) * (rep + 1))
			f.Append(dataset.Row{
				dataset.ColTradeID:      dataset.String("T" + c.product + string(rune('0'+rep))),
				dataset.ColPVOld:        dataset.Number(base),
				dataset.ColPVNew:        dataset.Number(base + float64(i*500)),
				dataset.ColPVDiff:       dataset.Number(float64(i * 500)),
				dataset.ColDeltaOld:     dataset.Number(0.5),
				dataset.ColDeltaNew:     dataset.Number(0.5 + float64(i)/10),
				dataset.ColDeltaDiff:    dataset.Number(float64(i) / 10),
				dataset.ColProductType:  dataset.String(c.product),
				dataset.ColFundingCurve: dataset.String("SOFR"),
				dataset.ColCSAType:      dataset.String("Cleared"),
				dataset.ColModelVersion: dataset.String("v2024.3"),
				dataset.ColPVDiagnosis:  dataset.String(c.label),
			})
		}
	}
	return f
}

func TestPredictBeforeTrainFails(t *testing.T) {
	d := NewDiagnoser()
	_, err := d.Predict(trainingFrame())
	if !errors.Is(err, ErrNotTrained) {
		t.Errorf("err = %v, want ErrNotTrained", err)
	}
}

func TestTrainRequiresLabelColumn(t *testing.T) {
	d := NewDiagnoser()
	err := d.Train(trainingFrame(), "No_Such_Column", nil)
	var mce *MissingColumnError
	if !errors.As(err, &mce) {
		t.Fatalf("err = %v, want MissingColumnError", err)
	}
	if mce.Column != "No_Such_Column" {
		t.Errorf("column = %q", mce.Column)
	}
}

func TestClosedWorldPrediction(t *testing.T) {
	f := trainingFrame()
	d := NewDiagnoser()
	if err := d.Train(f, dataset.ColPVDiagnosis, nil); err != nil {
		t.Fatalf("Train: %v", err)
	}

	trained := map[string]bool{}
	for _, l := range d.Labels() {
		trained[l] = true
	}
	preds, err := d.Predict(f)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(preds) != f.Len() {
		t.Fatalf("got %d predictions for %d rows", len(preds), f.Len())
	}
	for i, p := range preds {
		if !trained[p] {
			t.Errorf("row %d predicted %q, outside the training label set", i, p)
		}
	}
}

func TestTrainAccuracyOnSeparableData(t *testing.T) {
	f := trainingFrame()
	d := NewDiagnoser()
	if err := d.Train(f, dataset.ColPVDiagnosis, nil); err != nil {
		t.Fatalf("Train: %v", err)
	}
	preds, err := d.Predict(f)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	correct := 0
	for i, p := range preds {
		want, _ := f.Row(i).String(dataset.ColPVDiagnosis)
		if p == want {
			correct++
		}
	}
	if correct != f.Len() {
		t.Errorf("training-set accuracy %d/%d on separable data", correct, f.Len())
	}
}

func TestVocabUnionExpandsEncoder(t *testing.T) {
	f := trainingFrame()
	d := NewDiagnoser()
	vocabLabels := []string{"Trade matured or expired", "Within tolerance"}
	if err := d.Train(f, dataset.ColPVDiagnosis, vocabLabels); err != nil {
		t.Fatalf("Train: %v", err)
	}
	// 3 data labels ∪ 2 vocab labels (one overlapping) = 4.
	if got := len(d.Labels()); got != 4 {
		t.Errorf("encoder holds %d labels, want 4: %v", got, d.Labels())
	}
}

func TestThreeLabelEncoderScenario(t *testing.T) {
	f := trainingFrame()
	d := NewDiagnoser()
	if err := d.Train(f, dataset.ColPVDiagnosis, nil); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if got := len(d.Labels()); got != 3 {
		t.Fatalf("3 distinct labels must give a 3-entry bijection, got %d", got)
	}

	// A row whose categorical fields are all unseen still yields one of
	// the 3 trained labels, never a 4th.
	probe := dataset.New(f.Columns()...)
	probe.Append(dataset.Row{
		dataset.ColPVOld:        dataset.Number(1234),
		dataset.ColPVNew:        dataset.Number(2234),
		dataset.ColPVDiff:       dataset.Number(1000),
		dataset.ColDeltaOld:     dataset.Number(0.1),
		dataset.ColDeltaNew:     dataset.Number(0.2),
		dataset.ColDeltaDiff:    dataset.Number(0.1),
		dataset.ColProductType:  dataset.String("ExoticBasket"),
		dataset.ColFundingCurve: dataset.String("JPY-TONA"),
		dataset.ColCSAType:      dataset.String("Tri-party"),
		dataset.ColModelVersion: dataset.String("v1999.1"),
	})
	preds, err := d.Predict(probe)
	if err != nil {
		t.Fatalf("Predict on unseen categoricals: %v", err)
	}
	trained := map[string]bool{}
	for _, l := range d.Labels() {
		trained[l] = true
	}
	if !trained[preds[0]] {
		t.Errorf("prediction %q is outside the 3 trained labels", preds[0])
	}
}

func TestPredictOnRawExtract(t *testing.T) {
	f := trainingFrame()
	d := NewDiagnoser()
	if err := d.Train(f, dataset.ColPVDiagnosis, nil); err != nil {
		t.Fatalf("Train: %v", err)
	}

	// A raw extract carries the old/new pairs but no diff columns; the
	// schema must compute the diffs itself.
	raw := dataset.New(
		dataset.ColTradeID,
		dataset.ColPVOld, dataset.ColPVNew,
		dataset.ColDeltaOld, dataset.ColDeltaNew,
		dataset.ColProductType, dataset.ColFundingCurve,
		dataset.ColCSAType, dataset.ColModelVersion,
	)
	for i := 0; i < f.Len(); i++ {
		src := f.Row(i)
		row := dataset.Row{}
		for _, col := range raw.Columns() {
			row[col] = src.Get(col)
		}
		raw.Append(row)
	}

	full, err := d.Predict(f)
	if err != nil {
		t.Fatalf("Predict with diff columns: %v", err)
	}
	derived, err := d.Predict(raw)
	if err != nil {
		t.Fatalf("Predict on raw extract: %v", err)
	}
	for i := range full {
		if full[i] != derived[i] {
			t.Errorf("row %d: %q with diff columns, %q derived", i, full[i], derived[i])
		}
	}

	// A null old value makes the derived diff missing, not an error.
	raw.Row(0)[dataset.ColPVOld] = dataset.Null()
	if _, err := d.Predict(raw); err != nil {
		t.Errorf("Predict with null PV_old: %v", err)
	}
}

func TestPredictMissingFeatureColumn(t *testing.T) {
	f := trainingFrame()
	d := NewDiagnoser()
	if err := d.Train(f, dataset.ColPVDiagnosis, nil); err != nil {
		t.Fatalf("Train: %v", err)
	}
	bare := dataset.New(dataset.ColTradeID)
	bare.Append(dataset.Row{dataset.ColTradeID: dataset.String("T1")})

	_, err := d.Predict(bare)
	var mce *MissingColumnError
	if !errors.As(err, &mce) {
		t.Errorf("err = %v, want MissingColumnError", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	f := trainingFrame()
	d := NewDiagnoser()
	if err := d.Train(f, dataset.ColPVDiagnosis, nil); err != nil {
		t.Fatalf("Train: %v", err)
	}
	path := filepath.Join(t.TempDir(), "model.json")
	if err := d.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	orig, err := d.Predict(f)
	if err != nil {
		t.Fatal(err)
	}

	d2 := NewDiagnoser()
	if err := d2.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	loaded, err := d2.Predict(f)
	if err != nil {
		t.Fatalf("Predict after Load: %v", err)
	}
	for i := range orig {
		if orig[i] != loaded[i] {
			t.Errorf("row %d: trained model says %q, loaded says %q", i, orig[i], loaded[i])
		}
	}
}

func TestLoadRejectsInconsistentBundle(t *testing.T) {
	f := trainingFrame()
	d := NewDiagnoser()
	if err := d.Train(f, dataset.ColPVDiagnosis, nil); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "model.json")

	// Corrupt the recorded label count before writing.
	d.bundle.LabelCount = 99
	if err := d.Save(path); err != nil {
		t.Fatal(err)
	}
	var se *StateError
	if err := NewDiagnoser().Load(path); !errors.As(err, &se) {
		t.Errorf("err = %v, want StateError for label-count mismatch", err)
	}
}

func TestSaveBeforeTrainFails(t *testing.T) {
	err := NewDiagnoser().Save(filepath.Join(t.TempDir(), "m.json"))
	if !errors.Is(err, ErrNotTrained) {
		t.Errorf("err = %v, want ErrNotTrained", err)
	}
}
