// Package classifier trains and applies the supervised diagnosis model.
// Rule-engine output is the ground truth; the label vocabulary fixes the
// encoder's label set, so the model can never predict a label outside the
// world it was trained in.
package classifier

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"recondiag/internal/dataset"
	"recondiag/internal/lockfile"
	"recondiag/internal/logging"
)

// bundleSchemaVersion is the model-bundle document version this build
// reads and writes.
const bundleSchemaVersion = 1

// lockWait bounds how long Save waits for a competing bundle writer.
const lockWait = 10 * time.Second

// Bundle couples the trained model, the label bijection, and the feature
// schema. The three are one unit: they are persisted and loaded together,
// never separately.
type Bundle struct {
	Version    int            `json:"version"`
	TrainedAt  time.Time      `json:"trained_at"`
	LabelCount int            `json:"label_count"`
	Encoder    *LabelEncoder  `json:"label_encoder"`
	Schema     *FeatureSchema `json:"feature_schema"`
	Model      *Model         `json:"model"`
}

// Diagnoser is the classifier wrapper. It starts untrained; Train or Load
// moves it to the trained state, where Predict becomes legal.
type Diagnoser struct {
	cfg    TrainConfig
	bundle *Bundle
	log    *slog.Logger
}

// NewDiagnoser returns an untrained Diagnoser with default hyperparameters.
func NewDiagnoser() *Diagnoser {
	return &Diagnoser{cfg: DefaultTrainConfig(), log: logging.New("classifier")}
}

// NewDiagnoserWithConfig overrides the boosting hyperparameters.
func NewDiagnoserWithConfig(cfg TrainConfig) *Diagnoser {
	return &Diagnoser{cfg: cfg, log: logging.New("classifier")}
}

// Trained reports whether Predict is legal.
func (d *Diagnoser) Trained() bool { return d.bundle != nil }

// Labels returns the training-time label set, or nil when untrained.
func (d *Diagnoser) Labels() []string {
	if d.bundle == nil {
		return nil
	}
	return d.bundle.Encoder.Labels()
}

// Train fits a model with labelCol as ground truth. The encoder's label
// set is the union of vocabLabels and the labels actually present in the
// column — the union is mandatory, so the encoder never rejects a label
// the data itself contains. Rows with a null label are skipped with a
// warning.
func (d *Diagnoser) Train(f *dataset.Frame, labelCol string, vocabLabels []string) error {
	if !f.HasColumn(labelCol) {
		return &MissingColumnError{Column: labelCol}
	}

	labelSet := append([]string(nil), vocabLabels...)
	labelSet = append(labelSet, f.Distinct(labelCol)...)
	enc := FitEncoder(labelSet)
	if enc.Len() == 0 {
		return fmt.Errorf("classifier: no labels to train on (empty vocabulary and empty %s column)", labelCol)
	}

	schema := NewSchema(f)
	full, err := schema.Matrix(f)
	if err != nil {
		return err
	}

	var x [][]float64
	var y []int
	skipped := 0
	for i := 0; i < f.Len(); i++ {
		label, ok := f.Row(i).String(labelCol)
		if !ok {
			skipped++
			continue
		}
		cls, ok := enc.Encode(label)
		if !ok {
			// Unreachable by construction of the union; guard anyway.
			return &StateError{Msg: fmt.Sprintf("training label %q missing from encoder", label)}
		}
		x = append(x, full[i])
		y = append(y, cls)
	}
	if skipped > 0 {
		d.log.Warn("skipped unlabeled rows during training", "column", labelCol, "rows", skipped)
	}
	if len(x) == 0 {
		return fmt.Errorf("classifier: column %s has no labeled rows", labelCol)
	}

	model := TrainModel(x, y, enc.Len(), schema.CategoricalMask(), d.cfg)
	d.bundle = &Bundle{
		Version:    bundleSchemaVersion,
		TrainedAt:  time.Now().UTC(),
		LabelCount: enc.Len(),
		Encoder:    enc,
		Schema:     schema,
		Model:      model,
	}
	d.log.Info("model trained",
		"rows", len(x),
		"classes", enc.Len(),
		"binary", model.Binary,
		"rounds", d.cfg.Rounds)
	return nil
}

// Predict returns one label per row, decoded through the stored bijection.
// Categorical values unseen at training time fall into the unseen bucket;
// a class index without a mapping is a corrupted bundle (StateError).
func (d *Diagnoser) Predict(f *dataset.Frame) ([]string, error) {
	if d.bundle == nil {
		return nil, ErrNotTrained
	}
	x, err := d.bundle.Schema.Matrix(f)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(x))
	for i, vec := range x {
		label, err := d.bundle.Encoder.Decode(d.bundle.Model.Predict(vec))
		if err != nil {
			return nil, err
		}
		out[i] = label
	}
	return out, nil
}

// Save persists the bundle as one atomic document under the writer lock.
func (d *Diagnoser) Save(path string) error {
	if d.bundle == nil {
		return ErrNotTrained
	}
	lock, err := lockfile.Acquire(path, lockWait)
	if err != nil {
		return fmt.Errorf("classifier: save %s: %w", path, err)
	}
	defer lock.Release()
	return writeBundle(path, d.bundle)
}

// Load replaces the Diagnoser's state with a persisted bundle, rejecting
// documents whose version or recorded label count disagrees with their
// contents.
func (d *Diagnoser) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("classifier: load %s: %w", path, err)
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("classifier: parse bundle %s: %w", path, err)
	}
	if b.Version != bundleSchemaVersion {
		return &StateError{Msg: fmt.Sprintf("bundle version %d unsupported (want %d)", b.Version, bundleSchemaVersion)}
	}
	if b.Encoder == nil || b.Schema == nil || b.Model == nil {
		return &StateError{Msg: "bundle is missing model, encoder, or schema"}
	}
	if b.LabelCount != b.Encoder.Len() {
		return &StateError{Msg: fmt.Sprintf("bundle records %d labels but encoder holds %d", b.LabelCount, b.Encoder.Len())}
	}
	if b.Model.Classes != b.LabelCount {
		return &StateError{Msg: fmt.Sprintf("model has %d classes but encoder holds %d labels", b.Model.Classes, b.LabelCount)}
	}
	d.bundle = &b
	return nil
}

func writeBundle(path string, b *Bundle) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("classifier: create bundle dir: %w", err)
		}
	}
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("classifier: marshal bundle: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".bundle-*.tmp")
	if err != nil {
		return fmt.Errorf("classifier: write bundle: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("classifier: write bundle: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("classifier: sync bundle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("classifier: close bundle: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("classifier: publish bundle: %w", err)
	}
	return nil
}
