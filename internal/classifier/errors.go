package classifier

import (
	"errors"
	"fmt"
)

// ErrNotTrained is returned by Predict before a successful Train or Load.
// The caller must train or load a bundle first.
var ErrNotTrained = errors.New("classifier: model not trained")

// StateError reports a corrupted model bundle: a predicted class index
// with no label mapping, or a bundle whose recorded metadata disagrees
// with its contents. Fatal — the caller must retrain.
type StateError struct {
	Msg string
}

func (e *StateError) Error() string { return "classifier: " + e.Msg }

// MissingColumnError reports a dataset lacking a column the feature schema
// or training contract requires.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("classifier: dataset is missing required column %q", e.Column)
}
