package classifier

import (
	"encoding/json"
	"fmt"
	"sort"
)

// LabelEncoder is a strict bijection between diagnosis labels and class
// indices. Fitting sorts and deduplicates, so the same label set always
// produces the same bijection.
type LabelEncoder struct {
	labels []string
	index  map[string]int
}

// FitEncoder builds an encoder over the given labels.
func FitEncoder(labels []string) *LabelEncoder {
	seen := map[string]bool{}
	var uniq []string
	for _, l := range labels {
		if l != "" && !seen[l] {
			seen[l] = true
			uniq = append(uniq, l)
		}
	}
	sort.Strings(uniq)
	e := &LabelEncoder{labels: uniq, index: make(map[string]int, len(uniq))}
	for i, l := range uniq {
		e.index[l] = i
	}
	return e
}

// Len returns the number of classes.
func (e *LabelEncoder) Len() int { return len(e.labels) }

// Labels returns the encoded label set in index order.
func (e *LabelEncoder) Labels() []string { return append([]string(nil), e.labels...) }

// Encode maps a label to its class index.
func (e *LabelEncoder) Encode(label string) (int, bool) {
	i, ok := e.index[label]
	return i, ok
}

// Decode maps a class index back to its label. An unmapped index means the
// bundle is corrupted and yields a StateError.
func (e *LabelEncoder) Decode(idx int) (string, error) {
	if idx < 0 || idx >= len(e.labels) {
		return "", &StateError{Msg: fmt.Sprintf("class index %d has no label mapping (know %d labels)", idx, len(e.labels))}
	}
	return e.labels[idx], nil
}

type encoderDoc struct {
	Labels []string `json:"labels"`
}

// MarshalJSON persists the bijection as its ordered label list.
func (e *LabelEncoder) MarshalJSON() ([]byte, error) {
	return json.Marshal(encoderDoc{Labels: e.labels})
}

// UnmarshalJSON rebuilds the bijection, rejecting duplicate labels.
func (e *LabelEncoder) UnmarshalJSON(data []byte) error {
	var doc encoderDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	e.labels = doc.Labels
	e.index = make(map[string]int, len(doc.Labels))
	for i, l := range doc.Labels {
		if _, dup := e.index[l]; dup {
			return &StateError{Msg: fmt.Sprintf("encoder has duplicate label %q", l)}
		}
		e.index[l] = i
	}
	return nil
}
