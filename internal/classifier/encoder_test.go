package classifier

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFitEncoderSortsAndDeduplicates(t *testing.T) {
	e := FitEncoder([]string{"b", "a", "b", "", "c", "a"})
	if diff := cmp.Diff([]string{"a", "b", "c"}, e.Labels()); diff != "" {
		t.Errorf("Labels mismatch (-want +got):\n%s", diff)
	}
	if e.Len() != 3 {
		t.Errorf("Len = %d, want 3", e.Len())
	}
}

func TestEncoderBijection(t *testing.T) {
	labels := []string{"Within tolerance", "Legacy curve", "New trade"}
	e := FitEncoder(labels)

	seen := map[int]bool{}
	for _, l := range labels {
		idx, ok := e.Encode(l)
		if !ok {
			t.Fatalf("Encode(%q) not found", l)
		}
		if seen[idx] {
			t.Fatalf("index %d assigned twice", idx)
		}
		seen[idx] = true

		back, err := e.Decode(idx)
		if err != nil {
			t.Fatalf("Decode(%d): %v", idx, err)
		}
		if back != l {
			t.Errorf("round trip %q -> %d -> %q", l, idx, back)
		}
	}
}

func TestEncoderExactThreeEntries(t *testing.T) {
	e := FitEncoder([]string{"a", "b", "c"})
	if e.Len() != 3 {
		t.Fatalf("3 distinct labels must give exactly 3 entries, got %d", e.Len())
	}
}

func TestDecodeOutOfRangeIsStateError(t *testing.T) {
	e := FitEncoder([]string{"a", "b"})
	for _, idx := range []int{-1, 2, 99} {
		_, err := e.Decode(idx)
		var se *StateError
		if !errors.As(err, &se) {
			t.Errorf("Decode(%d) error = %v, want StateError", idx, err)
		}
	}
}

func TestEncoderCaseSensitive(t *testing.T) {
	e := FitEncoder([]string{"Within tolerance", "within tolerance"})
	if e.Len() != 2 {
		t.Errorf("labels differing only in case are distinct, got Len=%d", e.Len())
	}
}

func TestEncoderJSONRoundTrip(t *testing.T) {
	e := FitEncoder([]string{"x", "y", "z"})
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	var back LabelEncoder
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(e.Labels(), back.Labels()); diff != "" {
		t.Errorf("labels changed over JSON (-orig +back):\n%s", diff)
	}
	if idx, ok := back.Encode("y"); !ok || idx != 1 {
		t.Errorf("rebuilt index broken: Encode(y) = %d %v", idx, ok)
	}
}

func TestEncoderJSONRejectsDuplicates(t *testing.T) {
	var e LabelEncoder
	err := json.Unmarshal([]byte(`{"labels":["a","a"]}`), &e)
	if err == nil {
		t.Error("duplicate labels must fail to unmarshal (broken bijection)")
	}
}
