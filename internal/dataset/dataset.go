// Package dataset holds the in-memory tabular model shared by every
// diagnosis stage: a Frame of rows keyed by trade ID, with null-aware
// scalar values. Upstream extracts arrive as CSV or JSON; downstream
// stages append diagnosis columns to the same Frame.
package dataset

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind discriminates the scalar types a cell can hold.
type Kind int

const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindBool
)

// Value is one cell. The zero value is null.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	B    bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// String returns a string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, B: b} }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// AsNumber returns the numeric content; ok is false for non-numbers.
func (v Value) AsNumber() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// AsString returns the string content; ok is false for non-strings.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

// AsBool returns the boolean content; ok is false for non-booleans.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.B, true
}

// Display renders the value for CSV cells and tables. Null renders empty.
func (v Value) Display() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindString:
		return v.Str
	case KindBool:
		return strconv.FormatBool(v.B)
	default:
		return ""
	}
}

// MarshalJSON emits the underlying scalar (null, number, string, bool).
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Num)
	case KindString:
		return json.Marshal(v.Str)
	case KindBool:
		return json.Marshal(v.B)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, numbers, strings, and booleans.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = Null()
	case float64:
		*v = Number(x)
	case string:
		*v = String(x)
	case bool:
		*v = Bool(x)
	default:
		return fmt.Errorf("dataset: unsupported cell type %T", raw)
	}
	return nil
}

// Row is one trade record: column name to cell. Absent columns read as null.
type Row map[string]Value

// Get returns the cell for col; absent columns yield null.
func (r Row) Get(col string) Value {
	if v, ok := r[col]; ok {
		return v
	}
	return Null()
}

// Number returns the numeric content of col; ok is false for null or non-numbers.
func (r Row) Number(col string) (float64, bool) { return r.Get(col).AsNumber() }

// String returns the string content of col; ok is false for null or non-strings.
func (r Row) String(col string) (string, bool) { return r.Get(col).AsString() }

// Bool returns the boolean content of col; ok is false for null or non-booleans.
func (r Row) Bool(col string) (bool, bool) { return r.Get(col).AsBool() }

// Flag reads a mismatch flag column: null or absent counts as false.
func (r Row) Flag(col string) bool {
	b, ok := r.Get(col).AsBool()
	return ok && b
}

// Frame is an ordered collection of rows with a declared column order.
// Column order is preserved through CSV/JSON round-trips.
type Frame struct {
	cols []string
	rows []Row
}

// New creates an empty Frame with the given column order.
func New(cols ...string) *Frame {
	return &Frame{cols: append([]string(nil), cols...)}
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.rows) }

// Columns returns the declared column order.
func (f *Frame) Columns() []string { return append([]string(nil), f.cols...) }

// HasColumn reports whether col is declared.
func (f *Frame) HasColumn(col string) bool {
	for _, c := range f.cols {
		if c == col {
			return true
		}
	}
	return false
}

// Row returns row i. The returned map is live; stages that append columns
// mutate it through SetColumn instead.
func (f *Frame) Row(i int) Row { return f.rows[i] }

// Append adds a row. Cells for undeclared columns are ignored by CSV output
// until the column is declared via SetColumn or EnsureColumn.
func (f *Frame) Append(r Row) { f.rows = append(f.rows, r) }

// EnsureColumn declares col if it is not already present.
func (f *Frame) EnsureColumn(col string) {
	if !f.HasColumn(col) {
		f.cols = append(f.cols, col)
	}
}

// SetColumn declares col and assigns vals row by row.
// len(vals) must equal Len().
func (f *Frame) SetColumn(col string, vals []Value) error {
	if len(vals) != len(f.rows) {
		return fmt.Errorf("dataset: column %q has %d values for %d rows", col, len(vals), len(f.rows))
	}
	f.EnsureColumn(col)
	for i, v := range vals {
		f.rows[i][col] = v
	}
	return nil
}

// Column returns all cells of col in row order; absent cells are null.
// ok is false when the column is not declared.
func (f *Frame) Column(col string) ([]Value, bool) {
	if !f.HasColumn(col) {
		return nil, false
	}
	out := make([]Value, len(f.rows))
	for i, r := range f.rows {
		out[i] = r.Get(col)
	}
	return out, true
}

// Distinct returns the distinct non-null string values of col in first-seen order.
func (f *Frame) Distinct(col string) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range f.rows {
		if s, ok := r.String(col); ok && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
