package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ReadCSV parses a headered CSV stream into a Frame. Empty cells become
// null; "true"/"false" become booleans; parseable numbers become numbers;
// everything else stays a string.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: read csv header: %w", err)
	}
	f := New(header...)

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: read csv row %d: %w", f.Len()+2, err)
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = parseCell(rec[i])
			}
		}
		f.Append(row)
	}
	return f, nil
}

func parseCell(s string) Value {
	switch s {
	case "":
		return Null()
	case "true", "True", "TRUE":
		return Bool(true)
	case "false", "False", "FALSE":
		return Bool(false)
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return Number(n)
	}
	return String(s)
}

// WriteCSV renders the Frame with its declared column order. Nulls render
// as empty cells.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.cols); err != nil {
		return fmt.Errorf("dataset: write csv header: %w", err)
	}
	rec := make([]string, len(f.cols))
	for _, row := range f.rows {
		for i, col := range f.cols {
			rec[i] = row.Get(col).Display()
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("dataset: write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// jsonFrame is the serialized form: column order plus an array of objects.
type jsonFrame struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// ReadJSON parses either the framed form {"columns":[...],"rows":[...]}
// or a bare array of row objects (column order then follows first-seen keys
// of the first row, which is only stable for framed input).
func ReadJSON(r io.Reader) (*Frame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("dataset: read json: %w", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var rows []Row
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("dataset: parse json rows: %w", err)
		}
		f := &Frame{}
		seen := map[string]bool{}
		for _, row := range rows {
			for col := range row {
				if !seen[col] {
					seen[col] = true
					f.cols = append(f.cols, col)
				}
			}
			f.Append(row)
		}
		return f, nil
	}
	var jf jsonFrame
	if err := json.Unmarshal(data, &jf); err != nil {
		return nil, fmt.Errorf("dataset: parse json frame: %w", err)
	}
	f := New(jf.Columns...)
	for _, row := range jf.Rows {
		f.Append(row)
	}
	return f, nil
}

// WriteJSON renders the framed form with explicit column order.
func (f *Frame) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonFrame{Columns: f.cols, Rows: f.rows}); err != nil {
		return fmt.Errorf("dataset: write json: %w", err)
	}
	return nil
}

// LoadFile reads a Frame from path, detecting format by extension
// (.csv vs .json).
func LoadFile(path string) (*Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer fh.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ReadCSV(fh)
	}
	return ReadJSON(fh)
}

// SaveFile writes the Frame to path, detecting format by extension.
func (f *Frame) SaveFile(path string) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dataset: create %s: %w", path, err)
	}
	defer fh.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return f.WriteCSV(fh)
	}
	return f.WriteJSON(fh)
}
