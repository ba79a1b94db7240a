package dataset

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRowGetAbsentIsNull(t *testing.T) {
	r := Row{"PV_old": Number(100)}
	if !r.Get("PV_new").IsNull() {
		t.Error("absent column should read as null")
	}
	if v := r.Get("PV_old"); v.Num != 100 {
		t.Errorf("PV_old = %v, want 100", v.Num)
	}
}

func TestRowFlag(t *testing.T) {
	r := Row{"PV_Mismatch": Bool(true), "Delta_Mismatch": Null()}
	if !r.Flag("PV_Mismatch") {
		t.Error("true flag should read true")
	}
	if r.Flag("Delta_Mismatch") {
		t.Error("null flag should read false")
	}
	if r.Flag("Any_Mismatch") {
		t.Error("absent flag should read false")
	}
}

func TestSetColumn(t *testing.T) {
	f := New("TradeID")
	f.Append(Row{"TradeID": String("T001")})
	f.Append(Row{"TradeID": String("T002")})

	err := f.SetColumn("PV_Diagnosis", []Value{String("a"), String("b")})
	if err != nil {
		t.Fatalf("SetColumn: %v", err)
	}
	if !f.HasColumn("PV_Diagnosis") {
		t.Error("column should be declared after SetColumn")
	}
	if got, _ := f.Row(1).String("PV_Diagnosis"); got != "b" {
		t.Errorf("row 1 diagnosis = %q, want b", got)
	}

	if err := f.SetColumn("short", []Value{String("x")}); err == nil {
		t.Error("length mismatch should error")
	}
}

func TestDistinct(t *testing.T) {
	f := New("ProductType")
	for _, p := range []string{"Swap", "Option", "Swap", "Swaption"} {
		f.Append(Row{"ProductType": String(p)})
	}
	f.Append(Row{"ProductType": Null()})

	got := f.Distinct("ProductType")
	want := []string{"Swap", "Option", "Swaption"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Distinct mismatch (-want +got):\n%s", diff)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	in := strings.Join([]string{
		"TradeID,PV_old,PV_new,ProductType,PV_Mismatch",
		"T001,100000,101000,Swap,false",
		"T002,,50000,Option,true",
	}, "\n")

	f, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if f.Len() != 2 {
		t.Fatalf("Len = %d, want 2", f.Len())
	}
	if !f.Row(1).Get("PV_old").IsNull() {
		t.Error("empty cell should parse as null")
	}
	if n, ok := f.Row(0).Number("PV_new"); !ok || n != 101000 {
		t.Errorf("PV_new = %v %v, want 101000", n, ok)
	}
	if !f.Row(1).Flag("PV_Mismatch") {
		t.Error("true cell should parse as bool")
	}

	var buf bytes.Buffer
	if err := f.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	f2, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if diff := cmp.Diff(f.Columns(), f2.Columns()); diff != "" {
		t.Errorf("columns changed (-orig +reread):\n%s", diff)
	}
	if !f2.Row(1).Get("PV_old").IsNull() {
		t.Error("null should survive the round trip")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	f := New("TradeID", "PV_old", "PV_Mismatch")
	f.Append(Row{"TradeID": String("T001"), "PV_old": Number(100), "PV_Mismatch": Bool(false)})
	f.Append(Row{"TradeID": String("T002"), "PV_old": Null(), "PV_Mismatch": Bool(true)})

	var buf bytes.Buffer
	if err := f.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	f2, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if diff := cmp.Diff(f.Columns(), f2.Columns()); diff != "" {
		t.Errorf("columns changed:\n%s", diff)
	}
	if !f2.Row(1).Get("PV_old").IsNull() {
		t.Error("null should survive JSON round trip")
	}
	if n, _ := f2.Row(0).Number("PV_old"); n != 100 {
		t.Errorf("PV_old = %v, want 100", n)
	}
}

func TestReadJSONBareArray(t *testing.T) {
	in := `[{"TradeID":"T001","PV_old":100},{"TradeID":"T002","PV_old":null}]`
	f, err := ReadJSON(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if f.Len() != 2 {
		t.Fatalf("Len = %d, want 2", f.Len())
	}
	if !f.Row(1).Get("PV_old").IsNull() {
		t.Error("JSON null should map to null value")
	}
}
