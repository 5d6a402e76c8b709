package recordset

import (
	"bytes"
	"strings"
	"testing"
)

func TestFrame_AddColumnLengthMismatch(t *testing.T) {
	f := NewFrame()
	if err := f.AddColumn("a", []string{"1", "2"}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := f.AddColumn("b", []string{"1"}); err == nil {
		t.Errorf("expected length mismatch error")
	}
	if err := f.AddColumn("a", []string{"1", "2"}); err == nil {
		t.Errorf("expected duplicate column error")
	}
}

func TestFrame_CombineColumns(t *testing.T) {
	f := NewFrame()
	_ = f.AddColumn("title", []string{"Engineer", "  ", "Manager"})
	_ = f.AddColumn("dept", []string{"R&D", "Sales", ""})

	combined, err := f.CombineColumns([]string{"title", "dept"})
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}

	want := []string{"Engineer | R&D", "Sales", "Manager"}
	for i := range want {
		if combined[i] != want[i] {
			t.Errorf("row %d: got %q, want %q", i, combined[i], want[i])
		}
	}
}

func TestFrame_CombineMissingColumn(t *testing.T) {
	f := NewFrame()
	_ = f.AddColumn("title", []string{"x"})

	if _, err := f.CombineColumns([]string{"title", "nope"}); err == nil {
		t.Errorf("expected error for missing column")
	}
	if _, err := f.CombineColumns(nil); err == nil {
		t.Errorf("expected error for empty column list")
	}
}

func TestFrame_SetColumn(t *testing.T) {
	f := NewFrame()
	_ = f.AddColumn("title", []string{"a", "b"})

	if err := f.SetColumn("label", []string{"X", "Y"}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	values, err := f.Column("label")
	if err != nil || values[1] != "Y" {
		t.Errorf("expected label column [X Y], got %v err=%v", values, err)
	}

	if err := f.SetColumn("label", []string{"only-one"}); err == nil {
		t.Errorf("expected length mismatch on replace")
	}
}

func TestCSV_RoundTrip(t *testing.T) {
	in := "title,dept\nEngineer,R&D\n\"Sales, Senior\",Sales\n"
	f, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if f.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", f.Len())
	}

	titles, _ := f.Column("title")
	if titles[1] != "Sales, Senior" {
		t.Errorf("quoted field mangled: %q", titles[1])
	}

	var buf bytes.Buffer
	if err := f.WriteCSV(&buf); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	f2, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("re-read failed: %v", err)
	}
	if f2.Len() != f.Len() || len(f2.Columns()) != len(f.Columns()) {
		t.Errorf("round trip changed shape")
	}
}

func TestReadCSV_Empty(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("")); err == nil {
		t.Errorf("expected error for empty csv")
	}
}
