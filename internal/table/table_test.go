package table

import (
	"path/filepath"
	"testing"
)

func sampleTable() *Table {
	t := New("entity", "name", "code")
	t.AppendRow("participant", "birth_year", "34")
	t.AppendRow("participant", "sex", "")
	t.AppendRow("questionnaire", "income", "9")
	return t
}

func TestGetAndSet(t *testing.T) {
	tbl := sampleTable()

	if got := tbl.Get(0, "name"); got != "birth_year" {
		t.Errorf("Get = %q, want birth_year", got)
	}
	if got := tbl.Get(0, "nope"); got != "" {
		t.Errorf("missing column reads %q, want empty", got)
	}
	if got := tbl.Get(99, "name"); got != "" {
		t.Errorf("out-of-range row reads %q, want empty", got)
	}

	tbl.Set(1, "code", "5")
	if got := tbl.Get(1, "code"); got != "5" {
		t.Errorf("Set did not stick, got %q", got)
	}
}

func TestAppendRowPadsAndTruncates(t *testing.T) {
	tbl := New("a", "b", "c")
	tbl.AppendRow("1")
	tbl.AppendRow("1", "2", "3", "4")

	if got := tbl.Get(0, "c"); got != "" {
		t.Errorf("short row not padded: %q", got)
	}
	if len(tbl.Rows[1]) != 3 {
		t.Errorf("long row not truncated: %v", tbl.Rows[1])
	}
}

func TestDropColumns(t *testing.T) {
	tbl := sampleTable()
	tbl.DropColumns("code", "not_present")

	if tbl.HasColumn("code") {
		t.Error("code column still present")
	}
	if len(tbl.Columns) != 2 {
		t.Errorf("columns = %v", tbl.Columns)
	}
	if got := tbl.Get(2, "name"); got != "income" {
		t.Errorf("row data shifted after drop: %q", got)
	}
}

func TestFilter(t *testing.T) {
	tbl := sampleTable()
	kept := tbl.Filter(func(i int) bool { return tbl.Get(i, "entity") == "participant" })

	if kept.NumRows() != 2 {
		t.Errorf("kept %d rows, want 2", kept.NumRows())
	}
	if tbl.NumRows() != 3 {
		t.Errorf("Filter mutated the source table: %d rows", tbl.NumRows())
	}
}

func TestStripSpace(t *testing.T) {
	tbl := New("a", "b")
	tbl.AppendRow("  x ", "\ty\n")
	tbl.StripSpace()

	if tbl.Get(0, "a") != "x" || tbl.Get(0, "b") != "y" {
		t.Errorf("cells not stripped: %v", tbl.Rows[0])
	}
}

func TestWriteAndReadCSVRoundTrip(t *testing.T) {
	tbl := sampleTable()
	path := filepath.Join(t.TempDir(), "out", "data.csv")

	if err := tbl.WriteCSV(path); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	back, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if back.NumRows() != tbl.NumRows() {
		t.Fatalf("rows = %d, want %d", back.NumRows(), tbl.NumRows())
	}
	if back.Get(1, "code") != "" {
		t.Errorf("empty cell did not survive round trip: %q", back.Get(1, "code"))
	}
	if back.Get(2, "entity") != "questionnaire" {
		t.Errorf("Get = %q", back.Get(2, "entity"))
	}
}

func TestReadCSVTrimsHeaderWhitespace(t *testing.T) {
	path := writeFile(t, "h.csv", " entity , name \nparticipant,birth_year\n")

	tbl, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if !tbl.HasColumns("entity", "name") {
		t.Errorf("header not trimmed: %v", tbl.Columns)
	}
}
