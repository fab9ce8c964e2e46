package table

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/meyerlab/phenotool/internal/util"
	"github.com/xuri/excelize/v2"
)

// Kind tags the payload of a Loaded value.
type Kind int

const (
	// KindJSON is a parsed JSON document.
	KindJSON Kind = iota
	// KindText is a flat field list (newlines already joined with commas).
	KindText
	// KindTable is a parsed tabular file.
	KindTable
)

// Loaded is the result of LoadFile: exactly one payload field is set,
// according to Kind.
type Loaded struct {
	Kind  Kind
	JSON  interface{}
	Text  string
	Table *Table
}

// LoadFile reads a file into memory, dispatching on its extension:
// .json, .txt (field list), .csv, .tsv and .xlsx (first worksheet) are
// supported. An unknown extension logs a warning and returns (nil, nil);
// callers treat that as "nothing loaded", not an error.
func LoadFile(path string) (*Loaded, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		var v interface{}
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to parse JSON in %s: %w", path, err)
		}
		return &Loaded{Kind: KindJSON, JSON: v}, nil

	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		text := strings.TrimSuffix(string(data), "\n")
		return &Loaded{Kind: KindText, Text: strings.ReplaceAll(text, "\n", ",")}, nil

	case ".csv":
		t, err := ReadCSV(path)
		if err != nil {
			return nil, err
		}
		return &Loaded{Kind: KindTable, Table: t}, nil

	case ".tsv":
		t, err := ReadTSV(path)
		if err != nil {
			return nil, err
		}
		return &Loaded{Kind: KindTable, Table: t}, nil

	case ".xlsx":
		t, err := readXLSX(path)
		if err != nil {
			return nil, err
		}
		return &Loaded{Kind: KindTable, Table: t}, nil

	default:
		util.WarnLog("Unsupported file type %s for %s", ext, path)
		return nil, nil
	}
}

// LoadTable loads a file that must contain tabular data.
func LoadTable(path string) (*Table, error) {
	loaded, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if loaded == nil || loaded.Kind != KindTable {
		return nil, fmt.Errorf("%s does not contain tabular data", path)
	}
	return loaded.Table, nil
}

// readXLSX parses the first worksheet of an Excel workbook.
func readXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return New(), nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return New(), nil
	}

	header := rows[0]
	for j := range header {
		header[j] = strings.TrimSpace(header[j])
	}

	t := New(header...)
	for _, row := range rows[1:] {
		// excelize omits trailing empty cells; AppendRow pads them back
		t.AppendRow(row...)
	}
	return t, nil
}
