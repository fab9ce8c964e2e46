// Package extract turns a configured field list into one extract_dataset
// invocation and normalizes whatever the platform tool writes back.
package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/meyerlab/phenotool/internal/dx"
	"github.com/meyerlab/phenotool/internal/table"
	"github.com/meyerlab/phenotool/internal/util"
)

// SchemaError means the field list is missing a required column. Raised
// before any external command runs.
type SchemaError struct {
	Path    string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("field list %s must contain columns: %s", e.Path, strings.Join(e.Missing, ", "))
}

// FieldSpec builds the comma-joined entity.name specification from a field
// list table. Components are whitespace-trimmed; duplicate pairs are kept
// (they just produce redundant extraction columns).
func FieldSpec(t *table.Table) string {
	var parts []string
	for i := range t.Rows {
		entity := strings.TrimSpace(t.Get(i, "entity"))
		name := strings.TrimSpace(t.Get(i, "name"))
		parts = append(parts, entity+"."+name)
	}
	return strings.Join(parts, ",")
}

// Extract reads the field list at fieldListPath, validates it, and runs one
// extraction against datasetID. In SQL mode the generated query text is
// moved to outputPath verbatim; otherwise the raw CSV is re-read and
// re-written to outputPath.
func Extract(client *dx.Client, datasetID, fieldListPath, outputPath string, sqlOnly bool) error {
	fields, err := table.ReadCSV(fieldListPath)
	if err != nil {
		return fmt.Errorf("failed to read field list: %w", err)
	}

	var missing []string
	for _, col := range []string{"entity", "name"} {
		if !fields.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Path: fieldListPath, Missing: missing}
	}

	spec := FieldSpec(fields)
	util.DebugLog("Field specification: %s", spec)

	if sqlOnly {
		return extractSQL(client, datasetID, spec, outputPath)
	}
	return extractCSV(client, datasetID, spec, outputPath)
}

func extractSQL(client *dx.Client, datasetID, spec, outputPath string) error {
	tmp, err := tempPath("phenotool-query-*.sql")
	if err != nil {
		return err
	}

	if err := client.ExtractDataset(dx.ExtractOptions{
		DatasetID: datasetID,
		Fields:    spec,
		Output:    tmp,
		SQL:       true,
	}); err != nil {
		return fmt.Errorf("failed to extract dataset: %w", err)
	}
	util.InfoLog("SQL query generated for dataset %s", datasetID)

	if err := moveFile(tmp, outputPath); err != nil {
		return fmt.Errorf("failed to move SQL output: %w", err)
	}
	util.SuccessLog("SQL file saved to %s", outputPath)
	return nil
}

func extractCSV(client *dx.Client, datasetID, spec, outputPath string) error {
	tmp, err := tempPath("phenotool-extract-*.csv")
	if err != nil {
		return err
	}

	if err := client.ExtractDataset(dx.ExtractOptions{
		DatasetID: datasetID,
		Fields:    spec,
		Output:    tmp,
		Delimiter: ",",
	}); err != nil {
		return fmt.Errorf("failed to extract dataset: %w", err)
	}

	// re-read and re-write so the output never carries a row index column
	t, err := table.ReadCSV(tmp)
	if err != nil {
		return fmt.Errorf("failed to read extracted data: %w", err)
	}
	if err := t.WriteCSV(outputPath); err != nil {
		return err
	}
	os.Remove(tmp)

	util.SuccessLog("Dataset extracted and saved to %s (%d rows)", outputPath, t.NumRows())
	return nil
}

// tempPath reserves a temp file name and removes the placeholder so the
// external tool can create the file itself.
func tempPath(pattern string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	f.Close()
	os.Remove(path)
	return path, nil
}

// moveFile renames src to dest, falling back to copy+remove across devices.
func moveFile(src, dest string) error {
	if dir := filepath.Dir(dest); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
