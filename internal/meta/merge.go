// Package meta fills descriptive metadata into a raw phenotype table by
// joining it against the codings vocabulary and the data dictionary.
package meta

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/meyerlab/phenotool/internal/table"
)

const (
	codingSuffix = "_from_coding"
	dictSuffix   = "_from_dict"
)

// IntegrityError means a merge changed the phenotype row count. Nothing is
// written when this is returned.
type IntegrityError struct {
	Stage  string
	Before int
	After  int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("row count changed during %s merge: %d rows before, %d after", e.Stage, e.Before, e.After)
}

// Merge joins the phenotype table against the codings and data-dictionary
// tables. The result has exactly as many rows as pheno; a row-count change
// is an *IntegrityError. All three inputs have their string cells
// whitespace-stripped in place before joining.
func Merge(pheno, codings, dict *table.Table) (*table.Table, error) {
	pheno.StripSpace()
	codings.StripSpace()
	dict.StripSpace()

	intermed := leftJoin(pheno, codings,
		[]string{"coding_name", "phenotype"},
		[]string{"coding_name", "meaning"},
		codingSuffix)
	if intermed.NumRows() != pheno.NumRows() {
		return nil, &IntegrityError{Stage: "codings", Before: pheno.NumRows(), After: intermed.NumRows()}
	}

	fillCodes(intermed)
	intermed.DropColumns("code"+codingSuffix, "meaning", "concept", "display_order")

	merged := leftJoin(intermed, dict,
		[]string{"name", "entity"},
		[]string{"name", "entity"},
		dictSuffix)
	if merged.NumRows() != pheno.NumRows() {
		return nil, &IntegrityError{Stage: "data dictionary", Before: pheno.NumRows(), After: merged.NumRows()}
	}

	resolveDictColumns(merged)
	return merged, nil
}

// leftJoin joins left to right on the given key columns. Every left row
// appears at least once; rows with no match get empty right-side cells, and
// rows with several matches are duplicated (callers enforce the row-count
// invariant). Right-side columns colliding with left-side names get suffix;
// right key columns sharing the left key's name are not repeated.
func leftJoin(left, right *table.Table, leftOn, rightOn []string, suffix string) *table.Table {
	sharedKey := make(map[string]bool)
	for i, rk := range rightOn {
		if i < len(leftOn) && leftOn[i] == rk {
			sharedKey[rk] = true
		}
	}

	// right columns carried into the output, with collision suffixes
	type carried struct {
		srcIdx int
		name   string
	}
	var rightCols []carried
	for j, col := range right.Columns {
		if sharedKey[col] {
			continue
		}
		name := col
		if left.HasColumn(col) {
			name = col + suffix
		}
		rightCols = append(rightCols, carried{srcIdx: j, name: name})
	}

	outCols := append([]string{}, left.Columns...)
	for _, c := range rightCols {
		outCols = append(outCols, c.name)
	}
	out := table.New(outCols...)

	index := buildKeyIndex(right, rightOn)

	for i := range left.Rows {
		key := rowKey(left, i, leftOn)
		matches := index[key]

		if len(matches) == 0 {
			row := make([]string, 0, len(outCols))
			row = append(row, left.Rows[i]...)
			for range rightCols {
				row = append(row, "")
			}
			out.AppendRow(row...)
			continue
		}

		for _, m := range matches {
			row := make([]string, 0, len(outCols))
			row = append(row, left.Rows[i]...)
			for _, c := range rightCols {
				cell := ""
				if c.srcIdx < len(right.Rows[m]) {
					cell = right.Rows[m][c.srcIdx]
				}
				row = append(row, cell)
			}
			out.AppendRow(row...)
		}
	}
	return out
}

func buildKeyIndex(t *table.Table, on []string) map[string][]int {
	index := make(map[string][]int, t.NumRows())
	for i := range t.Rows {
		key := rowKey(t, i, on)
		index[key] = append(index[key], i)
	}
	return index
}

func rowKey(t *table.Table, i int, on []string) string {
	parts := make([]string, len(on))
	for j, col := range on {
		parts[j] = t.Get(i, col)
	}
	return strings.Join(parts, "\x1f")
}

// fillCodes backfills empty code cells from the codings side and normalizes
// numeric-looking codes: whole numbers lose their fractional suffix, other
// values pass through unchanged.
func fillCodes(t *table.Table) {
	if !t.HasColumn("code") {
		t.AddColumn("code")
	}
	fromCoding := t.HasColumn("code" + codingSuffix)

	for i := range t.Rows {
		code := t.Get(i, "code")
		if code == "" && fromCoding {
			code = t.Get(i, "code"+codingSuffix)
		}
		t.Set(i, "code", NormalizeCode(code))
	}
}

// NormalizeCode renders whole-number codes as integers ("5.0" -> "5"),
// keeps fractional values as floats ("5.5" -> "5.5"), and passes
// non-numeric values through unchanged.
func NormalizeCode(v string) string {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return v
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// resolveDictColumns resolves dictionary-suffixed columns: when the bare
// column already exists the phenotype side wins and the suffixed copy is
// dropped, otherwise the suffixed column is renamed to its bare name.
func resolveDictColumns(t *table.Table) {
	var toDrop []string
	for _, col := range append([]string{}, t.Columns...) {
		if !strings.HasSuffix(col, dictSuffix) {
			continue
		}
		base := strings.TrimSuffix(col, dictSuffix)
		if t.HasColumn(base) {
			toDrop = append(toDrop, col)
		} else {
			t.RenameColumn(col, base)
		}
	}
	t.DropColumns(toDrop...)
}
