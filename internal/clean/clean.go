// Package clean derives recruitment age and applies the standard
// participant exclusion battery to a raw phenotype table.
package clean

import (
	"strconv"
	"strings"
	"time"

	"github.com/meyerlab/phenotool/internal/table"
	"github.com/meyerlab/phenotool/internal/util"
)

// Source columns for age derivation and the exclusion filters.
const (
	colRegistrationYear  = "participant.registration_year"
	colRegistrationMonth = "participant.registration_month"
	colBirthYear         = "participant.birth_year"
	colBirthMonth        = "participant.birth_month"
	colSex               = "participant.demog_sex_2_1"
	colEthnicity         = "participant.demog_ethnicity_1_1"
	colIncome            = "questionnaire.housing_income_1_1"
	colAge               = "age"
)

// Derived columns.
const (
	colRegistrationDate = "registration_date"
	colBirthDate        = "birth_date"
	colAgeAtRecruitment = "age_at_recruitment"
)

const daysPerYear = 365.25

// DeriveAgeAtRecruitment adds registration_date, birth_date and
// age_at_recruitment columns when all four source year/month columns are
// present; otherwise the table is returned unchanged with a warning.
// Invalid year/month combinations become missing dates, not errors.
func DeriveAgeAtRecruitment(t *table.Table) *table.Table {
	required := []string{colRegistrationYear, colRegistrationMonth, colBirthYear, colBirthMonth}
	if !t.HasColumns(required...) {
		util.WarnLog("Skipping age derivation: required columns not found")
		return t
	}

	util.InfoLog("Deriving age from birth and registration dates")
	t.AddColumn(colRegistrationDate)
	t.AddColumn(colBirthDate)
	t.AddColumn(colAgeAtRecruitment)

	for i := range t.Rows {
		reg, regOK := monthStart(t.Get(i, colRegistrationYear), t.Get(i, colRegistrationMonth))
		birth, birthOK := monthStart(t.Get(i, colBirthYear), t.Get(i, colBirthMonth))

		if regOK {
			t.Set(i, colRegistrationDate, reg.Format("2006-01-02"))
		}
		if birthOK {
			t.Set(i, colBirthDate, birth.Format("2006-01-02"))
		}
		if regOK && birthOK {
			days := reg.Sub(birth).Hours() / 24
			t.Set(i, colAgeAtRecruitment, strconv.FormatFloat(days/daysPerYear, 'g', -1, 64))
		}
	}
	return t
}

// monthStart builds the first day of a year/month pair read from table
// cells. Unparsable or out-of-range values yield a missing date.
func monthStart(yearCell, monthCell string) (time.Time, bool) {
	year, ok := parseIntCell(yearCell)
	if !ok {
		return time.Time{}, false
	}
	month, ok := parseIntCell(monthCell)
	if !ok || month < 1 || month > 12 || year < 1 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
}

// parseIntCell accepts both integer and float-formatted cells ("6", "6.0").
func parseIntCell(cell string) (int, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(cell); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// ApplyExclusions removes rows matching the standard exclusion battery.
// Each filter applies only when its source column exists; applicable
// filters combine with AND. With no applicable columns the table passes
// through unchanged, with a warning.
func ApplyExclusions(t *table.Table) *table.Table {
	util.InfoLog("Applying exclusion filters")

	var conditions []func(i int) bool

	if t.HasColumn(colBirthYear) {
		conditions = append(conditions, func(i int) bool {
			return !cellEquals(t.Get(i, colBirthYear), -999)
		})
	}
	if t.HasColumn(colSex) {
		conditions = append(conditions,
			func(i int) bool { return !cellIn(t.Get(i, colSex), 3, -3) },
			func(i int) bool { return t.Get(i, colSex) != "" },
		)
	}
	if t.HasColumn(colEthnicity) {
		conditions = append(conditions, func(i int) bool {
			return !cellIn(t.Get(i, colEthnicity), 19, -3)
		})
	}
	if t.HasColumn(colIncome) {
		conditions = append(conditions,
			func(i int) bool { return !cellIn(t.Get(i, colIncome), -1, -3) },
			func(i int) bool { return t.Get(i, colIncome) != "" },
		)
	}
	if t.HasColumn(colAge) {
		// literal "age" column only; age_at_recruitment is a distinct output
		conditions = append(conditions, func(i int) bool {
			age, err := strconv.ParseFloat(strings.TrimSpace(t.Get(i, colAge)), 64)
			return err == nil && age >= 18
		})
	}

	if len(conditions) == 0 {
		util.WarnLog("No applicable exclusions applied")
		return t
	}

	before := t.NumRows()
	out := t.Filter(func(i int) bool {
		for _, cond := range conditions {
			if !cond(i) {
				return false
			}
		}
		return true
	})
	util.InfoLog("Exclusions removed %d of %d rows", before-out.NumRows(), before)
	return out
}

func cellEquals(cell string, value float64) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	return err == nil && f == value
}

func cellIn(cell string, values ...float64) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return false
	}
	for _, v := range values {
		if f == v {
			return true
		}
	}
	return false
}

// Process runs the cleaning stage end to end: read CSV, derive age, apply
// exclusions, write CSV. Returns (rows in, rows out).
func Process(inputPath, outputPath string) (int, int, error) {
	t, err := table.ReadCSV(inputPath)
	if err != nil {
		return 0, 0, err
	}
	before := t.NumRows()

	t = DeriveAgeAtRecruitment(t)
	t = ApplyExclusions(t)

	if err := t.WriteCSV(outputPath); err != nil {
		return 0, 0, err
	}
	return before, t.NumRows(), nil
}
