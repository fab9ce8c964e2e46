package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleConfig = `{
	"PROJECT_DIR_PATH": "/mnt/project",
	"BASE_PATHS": {
		"DATA": {"RAW": "data/raw", "META": "data/meta"},
		"HELPERS": "helpers"
	},
	"FILES": {
		"CODINGS": {"BASE": "DATA.META", "FILENAME": "codings.csv", "ID": "file-001"},
		"DATA_DICT": {"BASE": "DATA.META", "FILENAME": "data_dict.csv", "ID": "file-002"},
		"PHENOTYPE_FILES": {
			"PILOT_PHENOTYPES": {"BASE": "DATA.RAW", "FILENAME": "pilot_phenotypes.csv", "ID": "file-003"}
		}
	},
	"COHORTS": {
		"TEST_COHORT": "project-1:record-1",
		"FULL_COHORT": "project-1:record-2"
	}
}`

func writeSampleConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestParseAndValidate(t *testing.T) {
	cfg, err := Parse(writeSampleConfig(t))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.ProjectDir != "/mnt/project" {
		t.Errorf("ProjectDir = %q, want /mnt/project", cfg.ProjectDir)
	}
	if len(cfg.Cohorts) != 2 {
		t.Errorf("expected 2 cohorts, got %d", len(cfg.Cohorts))
	}
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Parse(path)
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *LoadError, got %v", err)
	}
}

func TestParseRejectsBadDescriptor(t *testing.T) {
	bad := `{
		"PROJECT_DIR_PATH": "/mnt/project",
		"BASE_PATHS": {"DATA": {"RAW": "data/raw"}},
		"FILES": {"CODINGS": {"BASE": "DATA.MISSING", "FILENAME": "codings.csv", "ID": "file-001"}},
		"COHORTS": {}
	}`
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(bad), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Parse(path); err == nil {
		t.Fatal("expected validation error for unresolvable BASE, got nil")
	}
}

func TestResolvePath(t *testing.T) {
	cfg, err := Parse(writeSampleConfig(t))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	testCases := []struct {
		name     string
		desc     FileDescriptor
		expected string
		wantErr  bool
	}{
		{
			name:     "nested base",
			desc:     FileDescriptor{Base: "DATA.META", Filename: "codings.csv"},
			expected: "/mnt/project/data/meta/codings.csv",
		},
		{
			name:     "top-level base",
			desc:     FileDescriptor{Base: "HELPERS", Filename: "config.json"},
			expected: "/mnt/project/helpers/config.json",
		},
		{
			name:    "missing segment",
			desc:    FileDescriptor{Base: "DATA.NOPE", Filename: "x.csv"},
			wantErr: true,
		},
		{
			name:    "missing root",
			desc:    FileDescriptor{Base: "OTHER.RAW", Filename: "x.csv"},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := cfg.ResolvePath(tc.desc)
			if tc.wantErr {
				var pathErr *PathError
				if !errors.As(err, &pathErr) {
					t.Fatalf("expected *PathError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolvePath failed: %v", err)
			}
			if got != tc.expected {
				t.Errorf("ResolvePath = %q, want %q", got, tc.expected)
			}
		})
	}
}

func TestResolvePathIsPure(t *testing.T) {
	cfg, err := Parse(writeSampleConfig(t))
	if err != nil {
		t.Fatal(err)
	}

	desc := FileDescriptor{Base: "DATA.RAW", Filename: "pilot_phenotypes.csv"}
	first, err := cfg.ResolvePath(desc)
	if err != nil {
		t.Fatal(err)
	}
	second, err := cfg.ResolvePath(desc)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("ResolvePath not deterministic: %q vs %q", first, second)
	}
}

func TestFileLookup(t *testing.T) {
	cfg, err := Parse(writeSampleConfig(t))
	if err != nil {
		t.Fatal(err)
	}

	d, err := cfg.File("CODINGS")
	if err != nil {
		t.Fatalf("File(CODINGS) failed: %v", err)
	}
	if d.ID != "file-001" {
		t.Errorf("CODINGS ID = %q, want file-001", d.ID)
	}

	d, err = cfg.File("PHENOTYPE_FILES.PILOT_PHENOTYPES")
	if err != nil {
		t.Fatalf("dotted lookup failed: %v", err)
	}
	if d.Filename != "pilot_phenotypes.csv" {
		t.Errorf("Filename = %q, want pilot_phenotypes.csv", d.Filename)
	}

	if _, err := cfg.File("NOT_A_FILE"); err == nil {
		t.Error("expected error for unknown logical name")
	}
}

func TestCohortLookup(t *testing.T) {
	cfg, err := Parse(writeSampleConfig(t))
	if err != nil {
		t.Fatal(err)
	}

	id, err := cfg.Cohort("TEST_COHORT")
	if err != nil {
		t.Fatalf("Cohort failed: %v", err)
	}
	if id != "project-1:record-1" {
		t.Errorf("Cohort = %q, want project-1:record-1", id)
	}

	_, err = cfg.Cohort("MISSING")
	var cohortErr *CohortError
	if !errors.As(err, &cohortErr) {
		t.Fatalf("expected *CohortError, got %v", err)
	}
	// message must enumerate the available keys
	msg := cohortErr.Error()
	for _, key := range []string{"FULL_COHORT", "TEST_COHORT"} {
		if !strings.Contains(msg, key) {
			t.Errorf("error message %q missing key %s", msg, key)
		}
	}
}
