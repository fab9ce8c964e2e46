package fetch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/meyerlab/phenotool/internal/dx"
)

// fakeRunner simulates the dx tool: on download it writes content to the
// destination path unless fail is set.
type fakeRunner struct {
	calls   [][]string
	content string
	fail    bool
	noFile  bool
}

func (r *fakeRunner) Run(name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	if r.fail {
		return nil, fmt.Errorf("dx failed: simulated")
	}
	if args[0] == "download" && !r.noFile {
		dest := args[3] // download <id> -o <dest> --overwrite
		if err := os.WriteFile(dest, []byte(r.content), 0644); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func newTestFetcher(t *testing.T, runner *fakeRunner) (*Fetcher, string, string) {
	t.Helper()
	projectRoot := filepath.Join(t.TempDir(), "project")
	cacheRoot := filepath.Join(t.TempDir(), "cache")
	if err := os.MkdirAll(projectRoot, 0755); err != nil {
		t.Fatal(err)
	}
	f := &Fetcher{
		DX:          &dx.Client{Runner: runner, Tool: "dx"},
		ProjectRoot: projectRoot,
		CacheRoot:   cacheRoot,
	}
	return f, projectRoot, cacheRoot
}

func TestGetUsesExistingTarget(t *testing.T) {
	runner := &fakeRunner{}
	f, projectRoot, _ := newTestFetcher(t, runner)

	target := filepath.Join(projectRoot, "data", "codings.csv")
	os.MkdirAll(filepath.Dir(target), 0755)
	if err := os.WriteFile(target, []byte("coding_name,code\n"), 0644); err != nil {
		t.Fatal(err)
	}

	// idempotence: two calls, same path, zero downloads
	for i := 0; i < 2; i++ {
		got, err := f.Get(target, "file-123", "codings", false)
		if err != nil {
			t.Fatalf("Get failed on call %d: %v", i+1, err)
		}
		if got != target {
			t.Errorf("Get = %q, want %q", got, target)
		}
	}
	if len(runner.calls) != 0 {
		t.Errorf("expected no dx calls, got %d", len(runner.calls))
	}
}

func TestGetDownloadsToRerootedFallback(t *testing.T) {
	runner := &fakeRunner{content: "a,b\n1,2\n"}
	f, projectRoot, cacheRoot := newTestFetcher(t, runner)

	target := filepath.Join(projectRoot, "data", "raw", "pheno.csv")
	got, err := f.Get(target, "file-123", "phenotypes", false)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	want := filepath.Join(cacheRoot, "data", "raw", "pheno.csv")
	if got != want {
		t.Errorf("Get = %q, want re-rooted fallback %q", got, want)
	}
	if _, err := os.Stat(got); err != nil {
		t.Errorf("downloaded file missing: %v", err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("expected 1 dx call, got %d", len(runner.calls))
	}
}

func TestGetFlattensPathsOutsideProjectRoot(t *testing.T) {
	runner := &fakeRunner{content: "x\n"}
	f, _, cacheRoot := newTestFetcher(t, runner)

	target := filepath.Join(t.TempDir(), "elsewhere", "dict.csv")
	got, err := f.Get(target, "file-456", "dictionary", false)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	want := filepath.Join(cacheRoot, "dict.csv")
	if got != want {
		t.Errorf("Get = %q, want flat fallback %q", got, want)
	}
}

func TestGetRejectsInvalidJSONTarget(t *testing.T) {
	runner := &fakeRunner{content: `{"ok": true}`}
	f, projectRoot, cacheRoot := newTestFetcher(t, runner)

	target := filepath.Join(projectRoot, "helpers", "config.json")
	os.MkdirAll(filepath.Dir(target), 0755)
	if err := os.WriteFile(target, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := f.Get(target, "file-789", "config", true)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	want := filepath.Join(cacheRoot, "helpers", "config.json")
	if got != want {
		t.Errorf("Get = %q, want fallback %q", got, want)
	}
	if len(runner.calls) != 1 {
		t.Errorf("expected a download after invalid JSON, got %d calls", len(runner.calls))
	}
}

func TestGetReusesValidFallback(t *testing.T) {
	runner := &fakeRunner{}
	f, projectRoot, cacheRoot := newTestFetcher(t, runner)

	target := filepath.Join(projectRoot, "data", "codings.csv")
	fallback := filepath.Join(cacheRoot, "data", "codings.csv")
	os.MkdirAll(filepath.Dir(fallback), 0755)
	if err := os.WriteFile(fallback, []byte("coding_name\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := f.Get(target, "file-123", "codings", false)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != fallback {
		t.Errorf("Get = %q, want fallback %q", got, fallback)
	}
	if len(runner.calls) != 0 {
		t.Errorf("expected no download, got %d calls", len(runner.calls))
	}
}

func TestGetFailsWhenDownloadFails(t *testing.T) {
	runner := &fakeRunner{fail: true}
	f, projectRoot, _ := newTestFetcher(t, runner)

	target := filepath.Join(projectRoot, "data", "missing.csv")
	_, err := f.Get(target, "file-000", "missing file", false)

	var fetchErr *Error
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *fetch.Error, got %v", err)
	}
	if fetchErr.RemoteID != "file-000" {
		t.Errorf("RemoteID = %q, want file-000", fetchErr.RemoteID)
	}
}

func TestGetFailsWhenDownloadProducesNoFile(t *testing.T) {
	runner := &fakeRunner{noFile: true}
	f, projectRoot, _ := newTestFetcher(t, runner)

	target := filepath.Join(projectRoot, "data", "missing.csv")
	_, err := f.Get(target, "file-000", "missing file", false)

	var fetchErr *Error
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *fetch.Error, got %v", err)
	}
}

func TestOverwriteAskKeepsFileWhenDeclined(t *testing.T) {
	runner := &fakeRunner{content: "new"}
	f, projectRoot, cacheRoot := newTestFetcher(t, runner)
	f.Overwrite = OverwriteAsk
	f.Prompt = func(string) bool { return false }

	// fallback exists but is invalid JSON, so validation pushes to download
	fallback := filepath.Join(cacheRoot, "helpers", "config.json")
	os.MkdirAll(filepath.Dir(fallback), 0755)
	if err := os.WriteFile(fallback, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(projectRoot, "helpers", "config.json")
	got, err := f.Get(target, "file-789", "config", true)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != fallback {
		t.Errorf("Get = %q, want existing fallback %q", got, fallback)
	}
	if len(runner.calls) != 0 {
		t.Errorf("declined overwrite must not download, got %d calls", len(runner.calls))
	}

	data, _ := os.ReadFile(fallback)
	if string(data) != "{broken" {
		t.Errorf("existing file was overwritten: %q", data)
	}
}

func TestOverwriteAskDownloadsWhenConfirmed(t *testing.T) {
	runner := &fakeRunner{content: `{"ok": true}`}
	f, projectRoot, cacheRoot := newTestFetcher(t, runner)
	f.Overwrite = OverwriteAsk
	f.Prompt = func(string) bool { return true }

	fallback := filepath.Join(cacheRoot, "helpers", "config.json")
	os.MkdirAll(filepath.Dir(fallback), 0755)
	if err := os.WriteFile(fallback, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(projectRoot, "helpers", "config.json")
	got, err := f.Get(target, "file-789", "config", true)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	data, _ := os.ReadFile(got)
	if string(data) != `{"ok": true}` {
		t.Errorf("file not overwritten, content %q", data)
	}
}
