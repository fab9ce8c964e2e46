// Package fetch resolves configured files to working local paths: it uses
// an existing copy when valid, falls back to a project-relative cache
// location, and downloads through the platform CLI as a last resort.
package fetch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/meyerlab/phenotool/internal/dx"
	"github.com/meyerlab/phenotool/internal/util"
	"github.com/schollz/progressbar/v3"
)

// DefaultProjectRoot is where the remote project is mounted on workers.
const DefaultProjectRoot = "/mnt/project"

// OverwritePolicy controls what happens when a download would replace an
// existing cache file.
type OverwritePolicy int

const (
	// OverwriteAlways replaces the cache file without asking.
	OverwriteAlways OverwritePolicy = iota
	// OverwriteAsk prompts before replacing; without a terminal the
	// existing file is kept.
	OverwriteAsk
)

// Error means the download command failed or did not produce the file.
type Error struct {
	Description string
	RemoteID    string
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to download %s (%s): %v", e.Description, e.RemoteID, e.Err)
	}
	return fmt.Sprintf("failed to download %s (%s)", e.Description, e.RemoteID)
}

func (e *Error) Unwrap() error { return e.Err }

// Fetcher resolves files with a local-cache-then-download strategy.
type Fetcher struct {
	DX          *dx.Client
	ProjectRoot string // remote project mount, default /mnt/project
	CacheRoot   string // local cache directory, default "."
	Ledger      *Ledger
	Overwrite   OverwritePolicy

	// Prompt asks for overwrite confirmation in OverwriteAsk mode.
	// Defaults to a terminal prompt; tests replace it.
	Prompt func(message string) bool
}

// New returns a Fetcher with the conventional roots and a real dx client.
func New() *Fetcher {
	return &Fetcher{
		DX:          dx.NewClient(),
		ProjectRoot: DefaultProjectRoot,
		CacheRoot:   ".",
	}
}

func (f *Fetcher) projectRoot() string {
	if f.ProjectRoot == "" {
		return DefaultProjectRoot
	}
	return f.ProjectRoot
}

func (f *Fetcher) cacheRoot() string {
	if f.CacheRoot == "" {
		return "."
	}
	return f.CacheRoot
}

// Get returns a usable local path for the described file.
//
// Resolution order: the target path itself, then the cache fallback, then a
// download into the fallback. With validateJSON the file must also parse as
// JSON to count as usable. Calling Get again with a valid target is a no-op.
func (f *Fetcher) Get(target, remoteID, description string, validateJSON bool) (string, error) {
	if usable(target, validateJSON) {
		util.InfoLog("Using existing %s: %s", description, target)
		f.recordHit(remoteID, target)
		return target, nil
	}

	fallback := f.fallbackPath(target)
	if fallback != target && usable(fallback, validateJSON) {
		util.InfoLog("Using existing local fallback for %s: %s", description, fallback)
		f.recordHit(remoteID, fallback)
		return fallback, nil
	}

	if err := os.MkdirAll(filepath.Dir(fallback), 0755); err != nil {
		return "", &Error{Description: description, RemoteID: remoteID, Err: err}
	}

	if f.Overwrite == OverwriteAsk {
		if _, err := os.Stat(fallback); err == nil {
			if !f.confirmOverwrite(fallback) {
				util.InfoLog("Skipping download, keeping existing local file: %s", fallback)
				return fallback, nil
			}
		}
	}

	util.InfoLog("%s not found or invalid, downloading to %s", description, fallback)
	if err := f.download(remoteID, fallback, description); err != nil {
		return "", &Error{Description: description, RemoteID: remoteID, Err: err}
	}

	info, err := os.Stat(fallback)
	if err != nil {
		return "", &Error{Description: description, RemoteID: remoteID, Err: fmt.Errorf("download produced no file")}
	}

	util.SuccessLog("Downloaded %s (%s) to %s", description, humanize.Bytes(uint64(info.Size())), fallback)
	f.recordDownload(remoteID, fallback, info.Size())
	return fallback, nil
}

// fallbackPath re-roots a project path into the local cache, or flattens to
// the bare filename when the target is not under the project root.
func (f *Fetcher) fallbackPath(target string) string {
	rel, err := filepath.Rel(f.projectRoot(), target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = filepath.Base(target)
	}
	return filepath.Join(f.cacheRoot(), rel)
}

func (f *Fetcher) confirmOverwrite(path string) bool {
	prompt := f.Prompt
	if prompt == nil {
		prompt = func(message string) bool {
			if !util.IsTerminal(os.Stdin.Fd()) {
				util.WarnLog("Not a terminal, keeping existing file: %s", path)
				return false
			}
			return util.Confirm(message)
		}
	}
	return prompt(fmt.Sprintf("Local file '%s' exists. Overwrite?", path))
}

// download runs dx download with a spinner while the command blocks.
func (f *Fetcher) download(remoteID, dest, description string) error {
	done := make(chan error, 1)
	go func() {
		done <- f.DX.Download(remoteID, dest)
	}()

	var bar *progressbar.ProgressBar
	if util.IsTerminal(os.Stderr.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Downloading "+description),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			if bar != nil {
				bar.Finish()
			}
			return err
		case <-ticker.C:
			if bar != nil {
				bar.Add(1)
			}
		}
	}
}

func (f *Fetcher) recordHit(remoteID, path string) {
	if f.Ledger == nil || remoteID == "" {
		return
	}
	if err := f.Ledger.Touch(remoteID, path); err != nil {
		util.DebugLog("Ledger update failed for %s: %v", remoteID, err)
	}
}

func (f *Fetcher) recordDownload(remoteID, path string, size int64) {
	if f.Ledger == nil || remoteID == "" {
		return
	}
	if err := f.Ledger.RecordDownload(remoteID, path, size); err != nil {
		util.WarnLog("Failed to record download in ledger: %v", err)
	}
}

// usable reports whether the file exists and, when required, parses as JSON.
func usable(path string, validateJSON bool) bool {
	if path == "" {
		return false
	}
	if _, err := os.Stat(path); err != nil {
		return false
	}
	if !validateJSON {
		return true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		util.WarnLog("Invalid JSON in %s: %v", path, err)
		return false
	}
	return true
}
