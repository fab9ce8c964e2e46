// Package config loads and resolves the shared project configuration: a
// JSON document that maps logical file names and cohort keys onto remote
// platform identifiers and project-relative paths.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/meyerlab/phenotool/internal/fetch"
	"github.com/meyerlab/phenotool/internal/util"
)

const (
	// DefaultFilename is the config document's name in the project helpers dir.
	DefaultFilename = "config.json"

	// DefaultHelpersDir is where the document lives under the project mount.
	DefaultHelpersDir = "helpers"
)

// FileDescriptor locates one logical file: a dotted key into BASE_PATHS,
// a file name, and the remote identifier used when the file must be fetched.
type FileDescriptor struct {
	Base     string `json:"BASE"`
	Filename string `json:"FILENAME"`
	ID       string `json:"ID"`
}

// FileEntry is either a single descriptor or a named group of descriptors
// (e.g. PHENOTYPE_FILES maps phenotype keys to descriptors).
type FileEntry struct {
	Desc  *FileDescriptor
	Group map[string]FileDescriptor
}

// UnmarshalJSON accepts both descriptor objects and one level of grouping.
func (e *FileEntry) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	if _, ok := probe["FILENAME"]; ok {
		var d FileDescriptor
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		e.Desc = &d
		return nil
	}

	var g map[string]FileDescriptor
	if err := json.Unmarshal(data, &g); err != nil {
		return err
	}
	e.Group = g
	return nil
}

// Config is the parsed project configuration. Immutable after Load.
type Config struct {
	BasePaths  map[string]interface{} `json:"BASE_PATHS"`
	ProjectDir string                 `json:"PROJECT_DIR_PATH"`
	Files      map[string]FileEntry   `json:"FILES"`
	Cohorts    map[string]string      `json:"COHORTS"`
}

// LoadOptions controls where the configuration comes from. Zero values fall
// back to the conventional platform locations.
type LoadOptions struct {
	Path     string // local path of the config document
	RemoteID string // remote identifier used when Path is missing or invalid
	Fetcher  *fetch.Fetcher
}

// Load resolves the configuration document (fetching it when the local copy
// is missing or not valid JSON), parses it, and validates every file
// descriptor in a single pass.
func Load(opts LoadOptions) (*Config, error) {
	if opts.Fetcher == nil {
		return nil, &LoadError{Path: opts.Path, Reason: "no fetcher provided"}
	}
	if opts.Path == "" {
		opts.Path = filepath.Join(opts.Fetcher.ProjectRoot, DefaultHelpersDir, DefaultFilename)
	}

	path, err := opts.Fetcher.Get(opts.Path, opts.RemoteID, "project config", true)
	if err != nil {
		return nil, &LoadError{Path: opts.Path, Reason: "fetch failed", Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "read failed", Err: err}
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &LoadError{Path: path, Reason: "invalid JSON", Err: err}
	}

	if err := cfg.validate(); err != nil {
		return nil, &LoadError{Path: path, Reason: "invalid configuration", Err: err}
	}

	util.DebugLog("Loaded project config from %s", path)
	return &cfg, nil
}

// Parse decodes and validates a configuration document already on disk.
func Parse(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "read failed", Err: err}
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &LoadError{Path: path, Reason: "invalid JSON", Err: err}
	}
	if err := cfg.validate(); err != nil {
		return nil, &LoadError{Path: path, Reason: "invalid configuration", Err: err}
	}
	return &cfg, nil
}

// validate walks every descriptor's BASE through BASE_PATHS so missing keys
// surface at load time instead of deep in a pipeline stage.
func (c *Config) validate() error {
	if c.ProjectDir == "" {
		return fmt.Errorf("PROJECT_DIR_PATH is empty")
	}

	var problems []string
	check := func(name string, d FileDescriptor) {
		if d.Filename == "" {
			problems = append(problems, fmt.Sprintf("%s: empty FILENAME", name))
			return
		}
		if _, err := c.walkBase(d.Base); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", name, err))
		}
	}

	for name, entry := range c.Files {
		if entry.Desc != nil {
			check(name, *entry.Desc)
			continue
		}
		for key, d := range entry.Group {
			check(name+"."+key, d)
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("bad file descriptors: %s", strings.Join(problems, "; "))
	}
	return nil
}

// walkBase follows a dotted key through the BASE_PATHS tree to a string leaf.
func (c *Config) walkBase(base string) (string, error) {
	node := interface{}(mapToAny(c.BasePaths))
	for _, part := range strings.Split(base, ".") {
		m, ok := node.(map[string]interface{})
		if !ok {
			return "", &PathError{Base: base, Segment: part}
		}
		node, ok = m[part]
		if !ok {
			return "", &PathError{Base: base, Segment: part}
		}
	}
	leaf, ok := node.(string)
	if !ok {
		return "", &PathError{Base: base, Segment: base}
	}
	return leaf, nil
}

func mapToAny(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

// ResolvePath maps a descriptor to its concrete path:
// PROJECT_DIR_PATH / BASE_PATHS[BASE...] / FILENAME. Pure function of
// (config, descriptor).
func (c *Config) ResolvePath(d FileDescriptor) (string, error) {
	base, err := c.walkBase(d.Base)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.ProjectDir, base, d.Filename), nil
}

// File returns the descriptor registered under a top-level logical name, or
// a dotted GROUP.KEY name.
func (c *Config) File(name string) (FileDescriptor, error) {
	if group, key, ok := strings.Cut(name, "."); ok {
		return c.FileIn(group, key)
	}
	entry, ok := c.Files[name]
	if !ok || entry.Desc == nil {
		return FileDescriptor{}, fmt.Errorf("no file %q in configuration", name)
	}
	return *entry.Desc, nil
}

// FileIn returns a descriptor from a named group (e.g. PHENOTYPE_FILES).
func (c *Config) FileIn(group, key string) (FileDescriptor, error) {
	entry, ok := c.Files[group]
	if !ok || entry.Group == nil {
		return FileDescriptor{}, fmt.Errorf("no file group %q in configuration", group)
	}
	d, ok := entry.Group[key]
	if !ok {
		return FileDescriptor{}, fmt.Errorf("no file %q in group %q", key, group)
	}
	return d, nil
}

// Cohort maps a cohort key to its dataset identifier. A missing key is a
// *CohortError whose message enumerates the available keys.
func (c *Config) Cohort(key string) (string, error) {
	id, ok := c.Cohorts[key]
	if !ok {
		available := make([]string, 0, len(c.Cohorts))
		for k := range c.Cohorts {
			available = append(available, k)
		}
		sort.Strings(available)
		return "", &CohortError{Key: key, Available: available}
	}
	return id, nil
}
