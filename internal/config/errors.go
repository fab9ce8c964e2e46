package config

import (
	"fmt"
	"strings"
)

// LoadError means the configuration could not be loaded, even after a fetch
// attempt. Fatal for the invoking stage.
type LoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to load config from %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("failed to load config from %s: %s", e.Path, e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }

// PathError means a BASE key did not resolve through BASE_PATHS.
type PathError struct {
	Base    string
	Segment string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("base path %q: segment %q not found in BASE_PATHS", e.Base, e.Segment)
}

// CohortError means a requested cohort key is not configured.
type CohortError struct {
	Key       string
	Available []string
}

func (e *CohortError) Error() string {
	return fmt.Sprintf("cohort key %q not found; available keys: %s", e.Key, strings.Join(e.Available, ", "))
}
