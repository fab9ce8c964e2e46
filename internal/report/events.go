// Package report writes a JSONL audit trail of pipeline stage events.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventFetch   EventType = "fetch"
	EventExtract EventType = "extract"
	EventMerge   EventType = "merge"
	EventClean   EventType = "clean"
	EventUpload  EventType = "upload"
	EventError   EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single event in the pipeline
type Event struct {
	Timestamp time.Time  `json:"ts"`
	Level     EventLevel `json:"level"`
	Event     EventType  `json:"event"`
	Input     string     `json:"input,omitempty"`
	Output    string     `json:"output,omitempty"`
	RemoteID  string     `json:"remote_id,omitempty"`
	DatasetID string     `json:"dataset_id,omitempty"`
	Folder    string     `json:"folder,omitempty"`
	Rows      int        `json:"rows,omitempty"`
	RowsIn    int        `json:"rows_in,omitempty"`
	RowsOut   int        `json:"rows_out,omitempty"`
	Bytes     int64      `json:"bytes,omitempty"`
	Cached    bool       `json:"cached,omitempty"`
	Duration  int64      `json:"duration_ms,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
}

// NewEventLogger creates an event logger writing under outputDir. Events
// below minLevel are dropped.
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	path := filepath.Join(outputDir, fmt.Sprintf("events-%s.jsonl", timestamp))

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// NullLogger returns a logger that discards everything.
func NullLogger() *EventLogger {
	return &EventLogger{}
}

// Log writes a single event if it meets the minimum level.
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil
	}
	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.encoder.Encode(event)
}

// LogFetch records a file resolution (download or cache hit).
func (l *EventLogger) LogFetch(path, remoteID string, bytes int64, cached bool) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventFetch,
		Output:   path,
		RemoteID: remoteID,
		Bytes:    bytes,
		Cached:   cached,
	})
}

// LogExtract records one extraction run.
func (l *EventLogger) LogExtract(datasetID, output string, rows int, duration time.Duration) error {
	return l.Log(&Event{
		Level:     LevelInfo,
		Event:     EventExtract,
		DatasetID: datasetID,
		Output:    output,
		Rows:      rows,
		Duration:  duration.Milliseconds(),
	})
}

// LogMerge records a metadata merge.
func (l *EventLogger) LogMerge(input, output string, rows int, duration time.Duration) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventMerge,
		Input:    input,
		Output:   output,
		Rows:     rows,
		Duration: duration.Milliseconds(),
	})
}

// LogClean records a cleaning run with before/after row counts.
func (l *EventLogger) LogClean(input, output string, rowsIn, rowsOut int, duration time.Duration) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventClean,
		Input:    input,
		Output:   output,
		RowsIn:   rowsIn,
		RowsOut:  rowsOut,
		Duration: duration.Milliseconds(),
	})
}

// LogUpload records a result upload.
func (l *EventLogger) LogUpload(input, folder string) error {
	return l.Log(&Event{
		Level:  LevelInfo,
		Event:  EventUpload,
		Input:  input,
		Folder: folder,
	})
}

// LogError records a stage failure.
func (l *EventLogger) LogError(event EventType, input string, err error) error {
	e := &Event{
		Level: LevelError,
		Event: EventError,
		Input: input,
	}
	if event != "" {
		e.Event = event
	}
	if err != nil {
		e.Error = err.Error()
	}
	e.Level = LevelError
	return l.Log(e)
}

// Path returns the event log file path, or "" for a null logger.
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close flushes and closes the log file.
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
