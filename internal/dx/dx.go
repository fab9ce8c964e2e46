// Package dx wraps the DNAnexus command-line tool. Every remote interaction
// in the pipeline (file download, dataset extraction, uploads) goes through
// a Client so tests can substitute a fake Runner.
package dx

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// DefaultTool is the platform CLI binary name.
const DefaultTool = "dx"

// ProjectContextEnv holds the active project identifier on platform workers.
const ProjectContextEnv = "DX_PROJECT_CONTEXT_ID"

// Runner executes an external command and returns its stdout.
type Runner interface {
	Run(name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes the command, surfacing stderr in the error on failure
func (ExecRunner) Run(name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("%s not found in PATH: %w", name, err)
	}

	cmd := exec.Command(name, args...)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("%s failed: %s", name, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%s execution failed: %w", name, err)
	}

	return output, nil
}

// Client issues dx subcommands through a Runner.
type Client struct {
	Runner Runner
	Tool   string
}

// NewClient returns a Client backed by the real dx binary.
func NewClient() *Client {
	return &Client{Runner: ExecRunner{}, Tool: DefaultTool}
}

func (c *Client) tool() string {
	if c.Tool == "" {
		return DefaultTool
	}
	return c.Tool
}

// Download fetches a remote file by identifier to dest, overwriting any
// existing file at dest.
func (c *Client) Download(fileID, dest string) error {
	_, err := c.Runner.Run(c.tool(), "download", fileID, "-o", dest, "--overwrite")
	return err
}

// ExtractOptions describes one extract_dataset invocation.
type ExtractOptions struct {
	DatasetID string
	Fields    string // comma-joined entity.name list
	Output    string
	Delimiter string // ignored in SQL mode
	SQL       bool
}

// ExtractDataset runs dx extract_dataset. In SQL mode the command writes the
// generated query text to Output; otherwise it writes a delimited file.
func (c *Client) ExtractDataset(opts ExtractOptions) error {
	args := []string{"extract_dataset", opts.DatasetID, "--fields", opts.Fields, "--output", opts.Output}
	if opts.SQL {
		args = append(args, "--sql")
	} else {
		delim := opts.Delimiter
		if delim == "" {
			delim = ","
		}
		args = append(args, "--delimiter", delim)
	}
	_, err := c.Runner.Run(c.tool(), args...)
	return err
}

// Mkdir creates a folder in the remote project, with parents.
func (c *Client) Mkdir(folder string) error {
	_, err := c.Runner.Run(c.tool(), "mkdir", "-p", folder)
	return err
}

// Upload pushes a local file into a remote project folder.
func (c *Client) Upload(path, folder string) error {
	if !strings.HasSuffix(folder, "/") {
		folder += "/"
	}
	_, err := c.Runner.Run(c.tool(), "upload", path, "--path", folder)
	return err
}

// FindDatasetID resolves the dataset record visible in the current project
// context and returns it as "project:record".
func (c *Client) FindDatasetID() (string, error) {
	project := os.Getenv(ProjectContextEnv)
	if project == "" {
		return "", fmt.Errorf("%s is not set", ProjectContextEnv)
	}

	output, err := c.Runner.Run(c.tool(), "find", "data", "--type", "Dataset", "--delimiter", ",")
	if err != nil {
		return "", err
	}

	line := strings.TrimSpace(strings.SplitN(string(output), "\n", 2)[0])
	if line == "" {
		return "", fmt.Errorf("no Dataset record found in project %s", project)
	}
	fields := strings.Split(line, ",")
	record := strings.TrimSpace(fields[len(fields)-1])
	if record == "" {
		return "", fmt.Errorf("could not parse dataset record from %q", line)
	}

	return project + ":" + record, nil
}
