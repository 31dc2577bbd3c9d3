package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"
)

// ServerInfo identifies the server a report was produced against.
type ServerInfo struct {
	Name            string `json:"name,omitempty" yaml:"name,omitempty"`
	Version         string `json:"version,omitempty" yaml:"version,omitempty"`
	ProtocolVersion string `json:"protocolVersion,omitempty" yaml:"protocolVersion,omitempty"`
}

// Summary aggregates a run.
type Summary struct {
	Total      int       `json:"total" yaml:"total"`
	Passed     int       `json:"passed" yaml:"passed"`
	Failed     int       `json:"failed" yaml:"failed"`
	Skipped    int       `json:"skipped" yaml:"skipped"`
	PassRate   float64   `json:"passRate" yaml:"passRate"`
	StartTime  time.Time `json:"startTime" yaml:"startTime"`
	DurationMs int64     `json:"durationMs" yaml:"durationMs"`
}

// Result records one case.
type Result struct {
	Name        string         `json:"name" yaml:"name"`
	Tool        string         `json:"tool" yaml:"tool"`
	Input       map[string]any `json:"input" yaml:"input"`
	Output      any            `json:"output" yaml:"output"`
	Passed      bool           `json:"passed" yaml:"passed"`
	Skipped     bool           `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Diagnostic  string         `json:"diagnostic,omitempty" yaml:"diagnostic,omitempty"`
	SchemaError string         `json:"schemaError,omitempty" yaml:"schemaError,omitempty"`
	Timestamp   time.Time      `json:"timestamp" yaml:"timestamp"`
	DurationMs  int64          `json:"durationMs" yaml:"durationMs"`
}

// Report is the outcome of a run.
type Report struct {
	RunID   string      `json:"runId" yaml:"runId"`
	Summary Summary     `json:"summary" yaml:"summary"`
	Server  *ServerInfo `json:"server,omitempty" yaml:"server,omitempty"`
	Tools   []string    `json:"tools,omitempty" yaml:"tools,omitempty"`
	Tests   []Result    `json:"tests" yaml:"tests"`
}

// NewReport starts an empty report.
func NewReport(start time.Time) *Report {
	return &Report{
		RunID:   ulid.Make().String(),
		Summary: Summary{StartTime: start},
		Tests:   []Result{},
	}
}

// Add appends a result and updates the counters.
func (r *Report) Add(res Result) {
	r.Tests = append(r.Tests, res)

	r.Summary.Total++

	switch {
	case res.Skipped:
		r.Summary.Skipped++
	case res.Passed:
		r.Summary.Passed++
	default:
		r.Summary.Failed++
	}

	r.Summary.PassRate = float64(r.Summary.Passed) / float64(r.Summary.Total) * 100
}

// Finish records the run duration.
func (r *Report) Finish(end time.Time) {
	r.Summary.DurationMs = end.Sub(r.Summary.StartTime).Milliseconds()
}

// OK reports whether every case passed.
func (r *Report) OK() bool {
	return r.Summary.Passed == r.Summary.Total
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	return nil
}

// WriteYAML writes the report as YAML.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	return enc.Close()
}

// SaveReport writes the report to path, as YAML for .yaml and .yml files
// and as JSON otherwise.
func (r *Report) SaveReport(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}

	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close report: %w", closeErr)
		}
	}()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return r.WriteYAML(f)
	default:
		return r.WriteJSON(f)
	}
}
