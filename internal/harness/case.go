package harness

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Expected statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Expectation refines how a case is judged.
type Expectation struct {
	// Status is "success" or "error". Empty means the case name decides.
	Status string `yaml:"status,omitempty" json:"status,omitempty"`
	// Contains lists substrings the observed text must include.
	Contains []string `yaml:"contains,omitempty" json:"contains,omitempty"`
	// NotContains lists substrings the observed text must not include.
	NotContains []string `yaml:"notContains,omitempty" json:"notContains,omitempty"`
}

// Case is one tools/call exchange to run and judge.
type Case struct {
	Name      string         `yaml:"name" json:"name"`
	Tool      string         `yaml:"tool" json:"tool"`
	Arguments map[string]any `yaml:"arguments,omitempty" json:"arguments,omitempty"`
	Expect    *Expectation   `yaml:"expect,omitempty" json:"expect,omitempty"`
	// Required stops the run when this case fails; the rest are skipped.
	// In YAML it is read through caseEntry so defaults can apply.
	Required bool `yaml:"-" json:"required,omitempty"`
	// Timeout bounds the call. Zero uses the client's request timeout.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// ExpectsFailure reports whether the case passes only when the call fails.
func (c Case) ExpectsFailure() bool {
	if c.Expect != nil && c.Expect.Status != "" {
		return c.Expect.Status == StatusError
	}

	return ExpectsError(c.Name)
}

// ServerConfig describes how to launch the server under test.
type ServerConfig struct {
	Command      string            `yaml:"command"`
	Args         []string          `yaml:"args,omitempty"`
	Cwd          string            `yaml:"cwd,omitempty"`
	Env          map[string]string `yaml:"env,omitempty"`
	StartupDelay time.Duration     `yaml:"startupDelay,omitempty"`
	Session      SessionMode       `yaml:"session,omitempty"`
}

// Defaults apply to every case that does not set the field itself.
type Defaults struct {
	Timeout  time.Duration `yaml:"timeout,omitempty"`
	Required bool          `yaml:"required,omitempty"`
}

// Suite is a parsed case table.
type Suite struct {
	Name     string       `yaml:"name,omitempty"`
	Server   ServerConfig `yaml:"server,omitempty"`
	Defaults Defaults     `yaml:"defaults,omitempty"`
	Cases    []Case       `yaml:"-"`
}

// caseEntry distinguishes an explicit required: false from an absent key.
type caseEntry struct {
	Case     `yaml:",inline"`
	Required *bool `yaml:"required,omitempty"`
}

// suiteFile is the YAML root.
type suiteFile struct {
	Suite `yaml:",inline"`
	Cases []caseEntry `yaml:"cases"`
}

// LoadCases loads a case table from a YAML file path.
func LoadCases(path string) (*Suite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open case table: %w", err)
	}
	defer f.Close()

	suite, err := ParseCases(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return suite, nil
}

// ParseCases reads a case table and applies its defaults.
// Unknown keys are rejected so typos do not silently change a run.
func ParseCases(r io.Reader) (*Suite, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file suiteFile
	if err := dec.Decode(&file); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty case table")
		}

		return nil, fmt.Errorf("parse case table: %w", err)
	}

	suite := file.Suite
	suite.Cases = make([]Case, 0, len(file.Cases))

	seen := make(map[string]bool, len(file.Cases))

	for i, entry := range file.Cases {
		c := entry.Case

		if c.Name == "" {
			return nil, fmt.Errorf("case %d: missing name", i+1)
		}

		if c.Tool == "" {
			return nil, fmt.Errorf("case %q: missing tool", c.Name)
		}

		if seen[c.Name] {
			return nil, fmt.Errorf("case %q: duplicate name", c.Name)
		}

		seen[c.Name] = true

		if c.Expect != nil {
			switch c.Expect.Status {
			case "", StatusSuccess, StatusError:
			default:
				return nil, fmt.Errorf("case %q: expect.status must be %q or %q", c.Name, StatusSuccess, StatusError)
			}
		}

		c.Required = suite.Defaults.Required
		if entry.Required != nil {
			c.Required = *entry.Required
		}

		if c.Timeout == 0 {
			c.Timeout = suite.Defaults.Timeout
		}

		suite.Cases = append(suite.Cases, c)
	}

	switch suite.Server.Session {
	case "", SessionShared, SessionPerCase:
	default:
		return nil, fmt.Errorf("server.session must be %q or %q", SessionShared, SessionPerCase)
	}

	return &suite, nil
}
