package harness

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/wagiedev/mcpcheck/internal/protocol"
)

// maxDiagnostic caps the length of a verdict diagnostic.
const maxDiagnostic = 200

// errorMarkers are the case-name fragments that mark a case as expecting
// failure.
var errorMarkers = []string{"error", "invalid", "not found", "no matches"}

// ExpectsError reports whether a case with this name is expected to fail.
func ExpectsError(name string) bool {
	lower := strings.ToLower(name)

	for _, marker := range errorMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	return false
}

// Outcome is what a tools/call produced: a response, or the error that
// prevented one.
type Outcome struct {
	Response *protocol.Response
	Err      error
}

// Verdict is the judgement of one case.
type Verdict struct {
	Passed     bool
	Diagnostic string
}

// observation is the decoded shape of an outcome.
type observation struct {
	hasError   bool
	hasContent bool
	// text is the error message or the concatenated text content.
	text string
}

// toolResult is the part of a tools/call result the classifier reads.
type toolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

func observe(o Outcome) observation {
	switch {
	case o.Err != nil:
		return observation{hasError: true, text: o.Err.Error()}
	case o.Response == nil:
		return observation{hasError: true, text: "no response"}
	case o.Response.Error != nil:
		return observation{
			hasError: true,
			text:     fmt.Sprintf("error %d: %s", o.Response.Error.Code, o.Response.Error.Message),
		}
	}

	obs := observation{hasContent: len(o.Response.Result) > 0}

	var fields map[string]json.RawMessage
	if json.Unmarshal(o.Response.Result, &fields) != nil {
		// Not an object: nothing more to inspect.
		obs.text = string(o.Response.Result)

		return obs
	}

	if errField, ok := fields["error"]; ok {
		obs.hasError = true
		obs.text = string(errField)

		return obs
	}

	var result toolResult
	_ = json.Unmarshal(o.Response.Result, &result)

	texts := make([]string, 0, len(result.Content))
	for _, block := range result.Content {
		if block.Type == "text" || block.Text != "" {
			texts = append(texts, block.Text)
		}
	}

	obs.hasError = result.IsError
	obs.text = strings.Join(texts, "\n")

	if len(texts) == 0 {
		obs.text = string(o.Response.Result)
	}

	return obs
}

// Classify judges an outcome against a case. It is pure.
//
// A case expecting failure passes iff an error was observed: a call error,
// a JSON-RPC error, a result flagged isError, or a result carrying an
// error key. Any other case passes iff a result arrived with no error.
// Expectation substrings are then checked against the observed text.
func Classify(c Case, o Outcome) Verdict {
	obs := observe(o)

	if c.ExpectsFailure() {
		if !obs.hasError {
			return Verdict{Diagnostic: truncate("expected an error, got: " + obs.text)}
		}
	} else if obs.hasError || !obs.hasContent {
		return Verdict{Diagnostic: truncate(obs.text)}
	}

	if c.Expect != nil {
		for _, want := range c.Expect.Contains {
			if !strings.Contains(obs.text, want) {
				return Verdict{Diagnostic: truncate(fmt.Sprintf("missing %q in: %s", want, obs.text))}
			}
		}

		for _, unwanted := range c.Expect.NotContains {
			if strings.Contains(obs.text, unwanted) {
				return Verdict{Diagnostic: truncate(fmt.Sprintf("unexpected %q in: %s", unwanted, obs.text))}
			}
		}
	}

	return Verdict{Passed: true, Diagnostic: truncate(obs.text)}
}

// truncate shortens s to at most maxDiagnostic bytes without splitting a
// rune.
func truncate(s string) string {
	if len(s) <= maxDiagnostic {
		return s
	}

	cut := maxDiagnostic - len("...")
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	return s[:cut] + "..."
}
