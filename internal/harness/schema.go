package harness

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// resolveInputSchema converts a tool's advertised input schema, in whatever
// shape the wire decoding produced, into a resolved schema. It returns nil
// when the tool advertises none.
func resolveInputSchema(tool *mcp.Tool) (*jsonschema.Resolved, error) {
	if tool == nil || tool.InputSchema == nil {
		return nil, nil
	}

	data, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal input schema: %w", err)
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("decode input schema: %w", err)
	}

	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve input schema: %w", err)
	}

	return resolved, nil
}

// validateArguments checks arguments against the tool's input schema.
// Arguments are normalized through JSON first so that values decoded from
// YAML (ints, nested maps) validate the way the server will see them.
func validateArguments(tool *mcp.Tool, arguments map[string]any) error {
	resolved, err := resolveInputSchema(tool)
	if err != nil || resolved == nil {
		return err
	}

	if arguments == nil {
		arguments = map[string]any{}
	}

	data, err := json.Marshal(arguments)
	if err != nil {
		return fmt.Errorf("marshal arguments: %w", err)
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}

	if err := resolved.Validate(instance); err != nil {
		return fmt.Errorf("arguments do not match %s input schema: %w", tool.Name, err)
	}

	return nil
}
