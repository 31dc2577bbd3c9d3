package launch

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/wagiedev/mcpcheck/internal/config"
)

// BuildEnvironment returns the environment for the server process: the
// current environment, a marker identifying the harness, then options.Env
// in key order so later entries override earlier ones deterministically.
func BuildEnvironment(options *config.Options) []string {
	env := os.Environ()

	env = append(env, "MCPCHECK=1")

	if options == nil {
		return env
	}

	if options.ClientName != "" {
		env = append(env, fmt.Sprintf("MCPCHECK_CLIENT=%s/%s", options.ClientName, options.ClientVersion))
	}

	for _, key := range slices.Sorted(maps.Keys(options.Env)) {
		env = append(env, fmt.Sprintf("%s=%s", key, options.Env[key]))
	}

	return env
}
