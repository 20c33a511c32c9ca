package source

import (
	"context"
	"os"
	"strings"

	"github.com/skekre98/workbench/config"
)

// EnvPrefix is the prefix an environment variable needs to be loaded.
const EnvPrefix = "WORKBENCH_"

// EnvSource loads WORKBENCH_* environment variables into nested maps.
//
// Name handling:
//   - Only names starting with "WORKBENCH_" are considered
//   - The prefix is dropped and the rest is lowercased
//   - Underscores split the rest into nested keys
//
// Examples:
//
//	WORKBENCH_CONNECTION_WSPATH=ws://ide:8000
//	  -> {connection: {wspath: "ws://ide:8000"}}
//
//	WORKBENCH_PREFERENCES_CONFIRMEXIT=never
//	  -> {preferences: {confirmexit: "never"}}
//
// Key matching during binding is case-insensitive, so camelCase fields are
// reachable. Values stay strings until bound.
//
// Conflicts: a leaf blocks deeper keys at the same path and the first one seen
// wins. WORKBENCH_WEB=on and WORKBENCH_WEB_ADDR=:8080 keep whichever the
// environment lists first and skip the other.
type EnvSource struct {
	// Environ replaces os.Environ, for tests.
	Environ func() []string
}

func (e *EnvSource) Name() string { return "env" }

func (e *EnvSource) Load(ctx context.Context) (map[string]any, error) {
	environ := e.Environ
	if environ == nil {
		environ = os.Environ
	}
	return loadEnvVars(environ()), nil
}

// Watch is a no-op; the environment does not change under a running process.
func (e *EnvSource) Watch(ctx context.Context, ch chan<- config.Event) error {
	return nil
}

func loadEnvVars(environ []string) map[string]any {
	result := make(map[string]any)

	for _, env := range environ {
		key, value, found := strings.Cut(env, "=")
		if !found || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}

		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		setNestedValue(result, strings.Split(key, "_"), value)
	}

	return result
}

func setNestedValue(m map[string]any, segments []string, value string) {
	current := m

	for i, segment := range segments {
		if segment == "" {
			continue
		}

		if i == len(segments)-1 {
			current[segment] = value
			return
		}

		existing, exists := current[segment]
		if !exists {
			nested := make(map[string]any)
			current[segment] = nested
			current = nested
			continue
		}
		nested, ok := existing.(map[string]any)
		if !ok {
			return
		}
		current = nested
	}
}
