package secrets

import (
	"fmt"
	"os"
	"sort"

	"github.com/subosito/gotenv"
)

// ParseEnvFile reads a dotenv file: KEY=VALUE lines with optional "export "
// prefixes, quoting and comments.
func ParseEnvFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}
	defer f.Close()
	env, err := gotenv.StrictParse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing secrets file %s: %w", path, err)
	}
	return env, nil
}

// Apply loads path into the process environment without overriding variables
// that are already set. It returns the names it set, sorted.
func Apply(path string) ([]string, error) {
	vars, err := ParseEnvFile(path)
	if err != nil {
		return nil, err
	}
	var set []string
	for k, v := range vars {
		if _, exists := os.LookupEnv(k); exists {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return set, fmt.Errorf("setting %s: %w", k, err)
		}
		set = append(set, k)
	}
	sort.Strings(set)
	return set, nil
}
