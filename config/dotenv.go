// ABOUTME: Optional .env overlay for local development: parses KEY=VALUE
// ABOUTME: lines and exports any key the environment does not already define.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ParseDotEnv reads a dotenv file into a map without touching the process
// environment. Blank lines and # comments are skipped, an "export " prefix is
// tolerated, and single or double quotes around a value are stripped. Values
// may contain '='. A missing file yields an empty map.
func ParseDotEnv(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	vars := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		vars[key] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return vars, nil
}

// ApplyDotEnv parses path and sets each variable that is not already present
// in the environment, so real environment variables always win over the file.
func ApplyDotEnv(path string) error {
	vars, err := ParseDotEnv(path)
	if err != nil {
		return err
	}
	for key, value := range vars {
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
	return nil
}

func unquote(v string) string {
	if len(v) < 2 {
		return v
	}
	head, tail := v[0], v[len(v)-1]
	if head == tail && (head == '"' || head == '\'') {
		return v[1 : len(v)-1]
	}
	return v
}
