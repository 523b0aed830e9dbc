package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// ReadFile parses a YAML or TOML config file into a flat map keyed by
// environment variable name:
//
//	PORT: 9000
//	SANDBOX_TIMEOUT: 5s
func ReadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	raw := make(map[string]interface{})
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for key, value := range raw {
		values[strings.ToUpper(key)] = fmt.Sprint(value)
	}
	return values, nil
}

// applyFile exports file values that the environment does not already set
func applyFile(path string) error {
	values, err := ReadFile(path)
	if err != nil {
		return err
	}
	for key, value := range values {
		if _, ok := os.LookupEnv(key); ok {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}
