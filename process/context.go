package process

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"
)

// loadContext reads template values from YAML (or JSON) file. Empty path
// means no values.
func loadContext(path string) (map[string]any, error) {
	values := make(map[string]any)
	if path == "" {
		return values, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read context file: %w", err)
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("unable to decode context file %s: %w", path, err)
	}
	if values == nil {
		values = make(map[string]any)
	}
	return values, nil
}
