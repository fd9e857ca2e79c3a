// SPDX-License-Identifier: LGPL-3.0-or-later

package manifest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ToYAML serializes a manifest to YAML.
func ToYAML(m *PoolFleetManifest) ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal YAML: %w", err)
	}
	return data, nil
}

// FromYAML deserializes a manifest from YAML.
func FromYAML(data []byte) (*PoolFleetManifest, error) {
	var m PoolFleetManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal YAML: %w", err)
	}
	return &m, nil
}

// ReadFromFile reads and validates a manifest from a YAML file.
func ReadFromFile(path string) (*PoolFleetManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	m, err := FromYAML(data)
	if err != nil {
		return nil, err
	}
	if err := Validate(m); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return m, nil
}

// isYAMLPath reports whether path looks like a YAML file by extension.
func isYAMLPath(path string) bool {
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}
