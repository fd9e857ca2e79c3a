// SPDX-License-Identifier: LGPL-3.0-or-later

package manifest

import "fmt"

// CurrentVersion is the manifest schema version this package understands.
const CurrentVersion = "1.0"

// Validate checks a PoolFleetManifest for structural errors before it is
// applied: duplicate names, missing required fields, and warm/desired count
// violations. Template references are not resolved here; Apply looks each
// one up in the store.
func Validate(m *PoolFleetManifest) error {
	if m == nil {
		return fmt.Errorf("manifest is nil")
	}
	if m.ManifestVersion != CurrentVersion {
		return fmt.Errorf("unsupported manifest version %q: expected %q", m.ManifestVersion, CurrentVersion)
	}

	declared := make(map[string]bool, len(m.Templates))
	for i, t := range m.Templates {
		if t.Name == "" {
			return fmt.Errorf("templates[%d].name is required", i)
		}
		if declared[t.Name] {
			return fmt.Errorf("duplicate template name: %q", t.Name)
		}
		declared[t.Name] = true
		if t.VHDX == "" {
			return fmt.Errorf("templates[%d].vhdx is required", i)
		}
	}

	poolNames := make(map[string]bool, len(m.Pools))
	for i, p := range m.Pools {
		if p.Name == "" {
			return fmt.Errorf("pools[%d].name is required", i)
		}
		if poolNames[p.Name] {
			return fmt.Errorf("duplicate pool name: %q", p.Name)
		}
		poolNames[p.Name] = true
		if p.Template == "" {
			return fmt.Errorf("pools[%d].template is required", i)
		}
		desired := p.DesiredCount
		if desired == 0 {
			desired = 1
		}
		warm := p.WarmCount
		if warm == 0 {
			warm = desired
		}
		if warm < 0 || warm > desired {
			return fmt.Errorf("pools[%d] (%s): warm_count (%d) must be between 0 and desired_count (%d)", i, p.Name, warm, desired)
		}
	}

	return nil
}
