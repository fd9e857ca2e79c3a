// SPDX-License-Identifier: LGPL-3.0-or-later

// Package manifest declares Templates and Pools in a single YAML file so an
// operator can stand up (or reconcile) a whole fleet with one `hyperwarm
// apply` instead of a sequence of `template register`/`pool create` calls.
package manifest

// PoolFleetManifest is the top-level declarative document. One file may
// declare any number of templates and pools; pools reference templates by
// name within the same document.
type PoolFleetManifest struct {
	// ManifestVersion is the schema version. Current: "1.0".
	ManifestVersion string `json:"manifest_version" yaml:"manifest_version"`

	Templates []TemplateSpec `json:"templates,omitempty" yaml:"templates,omitempty"`
	Pools     []PoolSpec     `json:"pools,omitempty" yaml:"pools,omitempty"`
}

// TemplateSpec declares one golden-image template.
type TemplateSpec struct {
	// Name is the template's unique name (REQUIRED).
	Name string `json:"name" yaml:"name"`

	// VHDX is the path to the golden disk image (REQUIRED).
	VHDX string `json:"vhdx" yaml:"vhdx"`

	// MemoryMB is the default memory for VMs cloned from this template.
	// Default: 2048.
	MemoryMB int `json:"memory_mb,omitempty" yaml:"memory_mb,omitempty"`

	// CPUs is the default vCPU count for VMs cloned from this template.
	// Default: 2.
	CPUs int `json:"cpus,omitempty" yaml:"cpus,omitempty"`

	// GPUEnabled requests GPU partitioning on VMs cloned from this template.
	GPUEnabled bool `json:"gpu_enabled,omitempty" yaml:"gpu_enabled,omitempty"`
}

// PoolSpec declares one VM pool.
type PoolSpec struct {
	// Name is the pool's unique name (REQUIRED).
	Name string `json:"name" yaml:"name"`

	// Template is the name of a TemplateSpec declared in this document, or
	// already registered, that the pool's VMs are cloned from (REQUIRED).
	Template string `json:"template" yaml:"template"`

	// DesiredCount is the total number of VM slots the pool should hold.
	// Default: 1.
	DesiredCount int `json:"desired_count,omitempty" yaml:"desired_count,omitempty"`

	// WarmCount is how many of DesiredCount should sit ready (Saved) at
	// any time. Must satisfy 0 <= WarmCount <= DesiredCount. Default:
	// DesiredCount.
	WarmCount int `json:"warm_count,omitempty" yaml:"warm_count,omitempty"`

	// PerHostCap bounds how many of this pool's VMs may run concurrently.
	// Zero means unbounded.
	PerHostCap int `json:"per_host_cap,omitempty" yaml:"per_host_cap,omitempty"`

	// DefaultResetOnRelease controls whether a lease released without an
	// explicit reset decision restores the VM to its clean checkpoint.
	DefaultResetOnRelease bool `json:"default_reset_on_release,omitempty" yaml:"default_reset_on_release,omitempty"`
}
