// SPDX-License-Identifier: LGPL-3.0-or-later

package models

import "time"

// Template is a golden disk image registered by path with default
// resources. Immutable once created; removed only when no pool references
// it.
type Template struct {
	ID            string
	Name          string // unique
	DiskPath      string
	DefaultMemMB  int
	DefaultCPUs   int
	GPUEnabled    bool
	CreatedAt     time.Time
}

// Pool is a named collection of VMs cloned from one template.
type Pool struct {
	ID                string
	Name              string // unique
	TemplateID        string
	DesiredCount      int
	WarmCount         int // target size of the saved-and-unleased set; 0 <= WarmCount <= DesiredCount
	PerHostCap        int // 0 means unbounded
	DefaultResetOnRelease bool
	CreatedAt         time.Time
}

// Valid reports whether the pool's own fields satisfy the invariants in
// the data model (0 <= warm_count <= desired_count).
func (p *Pool) Valid() bool {
	return p.WarmCount >= 0 && p.WarmCount <= p.DesiredCount
}

// Lease is the transient exclusive claim created at acquisition and
// dropped at release.
type Lease struct {
	ID         string
	VMID       string
	PoolID     string
	AcquiredAt time.Time
	Deadline   *time.Time
}
