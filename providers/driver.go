// SPDX-License-Identifier: LGPL-3.0-or-later

// Package providers defines the Hypervisor Driver contract: a thin,
// stateless adapter exposing typed operations over a single Windows
// Hyper-V host. Implementations never retain state between calls and
// classify every failure as transient, permanent, not-found, or timeout
// so the lifecycle controller can decide whether to retry.
package providers

import "context"

// VMState is the hypervisor-reported power state of a VM, distinct from
// the orchestrator's own models.State: it reflects what the driver
// observed just now, not the store's last-recorded transition.
type VMState string

const (
	VMStateOff     VMState = "off"
	VMStateRunning VMState = "running"
	VMStateSaved   VMState = "saved"
	VMStatePaused  VMState = "paused"
	VMStateUnknown VMState = "unknown"
)

// VMSummary is a single row returned by ListVMs.
type VMSummary struct {
	Name  string
	State VMState
}

// CreateVMSpec describes the parameters for create_vm.
type CreateVMSpec struct {
	Name       string
	DiskPath   string // the differencing disk to attach
	MemoryMB   int
	CPUs       int
	GPUEnabled bool
	SwitchName string // virtual switch to attach the NIC to
}

// Driver is the typed operation set from the component design: create_vm,
// clone_disk, start, save, stop, checkpoint, restore_checkpoint,
// query_state, query_ip, heartbeat_ok, list_vms.
//
// The driver is reentrant and holds no state between calls; callers must
// serialize mutating calls that target the same VM name (the lifecycle
// controller does this with a per-VM keyed mutex).
type Driver interface {
	// CreateVM defines a new VM with the given spec and leaves it Off.
	CreateVM(ctx context.Context, spec CreateVMSpec) error

	// CloneDisk creates a differencing disk at destPath whose parent is
	// templateDiskPath.
	CloneDisk(ctx context.Context, templateDiskPath, destPath string) error

	// Start powers on a VM, resuming from saved state if one exists.
	Start(ctx context.Context, vmName string) error

	// Save persists the VM's live state to disk and powers it off into
	// the Saved state.
	Save(ctx context.Context, vmName string) error

	// Stop powers the VM off. If graceful, it requests a clean guest
	// shutdown before forcing off after a grace period.
	Stop(ctx context.Context, vmName string, graceful bool) error

	// Checkpoint takes a named, repeatable on-disk snapshot.
	Checkpoint(ctx context.Context, vmName, checkpointName string) error

	// RestoreCheckpoint reverts the VM to a previously-taken checkpoint.
	RestoreCheckpoint(ctx context.Context, vmName, checkpointName string) error

	// QueryState reports the hypervisor's current view of the VM's power
	// state.
	QueryState(ctx context.Context, vmName string) (VMState, error)

	// QueryIP reports the VM's current guest-reported IPv4 address, or
	// empty if none has been assigned yet.
	QueryIP(ctx context.Context, vmName string) (string, error)

	// HeartbeatOK reports whether a TCP connection to the given guest
	// port succeeds, used as a simple readiness/heartbeat signal.
	HeartbeatOK(ctx context.Context, vmName string, guestPort int, timeoutMS int) (bool, error)

	// ListVMs enumerates every VM the hypervisor knows about.
	ListVMs(ctx context.Context) ([]VMSummary, error)

	// DestroyVM removes the VM definition and its differencing disk.
	DestroyVM(ctx context.Context, vmName string, diskPath string) error
}
