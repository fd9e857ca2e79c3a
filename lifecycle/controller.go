// SPDX-License-Identifier: LGPL-3.0-or-later

// Package lifecycle implements the VM state machine controller: the only
// component that calls the hypervisor driver's mutating operations, and
// the sole owner of the per-VM exclusion that makes those calls safe to
// run concurrently across many VMs.
package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"hyperwarm/daemon/models"
	"hyperwarm/daemon/scheduler"
	"hyperwarm/hverr"
	"hyperwarm/logger"
	"hyperwarm/providers"
)

const cleanCheckpoint = "clean"

// DefaultGuestPort is the well-known guest port the wait-for-ready
// heartbeat dials (RDP).
const DefaultGuestPort = 3389

// Store is the narrow slice of store.Store the controller depends on.
type Store interface {
	GetVM(ctx context.Context, id string) (*models.VM, error)
	CreateVM(ctx context.Context, v *models.VM) error
	UpdateVMState(ctx context.Context, vmID string, newState models.State, errMsg string) error
	SetTransitioning(ctx context.Context, vmID string, evt models.Event) error
	UpdateVMIP(ctx context.Context, vmID, ip string) error
	UpdateVMLastResumed(ctx context.Context, vmID string, t time.Time) error
	DeleteVM(ctx context.Context, vmID string) error
}

// Config carries the timing and placement knobs the controller needs from
// the operator's configuration.
type Config struct {
	VMRoot            string
	SwitchName        string
	GuestPort         int
	ReadyPollInterval time.Duration
	WarmReadyTimeout  time.Duration
	ColdReadyTimeout  time.Duration
}

// Controller implements the lifecycle state machine over a Store and a
// Hypervisor Driver.
type Controller struct {
	store   Store
	driver  providers.Driver
	retrier *scheduler.Retrier
	keys    *keyMutex
	log     logger.Logger
	cfg     Config
}

// New builds a Controller, applying sensible defaults to any zero-valued
// Config field.
func New(store Store, driver providers.Driver, log logger.Logger, cfg Config) *Controller {
	if cfg.GuestPort == 0 {
		cfg.GuestPort = DefaultGuestPort
	}
	if cfg.ReadyPollInterval <= 0 {
		cfg.ReadyPollInterval = 500 * time.Millisecond
	}
	if cfg.WarmReadyTimeout <= 0 {
		cfg.WarmReadyTimeout = 30 * time.Second
	}
	if cfg.ColdReadyTimeout <= 0 {
		cfg.ColdReadyTimeout = 120 * time.Second
	}
	return &Controller{
		store:   store,
		driver:  driver,
		retrier: scheduler.NewRetrier(nil, log),
		keys:    newKeyMutex(),
		log:     log,
		cfg:     cfg,
	}
}

// Provision clones a differencing disk over the template, defines the VM,
// and records it Off. It does not start the VM; callers invoke FirstBoot
// next (the pool controller's provision/prepare split).
func (c *Controller) Provision(ctx context.Context, pool *models.Pool, tpl *models.Template, name string) (*models.VM, error) {
	diskPath := filepath.Join(c.cfg.VMRoot, name, "disk.vhdx")
	if err := os.MkdirAll(filepath.Dir(diskPath), 0o755); err != nil {
		return nil, fmt.Errorf("create vm directory: %w", err)
	}

	unlock := c.keys.Lock(name)
	defer unlock()

	if err := c.driver.CloneDisk(ctx, tpl.DiskPath, diskPath); err != nil {
		return nil, err
	}

	spec := providers.CreateVMSpec{
		Name:       name,
		DiskPath:   diskPath,
		MemoryMB:   tpl.DefaultMemMB,
		CPUs:       tpl.DefaultCPUs,
		GPUEnabled: tpl.GPUEnabled,
		SwitchName: c.cfg.SwitchName,
	}
	if err := c.driver.CreateVM(ctx, spec); err != nil {
		return nil, err
	}

	vm := &models.VM{
		ID:         uuid.New().String(),
		Name:       name,
		PoolID:     pool.ID,
		TemplateID: tpl.ID,
		State:      models.StateOff,
		DiskPath:   diskPath,
		CreatedAt:  time.Now(),
	}
	if err := c.store.CreateVM(ctx, vm); err != nil {
		return nil, err
	}
	return vm, nil
}

// FirstBoot powers on a freshly-provisioned Off VM and waits for it to
// become reachable, using the cold-boot timeout cap.
func (c *Controller) FirstBoot(ctx context.Context, vmID string) error {
	vm, err := c.store.GetVM(ctx, vmID)
	if err != nil {
		return err
	}
	to, ok := models.Next(vm.State, models.EventFirstBoot)
	if !ok {
		return hverr.New(hverr.KindConflict, "vm %s cannot first_boot from state %s", vm.Name, vm.State)
	}

	unlock := c.keys.Lock(vm.Name)
	defer unlock()

	if err := c.store.SetTransitioning(ctx, vm.ID, models.EventFirstBoot); err != nil {
		return err
	}

	ip, err := c.attemptStart(ctx, vm, c.cfg.ColdReadyTimeout)
	if err != nil {
		c.quarantine(ctx, vm, err)
		return err
	}
	if ip != vm.IPAddress {
		_ = c.store.UpdateVMIP(ctx, vm.ID, ip)
	}
	return c.store.UpdateVMState(ctx, vm.ID, to, "")
}

// Resume implements the resume fast path with fallback: start a Saved VM
// and wait for readiness within the warm budget; on failure, heal it via
// force-stop/restore/cold-boot/save and retry once before quarantining. A
// VM that is already Running is a no-op: it returns success with its
// current IP and a zero resume time.
func (c *Controller) Resume(ctx context.Context, vmID string) (ip string, resumeMS int64, err error) {
	vm, err := c.store.GetVM(ctx, vmID)
	if err != nil {
		return "", 0, err
	}
	if vm.State == models.StateRunning {
		return vm.IPAddress, 0, nil
	}
	if _, ok := models.Next(vm.State, models.EventResume); !ok {
		return "", 0, hverr.New(hverr.KindConflict, "vm %s cannot resume from state %s", vm.Name, vm.State)
	}

	unlock := c.keys.Lock(vm.Name)
	defer unlock()

	start := time.Now()
	if err := c.store.SetTransitioning(ctx, vm.ID, models.EventResume); err != nil {
		return "", 0, err
	}

	ip, err = c.attemptStart(ctx, vm, c.cfg.WarmReadyTimeout)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled mid-wait, not failed: we do not un-start the VM or
			// force a fallback. It is left to boot on its own; the
			// reconciler will observe the resulting drift and a later
			// release will save it back before the lease is cleared.
			c.log.Warn("resume cancelled mid-wait, leaving vm for reconciler to observe", "vm", vm.Name, "error", ctx.Err())
			return "", 0, ctx.Err()
		}
		c.log.Warn("resume fast path failed, falling back to cold boot", "vm", vm.Name, "error", err)
		if fbErr := c.resumeFallback(ctx, vm); fbErr != nil {
			c.quarantine(ctx, vm, fbErr)
			return "", 0, fbErr
		}
		ip, err = c.attemptStart(ctx, vm, c.cfg.WarmReadyTimeout)
		if err != nil {
			c.quarantine(ctx, vm, err)
			return "", 0, err
		}
	}

	if ip != vm.IPAddress {
		_ = c.store.UpdateVMIP(ctx, vm.ID, ip)
	}
	if err := c.store.UpdateVMState(ctx, vm.ID, models.StateRunning, ""); err != nil {
		return "", 0, err
	}
	if err := c.store.UpdateVMLastResumed(ctx, vm.ID, time.Now()); err != nil {
		c.log.Warn("update last_resumed_at failed", "vm", vm.Name, "error", err)
	}
	return ip, time.Since(start).Milliseconds(), nil
}

// resumeFallback heals a VM whose fast-path resume failed: force it off,
// revert to the clean checkpoint, cold boot it, and save it back into a
// warm Saved state. Called with the VM's key already held.
func (c *Controller) resumeFallback(ctx context.Context, vm *models.VM) error {
	if err := c.driver.Stop(ctx, vm.Name, false); err != nil && hverr.KindOf(err) != hverr.KindNotFound {
		return err
	}
	if err := c.driver.RestoreCheckpoint(ctx, vm.Name, cleanCheckpoint); err != nil {
		return err
	}
	if _, err := c.attemptStart(ctx, vm, c.cfg.ColdReadyTimeout); err != nil {
		return err
	}
	return c.driver.Save(ctx, vm.Name)
}

// Save transitions a Running VM to Saved by persisting its live state.
func (c *Controller) Save(ctx context.Context, vmID string) error {
	vm, err := c.store.GetVM(ctx, vmID)
	if err != nil {
		return err
	}
	return c.runOp(ctx, vm, models.EventSave, "save:"+vm.Name, func(ctx context.Context) error {
		return c.driver.Save(ctx, vm.Name)
	})
}

// Checkpoint takes a named, repeatable snapshot of a Running VM.
func (c *Controller) Checkpoint(ctx context.Context, vmID, name string) error {
	vm, err := c.store.GetVM(ctx, vmID)
	if err != nil {
		return err
	}
	return c.runOp(ctx, vm, models.EventCheckpoint, "checkpoint:"+vm.Name, func(ctx context.Context) error {
		return c.driver.Checkpoint(ctx, vm.Name, name)
	})
}

// Stop powers a Running VM off.
func (c *Controller) Stop(ctx context.Context, vmID string, graceful bool) error {
	vm, err := c.store.GetVM(ctx, vmID)
	if err != nil {
		return err
	}
	return c.runOp(ctx, vm, models.EventStop, "stop:"+vm.Name, func(ctx context.Context) error {
		return c.driver.Stop(ctx, vm.Name, graceful)
	})
}

// Restore reverts a Running VM to a previously-taken checkpoint.
func (c *Controller) Restore(ctx context.Context, vmID, checkpointName string) error {
	vm, err := c.store.GetVM(ctx, vmID)
	if err != nil {
		return err
	}
	return c.runOp(ctx, vm, models.EventRestore, "restore:"+vm.Name, func(ctx context.Context) error {
		return c.driver.RestoreCheckpoint(ctx, vm.Name, checkpointName)
	})
}

// Destroy removes the VM definition and its differencing disk, then drops
// the store row. Valid from any state.
func (c *Controller) Destroy(ctx context.Context, vmID string) error {
	vm, err := c.store.GetVM(ctx, vmID)
	if err != nil {
		return err
	}

	unlock := c.keys.Lock(vm.Name)
	defer unlock()

	if err := c.driver.DestroyVM(ctx, vm.Name, vm.DiskPath); err != nil {
		return err
	}
	return c.store.DeleteVM(ctx, vm.ID)
}

// runOp validates the transition, serializes on the VM's key, retries the
// driver call per the transient-error backoff schedule, and either
// advances the store to the destination state or quarantines the VM.
func (c *Controller) runOp(ctx context.Context, vm *models.VM, evt models.Event, opName string, op func(ctx context.Context) error) error {
	to, ok := models.Next(vm.State, evt)
	if !ok {
		return hverr.New(hverr.KindConflict, "vm %s cannot %s from state %s", vm.Name, evt, vm.State)
	}

	unlock := c.keys.Lock(vm.Name)
	defer unlock()

	if err := c.store.SetTransitioning(ctx, vm.ID, evt); err != nil {
		return err
	}
	if err := c.retrier.Do(ctx, opName, op); err != nil {
		c.quarantine(ctx, vm, err)
		return err
	}
	return c.store.UpdateVMState(ctx, vm.ID, to, "")
}

func (c *Controller) quarantine(ctx context.Context, vm *models.VM, err error) {
	c.log.Error("quarantining vm", "vm", vm.Name, "error", err)
	if updErr := c.store.UpdateVMState(ctx, vm.ID, models.StateError, err.Error()); updErr != nil {
		c.log.Error("failed to record quarantine", "vm", vm.Name, "error", updErr)
	}
}

// attemptStart issues a (possibly retried) Start and waits for readiness
// within cap. The VM's key must already be held by the caller.
func (c *Controller) attemptStart(ctx context.Context, vm *models.VM, cap time.Duration) (string, error) {
	if err := c.retrier.Do(ctx, "start:"+vm.Name, func(ctx context.Context) error {
		return c.driver.Start(ctx, vm.Name)
	}); err != nil {
		return "", err
	}
	return c.waitForReady(ctx, vm, cap)
}

// waitForReady polls for an IPv4 address plus a successful guest-port dial
// at c.cfg.ReadyPollInterval until cap elapses.
func (c *Controller) waitForReady(ctx context.Context, vm *models.VM, cap time.Duration) (string, error) {
	deadline := time.Now().Add(cap)
	ticker := time.NewTicker(c.cfg.ReadyPollInterval)
	defer ticker.Stop()

	for {
		ip, err := c.driver.QueryIP(ctx, vm.Name)
		if err == nil && ip != "" {
			if ok, _ := c.driver.HeartbeatOK(ctx, vm.Name, c.cfg.GuestPort, 500); ok {
				return ip, nil
			}
		}
		if time.Now().After(deadline) {
			return "", hverr.New(hverr.KindTimeout, "vm %s not ready after %s", vm.Name, cap)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}
