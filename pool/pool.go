// SPDX-License-Identifier: LGPL-3.0-or-later

// Package pool implements the Pool Controller: provisioning, warm-set
// preparation, lease acquisition and release, and the background warm-set
// maintenance that keeps a pool's saved-and-unleased VM count at target.
package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"hyperwarm/daemon/models"
	"hyperwarm/hverr"
	"hyperwarm/lifecycle"
	"hyperwarm/logger"
)

// batchErrors collects every failure from a batch of errgroup goroutines.
// errgroup.Group.Wait only returns the first error; a batch of independent
// per-VM operations needs to report every failure, so each goroutine
// records its own error here and returns nil to the group.
type batchErrors struct {
	mu   sync.Mutex
	errs []error
}

func (b *batchErrors) add(err error) {
	b.mu.Lock()
	b.errs = append(b.errs, err)
	b.mu.Unlock()
}

// DefaultProvisionConcurrency bounds how many per-VM operations one
// Provision or Prepare call runs at once. Each call builds its own
// semaphore, so concurrent calls are not bounded together.
const DefaultProvisionConcurrency = 2

// Store is the narrow slice of store.Store the pool controller needs.
type Store interface {
	GetPool(ctx context.Context, id string) (*models.Pool, error)
	GetTemplate(ctx context.Context, id string) (*models.Template, error)
	ListVMs(ctx context.Context, poolID string) ([]*models.VM, error)
	GetVMByName(ctx context.Context, name string) (*models.VM, error)
	Acquire(ctx context.Context, poolID string) (*models.VM, *models.Lease, error)
	ReleaseLease(ctx context.Context, vmID string) error
	InvalidateLease(ctx context.Context, vmID string) error
}

// HostCapacityChecker reports the host's currently free memory. Satisfied
// by providers/hyperv.Client; the pool controller degrades to no capacity
// guard when nil (e.g. in tests against a driver that exposes none).
type HostCapacityChecker interface {
	HostFreeMemoryMB(ctx context.Context) (int64, error)
}

// AcquireResult is what the façade returns to a caller that successfully
// acquired a warm VM.
type AcquireResult struct {
	VMName       string
	IPAddress    string
	LeaseID      string
	ResumeTimeMS int64
}

// Controller implements provision/prepare/acquire/release/maintain over a
// Store and a lifecycle.Controller.
type Controller struct {
	store       Store
	lifecycle   *lifecycle.Controller
	capacity    HostCapacityChecker
	concurrency int
	headroomMB  int64
	log         logger.Logger
}

// New builds a pool Controller. capacity may be nil to skip the
// host-memory guard (e.g. the driver does not implement it).
func New(store Store, lc *lifecycle.Controller, capacity HostCapacityChecker, headroomMB int64, log logger.Logger) *Controller {
	return &Controller{
		store:       store,
		lifecycle:   lc,
		capacity:    capacity,
		concurrency: DefaultProvisionConcurrency,
		headroomMB:  headroomMB,
		log:         log,
	}
}

// Provision creates count new VM slots, named "<pool>-<index>" continuing
// from the pool's current VM count, bounded to c.concurrency concurrent
// clone-and-define operations. A per-VM failure is recorded but does not
// abort the rest of the batch.
func (c *Controller) Provision(ctx context.Context, poolID string, count int) error {
	pool, err := c.store.GetPool(ctx, poolID)
	if err != nil {
		return err
	}
	tpl, err := c.store.GetTemplate(ctx, pool.TemplateID)
	if err != nil {
		return err
	}
	existing, err := c.store.ListVMs(ctx, poolID)
	if err != nil {
		return err
	}

	sem := semaphore.NewWeighted(int64(c.concurrency))
	var wg errgroup.Group
	var errs batchErrors
	var mErr *multierror.Error
	start := len(existing)

	for i := start; i < start+count; i++ {
		i := i
		name := fmt.Sprintf("%s-%d", pool.Name, i)
		if err := sem.Acquire(ctx, 1); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("%s: %w", name, err))
			continue
		}
		wg.Go(func() error {
			defer sem.Release(1)
			if _, err := c.lifecycle.Provision(ctx, pool, tpl, name); err != nil {
				c.log.Error("provision failed", "vm", name, "error", err)
				errs.add(fmt.Errorf("%s: %w", name, err))
			}
			return nil
		})
	}
	wg.Wait()
	for _, e := range errs.errs {
		mErr = multierror.Append(mErr, e)
	}

	return mErr.ErrorOrNil()
}

// Prepare drives every Off VM in the pool through first_boot → checkpoint
// → save, landing each in Saved. Per-VM failures are recorded but do not
// abort the batch.
func (c *Controller) Prepare(ctx context.Context, poolID string) error {
	vms, err := c.store.ListVMs(ctx, poolID)
	if err != nil {
		return err
	}

	pending := make([]*models.VM, 0, len(vms))
	for _, vm := range vms {
		if vm.State == models.StateOff {
			pending = append(pending, vm)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	pool, err := c.store.GetPool(ctx, poolID)
	if err != nil {
		return err
	}
	tpl, err := c.store.GetTemplate(ctx, pool.TemplateID)
	if err != nil {
		return err
	}

	sem := semaphore.NewWeighted(int64(c.concurrency))
	var wg errgroup.Group
	var errs batchErrors

	for _, vm := range pending {
		vm := vm
		if err := c.checkCapacity(ctx, tpl, 1); err != nil {
			errs.add(fmt.Errorf("%s: %w", vm.Name, err))
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			errs.add(fmt.Errorf("%s: %w", vm.Name, err))
			continue
		}
		wg.Go(func() error {
			defer sem.Release(1)
			if err := c.prepareOne(ctx, vm); err != nil {
				c.log.Error("prepare failed", "vm", vm.Name, "error", err)
				errs.add(fmt.Errorf("%s: %w", vm.Name, err))
			}
			return nil
		})
	}
	wg.Wait()

	var mErr *multierror.Error
	for _, e := range errs.errs {
		mErr = multierror.Append(mErr, e)
	}
	return mErr.ErrorOrNil()
}

func (c *Controller) prepareOne(ctx context.Context, vm *models.VM) error {
	if err := c.lifecycle.FirstBoot(ctx, vm.ID); err != nil {
		return err
	}
	if err := c.lifecycle.Checkpoint(ctx, vm.ID, "clean"); err != nil {
		return err
	}
	return c.lifecycle.Save(ctx, vm.ID)
}

// Acquire checks host capacity for one more running VM of the pool's
// template, selects an eligible VM, stamps a lease, and resumes it. If
// resume fails the lease is invalidated (the VM itself is already
// quarantined by the lifecycle controller) and the error surfaces.
func (c *Controller) Acquire(ctx context.Context, poolID string) (*AcquireResult, error) {
	pool, err := c.store.GetPool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	tpl, err := c.store.GetTemplate(ctx, pool.TemplateID)
	if err != nil {
		return nil, err
	}
	if err := c.checkCapacity(ctx, tpl, 1); err != nil {
		return nil, err
	}

	vm, lease, err := c.store.Acquire(ctx, poolID)
	if err != nil {
		return nil, err
	}

	ip, ms, err := c.lifecycle.Resume(ctx, vm.ID)
	if err != nil {
		if invErr := c.store.InvalidateLease(ctx, vm.ID); invErr != nil {
			c.log.Error("invalidate lease after failed resume failed", "vm", vm.Name, "error", invErr)
		}
		return nil, err
	}

	return &AcquireResult{
		VMName:       vm.Name,
		IPAddress:    ip,
		LeaseID:      lease.ID,
		ResumeTimeMS: ms,
	}, nil
}

// Release saves a leased VM back to Saved (optionally reverting to the
// clean checkpoint first) and clears its lease. Releasing a VM with no
// active lease is idempotent.
func (c *Controller) Release(ctx context.Context, vmName string, reset bool) error {
	vm, err := c.store.GetVMByName(ctx, vmName)
	if err != nil {
		return err
	}
	if !vm.IsLeased() {
		return nil
	}

	if reset {
		if err := c.lifecycle.Restore(ctx, vm.ID, "clean"); err != nil {
			return err
		}
	}
	if err := c.lifecycle.Save(ctx, vm.ID); err != nil {
		return err
	}
	return c.store.ReleaseLease(ctx, vm.ID)
}

// MaintainWarmSet tops up a pool whose saved-and-unleased count has fallen
// below warm_count by preparing additional Off VMs, subject to the host
// capacity guard. Called by the reconciler each pass.
func (c *Controller) MaintainWarmSet(ctx context.Context, poolID string) error {
	pool, err := c.store.GetPool(ctx, poolID)
	if err != nil {
		return err
	}
	vms, err := c.store.ListVMs(ctx, poolID)
	if err != nil {
		return err
	}

	warm := 0
	var offVMs []*models.VM
	for _, vm := range vms {
		if vm.Eligible() {
			warm++
		}
		if vm.State == models.StateOff {
			offVMs = append(offVMs, vm)
		}
	}

	deficit := pool.WarmCount - warm
	if deficit <= 0 || len(offVMs) == 0 {
		return nil
	}
	if deficit > len(offVMs) {
		deficit = len(offVMs)
	}

	tpl, err := c.store.GetTemplate(ctx, pool.TemplateID)
	if err != nil {
		return err
	}

	var mErr *multierror.Error
	for i := 0; i < deficit; i++ {
		vm := offVMs[i]
		if err := c.checkCapacity(ctx, tpl, 1); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("%s: %w", vm.Name, err))
			continue
		}
		if err := c.prepareOne(ctx, vm); err != nil {
			c.log.Error("warm-set top-up failed", "vm", vm.Name, "error", err)
			mErr = multierror.Append(mErr, fmt.Errorf("%s: %w", vm.Name, err))
		}
	}
	return mErr.ErrorOrNil()
}

// checkCapacity refuses an action that would start n more VMs of tpl's
// memory size if doing so would cross the host-headroom floor.
func (c *Controller) checkCapacity(ctx context.Context, tpl *models.Template, n int) error {
	if c.capacity == nil {
		return nil
	}
	free, err := c.capacity.HostFreeMemoryMB(ctx)
	if err != nil {
		return fmt.Errorf("query host free memory: %w", err)
	}
	required := int64(tpl.DefaultMemMB) * int64(n)
	if required > free-c.headroomMB {
		return hverr.New(hverr.KindNoMemory, "starting %d vm(s) needs %dMB but only %dMB is free above the %dMB headroom", n, required, free, c.headroomMB)
	}
	return nil
}
