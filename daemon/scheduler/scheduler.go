// SPDX-License-Identifier: LGPL-3.0-or-later

// Package scheduler runs the reconciliation loop: on a fixed period it
// diffs the store's view of every VM against the hypervisor's actual
// state and corrects drift, and asks the pool controller to top up any
// pool whose warm set has fallen below target.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"hyperwarm/daemon/models"
	"hyperwarm/logger"
	"hyperwarm/providers"
)

// reconcilerStore is the narrow slice of store.Store the reconciler needs.
// Declared here, on the consumer side, so tests can satisfy it with a
// lightweight fake instead of the full persistence interface.
type reconcilerStore interface {
	ListVMs(ctx context.Context, poolID string) ([]*models.VM, error)
	UpdateVMState(ctx context.Context, vmID string, newState models.State, errMsg string) error
	InvalidateLease(ctx context.Context, vmID string) error
}

// PoolMaintainer is the pool controller's side of reconciliation: given a
// pool, bring its warm set back up to target. The reconciler depends on
// this interface rather than the concrete pool package to avoid an import
// cycle (pool imports lifecycle, which imports this package for Retrier).
type PoolMaintainer interface {
	MaintainWarmSet(ctx context.Context, poolID string) error
}

// Reconciler periodically reconciles store state against hypervisor truth
// and maintains every pool's warm set.
type Reconciler struct {
	cron     *cron.Cron
	entryID  cron.EntryID
	store    reconcilerStore
	driver   providers.Driver
	pools    PoolMaintainer
	log      logger.Logger
	interval time.Duration

	mu      sync.Mutex
	running bool
	lastRun time.Time
	runs    int
}

// New builds a Reconciler. interval is the poll period; a zero or
// negative interval defaults to 60s.
func New(st reconcilerStore, driver providers.Driver, pools PoolMaintainer, interval time.Duration, log logger.Logger) *Reconciler {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Reconciler{
		cron:     cron.New(),
		store:    st,
		driver:   driver,
		pools:    pools,
		interval: interval,
		log:      log,
	}
}

// Start schedules the reconcile loop and begins running it.
func (r *Reconciler) Start() error {
	spec := fmt.Sprintf("@every %s", r.interval)
	entryID, err := r.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.interval)
		defer cancel()
		if err := r.ReconcileOnce(ctx); err != nil {
			r.log.Error("reconcile pass failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reconcile loop: %w", err)
	}
	r.entryID = entryID
	r.cron.Start()
	r.log.Info("reconcile loop started", "interval", r.interval)
	return nil
}

// Stop cancels the scheduled loop and waits for any in-flight run to
// finish.
func (r *Reconciler) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.log.Info("reconcile loop stopped")
}

// TriggerNow runs one reconcile pass immediately, outside the schedule.
// Used by the CLI's `reconcile` subcommand.
func (r *Reconciler) TriggerNow(ctx context.Context) error {
	return r.ReconcileOnce(ctx)
}

// ReconcileOnce walks every known VM, compares the store's recorded state
// to what the driver reports, and corrects the store when they disagree.
// A VM the driver can no longer find is quarantined rather than deleted,
// since its disk and lease history may still matter to an operator.
func (r *Reconciler) ReconcileOnce(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("reconcile already in progress")
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.lastRun = time.Now()
		r.runs++
		r.mu.Unlock()
	}()

	vms, err := r.store.ListVMs(ctx, "")
	if err != nil {
		return fmt.Errorf("list vms: %w", err)
	}

	summaries, err := r.driver.ListVMs(ctx)
	if err != nil {
		return fmt.Errorf("list hypervisor vms: %w", err)
	}
	observed := make(map[string]providers.VMState, len(summaries))
	for _, sm := range summaries {
		observed[sm.Name] = sm.State
	}

	tracked := make(map[string]bool, len(vms))
	pools := map[string]bool{}
	for _, vm := range vms {
		tracked[vm.Name] = true
		pools[vm.PoolID] = true
		r.reconcileVM(ctx, vm, observed)
	}

	for name := range observed {
		if tracked[name] {
			continue
		}
		if looksLikePoolMember(name) {
			r.log.Info("untracked vm matches pool naming convention, ignoring", "vm", name)
		}
	}

	if r.pools != nil {
		for poolID := range pools {
			if err := r.pools.MaintainWarmSet(ctx, poolID); err != nil {
				r.log.Error("maintain warm set failed", "pool", poolID, "error", err)
			}
		}
	}

	return nil
}

func (r *Reconciler) reconcileVM(ctx context.Context, vm *models.VM, observed map[string]providers.VMState) {
	raw, found := observed[vm.Name]
	if !found {
		if vm.State != models.StateError {
			r.log.Error("vm missing from hypervisor, quarantining", "vm", vm.Name)
			if err := r.store.UpdateVMState(ctx, vm.ID, models.StateError, "not found on hypervisor during reconcile"); err != nil {
				r.log.Error("quarantine vm failed", "vm", vm.Name, "error", err)
			}
		}
		return
	}

	want := driverStateToModel(raw)
	if want == "" || want == vm.State {
		return
	}

	r.log.Info("reconcile drift detected", "vm", vm.Name, "recorded", vm.State, "observed", want)

	// A VM that left Running for Saved or Off outside our own resume/save
	// path was stopped by something other than a tracked release (an
	// operator, a host reboot, Hyper-V itself). Any lease we hold on it is
	// now stale and must not be handed out again.
	if vm.State == models.StateRunning && (want == models.StateSaved || want == models.StateOff) && vm.CurrentLeaseID != "" {
		r.log.Error("observed external state change on leased vm, invalidating lease", "vm", vm.Name, "from", vm.State, "to", want)
		if err := r.store.InvalidateLease(ctx, vm.ID); err != nil {
			r.log.Error("invalidate lease failed", "vm", vm.Name, "error", err)
		}
	}

	if err := r.store.UpdateVMState(ctx, vm.ID, want, ""); err != nil {
		r.log.Error("update vm state failed", "vm", vm.Name, "error", err)
	}
}

// looksLikePoolMember reports whether name follows the "<pool>-<index>"
// naming convention used by provisioned VMs, without implying the VM is
// actually one of ours. Hypervisor inventory can contain unrelated VMs
// that happen to match; the reconciler never adopts a VM it didn't
// provision, so this only gates a log line, not a store write.
func looksLikePoolMember(name string) bool {
	idx := strings.LastIndex(name, "-")
	if idx <= 0 || idx == len(name)-1 {
		return false
	}
	_, err := strconv.Atoi(name[idx+1:])
	return err == nil
}

func driverStateToModel(s providers.VMState) models.State {
	switch s {
	case providers.VMStateRunning:
		return models.StateRunning
	case providers.VMStateOff:
		return models.StateOff
	case providers.VMStateSaved:
		return models.StateSaved
	case providers.VMStatePaused:
		return models.StatePaused
	default:
		return ""
	}
}

// Stats reports reconcile-loop counters.
type Stats struct {
	Runs    int
	LastRun time.Time
}

// GetStats returns the reconciler's run counters.
func (r *Reconciler) GetStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{Runs: r.runs, LastRun: r.lastRun}
}
