// SPDX-License-Identifier: LGPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"hyperwarm/daemon/models"
	"hyperwarm/hverr"
	"hyperwarm/logger"
	"hyperwarm/providers"
)

type fakeDriver struct {
	vms map[string]providers.VMState
}

func (f *fakeDriver) CreateVM(context.Context, providers.CreateVMSpec) error   { return nil }
func (f *fakeDriver) CloneDisk(context.Context, string, string) error         { return nil }
func (f *fakeDriver) Start(context.Context, string) error                     { return nil }
func (f *fakeDriver) Save(context.Context, string) error                      { return nil }
func (f *fakeDriver) Stop(context.Context, string, bool) error                { return nil }
func (f *fakeDriver) Checkpoint(context.Context, string, string) error        { return nil }
func (f *fakeDriver) RestoreCheckpoint(context.Context, string, string) error  { return nil }
func (f *fakeDriver) QueryIP(context.Context, string) (string, error)         { return "10.0.0.1", nil }
func (f *fakeDriver) HeartbeatOK(context.Context, string, int, int) (bool, error) { return true, nil }
func (f *fakeDriver) DestroyVM(context.Context, string, string) error         { return nil }

func (f *fakeDriver) QueryState(ctx context.Context, vmName string) (providers.VMState, error) {
	s, ok := f.vms[vmName]
	if !ok {
		return providers.VMStateUnknown, errors.New("not found")
	}
	return s, nil
}

func (f *fakeDriver) ListVMs(context.Context) ([]providers.VMSummary, error) {
	out := make([]providers.VMSummary, 0, len(f.vms))
	for name, state := range f.vms {
		out = append(out, providers.VMSummary{Name: name, State: state})
	}
	return out, nil
}

type fakeStore struct {
	vms              map[string]*models.VM
	invalidatedLease string
}

func (fs *fakeStore) ListVMs(ctx context.Context, poolID string) ([]*models.VM, error) {
	out := make([]*models.VM, 0, len(fs.vms))
	for _, v := range fs.vms {
		out = append(out, v)
	}
	return out, nil
}

func (fs *fakeStore) UpdateVMState(ctx context.Context, vmID string, newState models.State, errMsg string) error {
	for _, v := range fs.vms {
		if v.ID == vmID {
			v.State = newState
			v.ErrorMessage = errMsg
			return nil
		}
	}
	return hverr.New(hverr.KindNotFound, "vm not found")
}

func (fs *fakeStore) InvalidateLease(ctx context.Context, vmID string) error {
	fs.invalidatedLease = vmID
	for _, v := range fs.vms {
		if v.ID == vmID {
			v.CurrentLeaseID = ""
			return nil
		}
	}
	return hverr.New(hverr.KindNotFound, "vm not found")
}

type noopPoolMaintainer struct{ called int }

func (n *noopPoolMaintainer) MaintainWarmSet(ctx context.Context, poolID string) error {
	n.called++
	return nil
}

func TestReconcileOnce_CorrectsDrift(t *testing.T) {
	vm := &models.VM{ID: "vm-1", Name: "agents-0", PoolID: "pool-1", State: models.StateSaved}
	driver := &fakeDriver{vms: map[string]providers.VMState{"agents-0": providers.VMStateRunning}}

	r := &Reconciler{
		store:  &fakeStore{vms: map[string]*models.VM{"agents-0": vm}},
		driver: driver,
		pools:  &noopPoolMaintainer{},
		log:    logger.New("error"),
	}

	if err := r.ReconcileOnce(context.Background()); err != nil {
		t.Fatalf("ReconcileOnce: %v", err)
	}
	if vm.State != models.StateRunning {
		t.Errorf("State = %q, want %q", vm.State, models.StateRunning)
	}
}

func TestReconcileOnce_QuarantinesMissingVM(t *testing.T) {
	vm := &models.VM{ID: "vm-1", Name: "agents-0", PoolID: "pool-1", State: models.StateSaved}
	driver := &fakeDriver{vms: map[string]providers.VMState{}}

	r := &Reconciler{
		store:  &fakeStore{vms: map[string]*models.VM{"agents-0": vm}},
		driver: driver,
		pools:  &noopPoolMaintainer{},
		log:    logger.New("error"),
	}

	if err := r.ReconcileOnce(context.Background()); err != nil {
		t.Fatalf("ReconcileOnce: %v", err)
	}
	if vm.State != models.StateError {
		t.Errorf("State = %q, want %q", vm.State, models.StateError)
	}
}

func TestReconcileOnce_InvalidatesLeaseOnExternalStop(t *testing.T) {
	vm := &models.VM{ID: "vm-1", Name: "agents-0", PoolID: "pool-1", State: models.StateRunning, CurrentLeaseID: "lease-1"}
	driver := &fakeDriver{vms: map[string]providers.VMState{"agents-0": providers.VMStateSaved}}

	st := &fakeStore{vms: map[string]*models.VM{"agents-0": vm}}
	r := &Reconciler{
		store:  st,
		driver: driver,
		pools:  &noopPoolMaintainer{},
		log:    logger.New("error"),
	}

	if err := r.ReconcileOnce(context.Background()); err != nil {
		t.Fatalf("ReconcileOnce: %v", err)
	}
	if vm.State != models.StateSaved {
		t.Errorf("State = %q, want %q", vm.State, models.StateSaved)
	}
	if vm.CurrentLeaseID != "" {
		t.Errorf("CurrentLeaseID = %q, want empty after invalidation", vm.CurrentLeaseID)
	}
	if st.invalidatedLease != vm.ID {
		t.Errorf("invalidatedLease = %q, want %q", st.invalidatedLease, vm.ID)
	}
}

func TestRetrier_RetriesOnlyTransientErrors(t *testing.T) {
	r := NewRetrier([]time.Duration{time.Millisecond, time.Millisecond}, logger.New("error"))

	attempts := 0
	err := r.Do(context.Background(), "test-op", func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return hverr.New(hverr.KindTransient, "not ready yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetrier_StopsImmediatelyOnNonTransientError(t *testing.T) {
	r := NewRetrier([]time.Duration{time.Millisecond}, logger.New("error"))

	attempts := 0
	err := r.Do(context.Background(), "test-op", func(ctx context.Context) error {
		attempts++
		return hverr.New(hverr.KindPermanent, "broken")
	})
	if hverr.KindOf(err) != hverr.KindPermanent {
		t.Fatalf("KindOf(err) = %v, want KindPermanent", hverr.KindOf(err))
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}
