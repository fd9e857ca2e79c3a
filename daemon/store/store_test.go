// SPDX-License-Identifier: LGPL-3.0-or-later

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"hyperwarm/daemon/models"
	"hyperwarm/hverr"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "hyperwarm-store-*.db")
	if err != nil {
		t.Fatal(err)
	}
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	s, err := NewSQLiteStore(tmpFile.Name())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedTemplate(t *testing.T, s *SQLiteStore) *models.Template {
	t.Helper()
	tpl := &models.Template{
		ID:           newID(),
		Name:         "win11-golden",
		DiskPath:     `C:\vms\templates\win11.vhdx`,
		DefaultMemMB: 4096,
		DefaultCPUs:  2,
		CreatedAt:    time.Now(),
	}
	if err := s.CreateTemplate(context.Background(), tpl); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	return tpl
}

func seedPool(t *testing.T, s *SQLiteStore, tpl *models.Template) *models.Pool {
	t.Helper()
	pool := &models.Pool{
		ID:           newID(),
		Name:         "agents",
		TemplateID:   tpl.ID,
		DesiredCount: 3,
		WarmCount:    3,
		CreatedAt:    time.Now(),
	}
	if err := s.CreatePool(context.Background(), pool); err != nil {
		t.Fatalf("CreatePool: %v", err)
	}
	return pool
}

func seedVM(t *testing.T, s *SQLiteStore, pool *models.Pool, tpl *models.Template, name string, state models.State) *models.VM {
	t.Helper()
	vm := &models.VM{
		ID:         newID(),
		Name:       name,
		PoolID:     pool.ID,
		TemplateID: tpl.ID,
		State:      state,
		DiskPath:   `C:\vms\agents\` + name + `.vhdx`,
		CreatedAt:  time.Now(),
	}
	if err := s.CreateVM(context.Background(), vm); err != nil {
		t.Fatalf("CreateVM: %v", err)
	}
	return vm
}

func TestCreateAndGetTemplate(t *testing.T) {
	s := newTestStore(t)
	tpl := seedTemplate(t, s)

	got, err := s.GetTemplate(context.Background(), tpl.ID)
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if got.Name != tpl.Name {
		t.Errorf("Name = %q, want %q", got.Name, tpl.Name)
	}

	byName, err := s.GetTemplateByName(context.Background(), tpl.Name)
	if err != nil {
		t.Fatalf("GetTemplateByName: %v", err)
	}
	if byName.ID != tpl.ID {
		t.Errorf("ID = %q, want %q", byName.ID, tpl.ID)
	}
}

func TestCreateTemplate_DuplicateNameConflicts(t *testing.T) {
	s := newTestStore(t)
	tpl := seedTemplate(t, s)

	dup := &models.Template{ID: newID(), Name: tpl.Name, DiskPath: tpl.DiskPath, CreatedAt: time.Now()}
	err := s.CreateTemplate(context.Background(), dup)
	if hverr.KindOf(err) != hverr.KindConflict {
		t.Fatalf("KindOf(err) = %v, want KindConflict", hverr.KindOf(err))
	}
}

func TestDeleteTemplate_RefusesWhenPoolReferencesIt(t *testing.T) {
	s := newTestStore(t)
	tpl := seedTemplate(t, s)
	seedPool(t, s, tpl)

	err := s.DeleteTemplate(context.Background(), tpl.ID)
	if hverr.KindOf(err) != hverr.KindConflict {
		t.Fatalf("KindOf(err) = %v, want KindConflict", hverr.KindOf(err))
	}
}

func TestListVMs_FiltersByPool(t *testing.T) {
	s := newTestStore(t)
	tpl := seedTemplate(t, s)
	poolA := seedPool(t, s, tpl)

	poolB := &models.Pool{ID: newID(), Name: "other", TemplateID: tpl.ID, DesiredCount: 1, WarmCount: 1, CreatedAt: time.Now()}
	if err := s.CreatePool(context.Background(), poolB); err != nil {
		t.Fatalf("CreatePool: %v", err)
	}

	seedVM(t, s, poolA, tpl, "agents-0", models.StateSaved)
	seedVM(t, s, poolA, tpl, "agents-1", models.StateSaved)
	seedVM(t, s, poolB, tpl, "other-0", models.StateSaved)

	got, err := s.ListVMs(context.Background(), poolA.ID)
	if err != nil {
		t.Fatalf("ListVMs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}

	all, err := s.ListVMs(context.Background(), "")
	if err != nil {
		t.Fatalf("ListVMs(all): %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
}

func TestUpdateVMState(t *testing.T) {
	s := newTestStore(t)
	tpl := seedTemplate(t, s)
	pool := seedPool(t, s, tpl)
	vm := seedVM(t, s, pool, tpl, "agents-0", models.StateOff)

	if err := s.UpdateVMState(context.Background(), vm.ID, models.StateRunning, ""); err != nil {
		t.Fatalf("UpdateVMState: %v", err)
	}

	got, err := s.GetVM(context.Background(), vm.ID)
	if err != nil {
		t.Fatalf("GetVM: %v", err)
	}
	if got.State != models.StateRunning {
		t.Errorf("State = %q, want %q", got.State, models.StateRunning)
	}
}

func TestAcquire_SelectsEligibleVMAndStampsLease(t *testing.T) {
	s := newTestStore(t)
	tpl := seedTemplate(t, s)
	pool := seedPool(t, s, tpl)
	seedVM(t, s, pool, tpl, "agents-0", models.StateRunning)
	saved := seedVM(t, s, pool, tpl, "agents-1", models.StateSaved)

	vm, lease, err := s.Acquire(context.Background(), pool.ID)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if vm.ID != saved.ID {
		t.Fatalf("vm.ID = %q, want %q", vm.ID, saved.ID)
	}
	if lease.VMID != saved.ID {
		t.Errorf("lease.VMID = %q, want %q", lease.VMID, saved.ID)
	}

	got, err := s.GetVM(context.Background(), saved.ID)
	if err != nil {
		t.Fatalf("GetVM: %v", err)
	}
	if !got.IsLeased() {
		t.Error("vm not marked leased after Acquire")
	}
}

func TestAcquire_NoCapacityWhenNoneEligible(t *testing.T) {
	s := newTestStore(t)
	tpl := seedTemplate(t, s)
	pool := seedPool(t, s, tpl)
	seedVM(t, s, pool, tpl, "agents-0", models.StateRunning)

	_, _, err := s.Acquire(context.Background(), pool.ID)
	if hverr.KindOf(err) != hverr.KindNoCapacity {
		t.Fatalf("KindOf(err) = %v, want KindNoCapacity", hverr.KindOf(err))
	}
}

func TestAcquire_DoesNotDoubleAssignSameVM(t *testing.T) {
	s := newTestStore(t)
	tpl := seedTemplate(t, s)
	pool := seedPool(t, s, tpl)
	saved := seedVM(t, s, pool, tpl, "agents-0", models.StateSaved)

	vm1, _, err := s.Acquire(context.Background(), pool.ID)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if vm1.ID != saved.ID {
		t.Fatalf("vm1.ID = %q, want %q", vm1.ID, saved.ID)
	}

	_, _, err = s.Acquire(context.Background(), pool.ID)
	if hverr.KindOf(err) != hverr.KindNoCapacity {
		t.Fatalf("second Acquire KindOf(err) = %v, want KindNoCapacity", hverr.KindOf(err))
	}
}

func TestReleaseLease_ReturnsVMToSavedAndUnleased(t *testing.T) {
	s := newTestStore(t)
	tpl := seedTemplate(t, s)
	pool := seedPool(t, s, tpl)
	saved := seedVM(t, s, pool, tpl, "agents-0", models.StateSaved)

	if _, _, err := s.Acquire(context.Background(), pool.ID); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := s.ReleaseLease(context.Background(), saved.ID); err != nil {
		t.Fatalf("ReleaseLease: %v", err)
	}

	got, err := s.GetVM(context.Background(), saved.ID)
	if err != nil {
		t.Fatalf("GetVM: %v", err)
	}
	if got.IsLeased() {
		t.Error("vm still leased after ReleaseLease")
	}
	if got.State != models.StateSaved {
		t.Errorf("State = %q, want %q", got.State, models.StateSaved)
	}

	// Idempotent: releasing again (no active lease) must not fail.
	if err := s.ReleaseLease(context.Background(), saved.ID); err != nil {
		t.Fatalf("second ReleaseLease: %v", err)
	}
}

func TestUpsertVM_InsertsThenUpdates(t *testing.T) {
	s := newTestStore(t)
	tpl := seedTemplate(t, s)
	pool := seedPool(t, s, tpl)

	vm := &models.VM{
		ID:         newID(),
		Name:       "agents-0",
		PoolID:     pool.ID,
		TemplateID: tpl.ID,
		State:      models.StateOff,
		DiskPath:   `C:\vms\agents\agents-0.vhdx`,
		CreatedAt:  time.Now(),
	}
	if err := s.UpsertVM(context.Background(), vm); err != nil {
		t.Fatalf("UpsertVM (insert): %v", err)
	}

	vm.State = models.StateRunning
	vm.IPAddress = "10.0.0.5"
	if err := s.UpsertVM(context.Background(), vm); err != nil {
		t.Fatalf("UpsertVM (update): %v", err)
	}

	got, err := s.GetVM(context.Background(), vm.ID)
	if err != nil {
		t.Fatalf("GetVM: %v", err)
	}
	if got.State != models.StateRunning || got.IPAddress != "10.0.0.5" {
		t.Errorf("got = %+v, want state=running ip=10.0.0.5", got)
	}
}
