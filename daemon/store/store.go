// SPDX-License-Identifier: LGPL-3.0-or-later

// Package store is the durable, transactional record of templates, pools,
// VMs, and leases. It is the only shared mutable state inside the process;
// the acquire path relies on SQLite's single-writer transaction semantics
// as the row-level lock that prevents double-acquisition across restarts.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"hyperwarm/daemon/models"
	"hyperwarm/hverr"
)

func newID() string {
	return uuid.New().String()
}

const schemaVersion = 1

// Store is the persistence interface the lifecycle and pool controllers
// depend on.
type Store interface {
	CreateTemplate(ctx context.Context, t *models.Template) error
	GetTemplate(ctx context.Context, id string) (*models.Template, error)
	GetTemplateByName(ctx context.Context, name string) (*models.Template, error)
	ListTemplates(ctx context.Context) ([]*models.Template, error)
	DeleteTemplate(ctx context.Context, id string) error

	CreatePool(ctx context.Context, p *models.Pool) error
	GetPool(ctx context.Context, id string) (*models.Pool, error)
	GetPoolByName(ctx context.Context, name string) (*models.Pool, error)
	ListPools(ctx context.Context) ([]*models.Pool, error)

	CreateVM(ctx context.Context, v *models.VM) error
	GetVM(ctx context.Context, id string) (*models.VM, error)
	GetVMByName(ctx context.Context, name string) (*models.VM, error)
	ListVMs(ctx context.Context, poolID string) ([]*models.VM, error)
	UpsertVM(ctx context.Context, v *models.VM) error
	UpdateVMState(ctx context.Context, vmID string, newState models.State, errMsg string) error
	SetTransitioning(ctx context.Context, vmID string, evt models.Event) error
	UpdateVMIP(ctx context.Context, vmID, ip string) error
	// UpdateVMLastResumed stamps vmID's last_resumed_at, the tie-break
	// Acquire orders warm VMs by to spread wear across the pool.
	UpdateVMLastResumed(ctx context.Context, vmID string, t time.Time) error
	DeleteVM(ctx context.Context, vmID string) error

	// Acquire atomically selects an eligible VM in pool and stamps it
	// with a freshly minted lease id, returning the VM and lease. Fails
	// with hverr.KindNoCapacity if none is eligible.
	Acquire(ctx context.Context, poolID string) (*models.VM, *models.Lease, error)
	// ReleaseLease clears the lease on vmID and sets its state to Saved.
	// Idempotent: releasing a VM with no active lease succeeds.
	ReleaseLease(ctx context.Context, vmID string) error
	// InvalidateLease clears a lease without changing VM state, used by
	// the reconciler when it observes an externally-caused state change.
	InvalidateLease(ctx context.Context, vmID string) error
	GetLeaseByVM(ctx context.Context, vmID string) (*models.Lease, error)

	Close() error
}

// SQLiteStore implements Store on an embedded SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if absent) the database at dbPath, enables
// WAL mode, restricts the pool to a single writer connection (SQLite's
// substitute for row-level locking: one writer transaction at a time,
// enforced even across process restarts because it is the file's own
// locking, not an in-process mutex), and migrates the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_meta (
		version INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		disk_path TEXT NOT NULL,
		default_mem_mb INTEGER NOT NULL,
		default_cpus INTEGER NOT NULL,
		gpu_enabled BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pools (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		template_id TEXT NOT NULL REFERENCES templates(id),
		desired_count INTEGER NOT NULL,
		warm_count INTEGER NOT NULL,
		per_host_cap INTEGER NOT NULL DEFAULT 0,
		default_reset_on_release BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS vms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		pool_id TEXT NOT NULL REFERENCES pools(id),
		template_id TEXT NOT NULL REFERENCES templates(id),
		state TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		disk_path TEXT NOT NULL,
		saved_state_path TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		current_lease_id TEXT NOT NULL DEFAULT '',
		transitioning TEXT NOT NULL DEFAULT '',
		last_resumed_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_vms_pool ON vms(pool_id);
	CREATE INDEX IF NOT EXISTS idx_vms_state ON vms(state);
	CREATE INDEX IF NOT EXISTS idx_vms_acquire ON vms(pool_id, state, current_lease_id, last_resumed_at);

	CREATE TABLE IF NOT EXISTS leases (
		id TEXT PRIMARY KEY,
		vm_id TEXT NOT NULL REFERENCES vms(id),
		pool_id TEXT NOT NULL,
		acquired_at TIMESTAMP NOT NULL,
		deadline TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_leases_vm ON leases(vm_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_meta").Scan(&count); err != nil {
		return fmt.Errorf("read schema_meta: %w", err)
	}
	if count == 0 {
		if _, err := s.db.Exec("INSERT INTO schema_meta (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("stamp schema version: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && (containsAny(err.Error(), "UNIQUE constraint failed", "constraint failed: UNIQUE"))
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if len(sub) <= len(s) && indexOf(s, sub) >= 0 {
			return true
		}
	}
	return false
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// --- templates ---

func (s *SQLiteStore) CreateTemplate(ctx context.Context, t *models.Template) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO templates (id, name, disk_path, default_mem_mb, default_cpus, gpu_enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.DiskPath, t.DefaultMemMB, t.DefaultCPUs, t.GPUEnabled, t.CreatedAt)
	if isUniqueViolation(err) {
		return hverr.New(hverr.KindConflict, "template %q already exists", t.Name)
	}
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

func scanTemplate(row interface{ Scan(...interface{}) error }) (*models.Template, error) {
	var t models.Template
	err := row.Scan(&t.ID, &t.Name, &t.DiskPath, &t.DefaultMemMB, &t.DefaultCPUs, &t.GPUEnabled, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hverr.New(hverr.KindNotFound, "template not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scan template: %w", err)
	}
	return &t, nil
}

func (s *SQLiteStore) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, disk_path, default_mem_mb, default_cpus, gpu_enabled, created_at FROM templates WHERE id = ?`, id)
	return scanTemplate(row)
}

func (s *SQLiteStore) GetTemplateByName(ctx context.Context, name string) (*models.Template, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, disk_path, default_mem_mb, default_cpus, gpu_enabled, created_at FROM templates WHERE name = ?`, name)
	return scanTemplate(row)
}

func (s *SQLiteStore) ListTemplates(ctx context.Context) ([]*models.Template, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, disk_path, default_mem_mb, default_cpus, gpu_enabled, created_at FROM templates ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []*models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteTemplate(ctx context.Context, id string) error {
	var refCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pools WHERE template_id = ?`, id).Scan(&refCount); err != nil {
		return fmt.Errorf("check template references: %w", err)
	}
	if refCount > 0 {
		return hverr.New(hverr.KindConflict, "template is referenced by %d pool(s)", refCount)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return hverr.New(hverr.KindNotFound, "template not found")
	}
	return nil
}

// --- pools ---

func (s *SQLiteStore) CreatePool(ctx context.Context, p *models.Pool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pools (id, name, template_id, desired_count, warm_count, per_host_cap, default_reset_on_release, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.TemplateID, p.DesiredCount, p.WarmCount, p.PerHostCap, p.DefaultResetOnRelease, p.CreatedAt)
	if isUniqueViolation(err) {
		return hverr.New(hverr.KindConflict, "pool %q already exists", p.Name)
	}
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	return nil
}

func scanPool(row interface{ Scan(...interface{}) error }) (*models.Pool, error) {
	var p models.Pool
	err := row.Scan(&p.ID, &p.Name, &p.TemplateID, &p.DesiredCount, &p.WarmCount, &p.PerHostCap, &p.DefaultResetOnRelease, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hverr.New(hverr.KindNotFound, "pool not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scan pool: %w", err)
	}
	return &p, nil
}

func (s *SQLiteStore) GetPool(ctx context.Context, id string) (*models.Pool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, template_id, desired_count, warm_count, per_host_cap, default_reset_on_release, created_at FROM pools WHERE id = ?`, id)
	return scanPool(row)
}

func (s *SQLiteStore) GetPoolByName(ctx context.Context, name string) (*models.Pool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, template_id, desired_count, warm_count, per_host_cap, default_reset_on_release, created_at FROM pools WHERE name = ?`, name)
	return scanPool(row)
}

func (s *SQLiteStore) ListPools(ctx context.Context) ([]*models.Pool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, template_id, desired_count, warm_count, per_host_cap, default_reset_on_release, created_at FROM pools ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	defer rows.Close()

	var out []*models.Pool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- vms ---

func (s *SQLiteStore) CreateVM(ctx context.Context, v *models.VM) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vms (id, name, pool_id, template_id, state, error_message, disk_path, saved_state_path, ip_address, current_lease_id, transitioning, last_resumed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Name, v.PoolID, v.TemplateID, v.State, v.ErrorMessage, v.DiskPath, v.SavedStatePath, v.IPAddress, v.CurrentLeaseID, v.Transitioning, nullTime(v.LastResumedAt), v.CreatedAt)
	if isUniqueViolation(err) {
		return hverr.New(hverr.KindConflict, "vm %q already exists", v.Name)
	}
	if err != nil {
		return fmt.Errorf("create vm: %w", err)
	}
	return nil
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func scanVM(row interface{ Scan(...interface{}) error }) (*models.VM, error) {
	var v models.VM
	var lastResumed sql.NullTime
	err := row.Scan(&v.ID, &v.Name, &v.PoolID, &v.TemplateID, &v.State, &v.ErrorMessage, &v.DiskPath, &v.SavedStatePath, &v.IPAddress, &v.CurrentLeaseID, &v.Transitioning, &lastResumed, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hverr.New(hverr.KindNotFound, "vm not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scan vm: %w", err)
	}
	if lastResumed.Valid {
		v.LastResumedAt = lastResumed.Time
	}
	return &v, nil
}

const vmColumns = `id, name, pool_id, template_id, state, error_message, disk_path, saved_state_path, ip_address, current_lease_id, transitioning, last_resumed_at, created_at`

func (s *SQLiteStore) GetVM(ctx context.Context, id string) (*models.VM, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+vmColumns+` FROM vms WHERE id = ?`, id)
	return scanVM(row)
}

func (s *SQLiteStore) GetVMByName(ctx context.Context, name string) (*models.VM, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+vmColumns+` FROM vms WHERE name = ?`, name)
	return scanVM(row)
}

func (s *SQLiteStore) ListVMs(ctx context.Context, poolID string) ([]*models.VM, error) {
	query := `SELECT ` + vmColumns + ` FROM vms`
	var rows *sql.Rows
	var err error
	if poolID != "" {
		query += ` WHERE pool_id = ? ORDER BY name`
		rows, err = s.db.QueryContext(ctx, query, poolID)
	} else {
		query += ` ORDER BY name`
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list vms: %w", err)
	}
	defer rows.Close()

	var out []*models.VM
	for rows.Next() {
		v, err := scanVM(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpsertVM writes v in full, inserting if absent or overwriting every
// mutable field if present. Used by the reconciler to make the store match
// observed hypervisor truth.
func (s *SQLiteStore) UpsertVM(ctx context.Context, v *models.VM) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vms (`+vmColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, pool_id=excluded.pool_id, template_id=excluded.template_id,
			state=excluded.state, error_message=excluded.error_message, disk_path=excluded.disk_path,
			saved_state_path=excluded.saved_state_path, ip_address=excluded.ip_address,
			current_lease_id=excluded.current_lease_id, transitioning=excluded.transitioning,
			last_resumed_at=excluded.last_resumed_at`,
		v.ID, v.Name, v.PoolID, v.TemplateID, v.State, v.ErrorMessage, v.DiskPath, v.SavedStatePath, v.IPAddress, v.CurrentLeaseID, v.Transitioning, nullTime(v.LastResumedAt), v.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert vm: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateVMState(ctx context.Context, vmID string, newState models.State, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE vms SET state = ?, error_message = ?, transitioning = '' WHERE id = ?`, newState, errMsg, vmID)
	if err != nil {
		return fmt.Errorf("update vm state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return hverr.New(hverr.KindNotFound, "vm not found")
	}
	return nil
}

// SetTransitioning stamps the VM row with the event currently in flight,
// inside the same transaction boundary as the caller's subsequent driver
// call semantically belongs to: a crash between this write and the matching
// UpdateVMState leaves the marker for the reconciler to resolve.
func (s *SQLiteStore) SetTransitioning(ctx context.Context, vmID string, evt models.Event) error {
	_, err := s.db.ExecContext(ctx, `UPDATE vms SET transitioning = ? WHERE id = ?`, string(evt), vmID)
	if err != nil {
		return fmt.Errorf("set transitioning: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateVMIP(ctx context.Context, vmID, ip string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE vms SET ip_address = ? WHERE id = ?`, ip, vmID)
	if err != nil {
		return fmt.Errorf("update vm ip: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateVMLastResumed(ctx context.Context, vmID string, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE vms SET last_resumed_at = ? WHERE id = ?`, t, vmID)
	if err != nil {
		return fmt.Errorf("update vm last_resumed_at: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteVM(ctx context.Context, vmID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM leases WHERE vm_id = ?`, vmID); err != nil {
		return fmt.Errorf("delete vm leases: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM vms WHERE id = ?`, vmID)
	if err != nil {
		return fmt.Errorf("delete vm: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return hverr.New(hverr.KindNotFound, "vm not found")
	}
	return nil
}

// --- leases / acquire ---

// Acquire implements the §4.2 acquire transaction: select any eligible VM
// (Saved, unleased), tie-breaking least-recently-resumed first, and stamp
// it with a fresh lease id, all inside one write transaction. SQLite's
// single-writer-connection semantics (see NewSQLiteStore) make this the
// equivalent of SELECT ... FOR UPDATE: a second concurrent Acquire call
// blocks on the database lock until this transaction commits or rolls
// back, so it is impossible for two callers to receive the same VM.
func (s *SQLiteStore) Acquire(ctx context.Context, poolID string) (*models.VM, *models.Lease, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin acquire transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+vmColumns+` FROM vms
		WHERE pool_id = ? AND state = ? AND current_lease_id = ''
		ORDER BY last_resumed_at ASC
		LIMIT 1`, poolID, models.StateSaved)

	vm, err := scanVM(row)
	if err != nil {
		if hverr.KindOf(err) == hverr.KindNotFound {
			return nil, nil, hverr.New(hverr.KindNoCapacity, "no eligible vm in pool")
		}
		return nil, nil, err
	}

	lease := &models.Lease{
		ID:         newID(),
		VMID:       vm.ID,
		PoolID:     poolID,
		AcquiredAt: time.Now(),
	}

	if _, err := tx.ExecContext(ctx, `UPDATE vms SET current_lease_id = ? WHERE id = ?`, lease.ID, vm.ID); err != nil {
		return nil, nil, fmt.Errorf("stamp lease: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO leases (id, vm_id, pool_id, acquired_at, deadline) VALUES (?, ?, ?, ?, ?)`,
		lease.ID, lease.VMID, lease.PoolID, lease.AcquiredAt, nil); err != nil {
		return nil, nil, fmt.Errorf("insert lease: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit acquire: %w", err)
	}

	vm.CurrentLeaseID = lease.ID
	return vm, lease, nil
}

func (s *SQLiteStore) ReleaseLease(ctx context.Context, vmID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin release transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM leases WHERE vm_id = ?`, vmID); err != nil {
		return fmt.Errorf("delete lease: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE vms SET current_lease_id = '', state = ? WHERE id = ?`, models.StateSaved, vmID); err != nil {
		return fmt.Errorf("clear lease: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) InvalidateLease(ctx context.Context, vmID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin invalidate transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM leases WHERE vm_id = ?`, vmID); err != nil {
		return fmt.Errorf("delete lease: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE vms SET current_lease_id = '' WHERE id = ?`, vmID); err != nil {
		return fmt.Errorf("clear lease: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetLeaseByVM(ctx context.Context, vmID string) (*models.Lease, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, vm_id, pool_id, acquired_at, deadline FROM leases WHERE vm_id = ?`, vmID)
	var l models.Lease
	var deadline sql.NullTime
	err := row.Scan(&l.ID, &l.VMID, &l.PoolID, &l.AcquiredAt, &deadline)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hverr.New(hverr.KindNotFound, "no active lease")
	}
	if err != nil {
		return nil, fmt.Errorf("scan lease: %w", err)
	}
	if deadline.Valid {
		l.Deadline = &deadline.Time
	}
	return &l, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
