// SPDX-License-Identifier: LGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"hyperwarm/daemon/models"
	"hyperwarm/logger"
)

// fakeStore implements store.Store with an in-memory map, enough to drive
// the WebSocket snapshot and the read-only inspection endpoints.
type fakeStore struct {
	mu        sync.Mutex
	templates map[string]*models.Template
	pools     map[string]*models.Pool
	vms       map[string]*models.VM
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		templates: make(map[string]*models.Template),
		pools:     make(map[string]*models.Pool),
		vms:       make(map[string]*models.VM),
	}
}

func (s *fakeStore) CreateTemplate(ctx context.Context, t *models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = t
	return nil
}
func (s *fakeStore) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.templates[id], nil
}
func (s *fakeStore) GetTemplateByName(ctx context.Context, name string) (*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.templates {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, nil
}
func (s *fakeStore) ListTemplates(ctx context.Context) ([]*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Template, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	return out, nil
}
func (s *fakeStore) DeleteTemplate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.templates, id)
	return nil
}

func (s *fakeStore) CreatePool(ctx context.Context, p *models.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[p.ID] = p
	return nil
}
func (s *fakeStore) GetPool(ctx context.Context, id string) (*models.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pools[id], nil
}
func (s *fakeStore) GetPoolByName(ctx context.Context, name string) (*models.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pools {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, nil
}
func (s *fakeStore) ListPools(ctx context.Context) ([]*models.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Pool, 0, len(s.pools))
	for _, p := range s.pools {
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeStore) CreateVM(ctx context.Context, v *models.VM) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vms[v.ID] = v
	return nil
}
func (s *fakeStore) GetVM(ctx context.Context, id string) (*models.VM, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vms[id], nil
}
func (s *fakeStore) GetVMByName(ctx context.Context, name string) (*models.VM, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.vms {
		if v.Name == name {
			return v, nil
		}
	}
	return nil, nil
}
func (s *fakeStore) ListVMs(ctx context.Context, poolID string) ([]*models.VM, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.VM, 0)
	for _, v := range s.vms {
		if v.PoolID == poolID {
			out = append(out, v)
		}
	}
	return out, nil
}
func (s *fakeStore) UpsertVM(ctx context.Context, v *models.VM) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vms[v.ID] = v
	return nil
}
func (s *fakeStore) UpdateVMState(ctx context.Context, vmID string, newState models.State, errMsg string) error {
	return nil
}
func (s *fakeStore) SetTransitioning(ctx context.Context, vmID string, evt models.Event) error {
	return nil
}
func (s *fakeStore) UpdateVMIP(ctx context.Context, vmID, ip string) error { return nil }
func (s *fakeStore) UpdateVMLastResumed(ctx context.Context, vmID string, t time.Time) error {
	return nil
}
func (s *fakeStore) DeleteVM(ctx context.Context, vmID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vms, vmID)
	return nil
}

func (s *fakeStore) Acquire(ctx context.Context, poolID string) (*models.VM, *models.Lease, error) {
	return nil, nil, nil
}
func (s *fakeStore) ReleaseLease(ctx context.Context, vmID string) error    { return nil }
func (s *fakeStore) InvalidateLease(ctx context.Context, vmID string) error { return nil }
func (s *fakeStore) GetLeaseByVM(ctx context.Context, vmID string) (*models.Lease, error) {
	return nil, nil
}
func (s *fakeStore) Close() error { return nil }

func newTestServer(t *testing.T) (*Server, *fakeStore) {
	t.Helper()
	st := newFakeStore()
	pool := &models.Pool{ID: "pool-1", Name: "agents", TemplateID: "tpl-1", DesiredCount: 2, WarmCount: 1}
	st.pools[pool.ID] = pool
	st.templates["tpl-1"] = &models.Template{ID: "tpl-1", Name: "golden", DefaultMemMB: 4096, DefaultCPUs: 2}
	st.vms["vm-1"] = &models.VM{ID: "vm-1", Name: "agents-0", PoolID: pool.ID, State: models.StateSaved}

	srv := NewServer(nil, nil, st, logger.New("error"), "127.0.0.1:0", nil, 7331)
	return srv, st
}

func dialWebSocket(t *testing.T, srv *Server) (*websocket.Conn, context.CancelFunc) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(srv.handleWebSocket))
	ctx, cancel := context.WithCancel(context.Background())
	go srv.hub.Run(ctx)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		ts.Close()
		cancel()
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(ts.Close)
	return conn, cancel
}

func TestHandleWebSocket_SendsSnapshot(t *testing.T) {
	srv, _ := newTestServer(t)
	conn, cancel := dialWebSocket(t, srv)
	defer cancel()
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if msg.Type != "snapshot" {
		t.Errorf("Type = %q, want %q", msg.Type, "snapshot")
	}
}

func TestHandleWebSocket_BroadcastsVMStateChange(t *testing.T) {
	srv, _ := newTestServer(t)
	conn, cancel := dialWebSocket(t, srv)
	defer cancel()
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	// Give the registration goroutine a moment to land before broadcasting.
	deadline := time.Now().Add(time.Second)
	for srv.hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	srv.BroadcastVMEvent("agents-0", "saved", "running")

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal broadcast: %v", err)
	}
	if msg.Type != "vm_state_change" {
		t.Errorf("Type = %q, want %q", msg.Type, "vm_state_change")
	}
}

func TestHub_ClientCountTracksRegistration(t *testing.T) {
	hub := NewHub(logger.New("error"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("initial ClientCount = %d, want 0", got)
	}
}
