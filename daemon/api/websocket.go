// SPDX-License-Identifier: LGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hyperwarm/logger"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 4096
)

// WSMessage is the envelope for every message pushed to subscribers: VM
// lifecycle state changes today, room to add reconcile-run or drift events
// later without changing the transport.
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The façade is a single-host, loopback-facing daemon; it has no
	// notion of a browser origin to allowlist.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient is one connected subscriber.
type wsClient struct {
	conn      *websocket.Conn
	send      chan []byte
	hub       *Hub
	closeOnce sync.Once
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}

// Hub fans VM lifecycle events out to every connected WebSocket client.
// Register/unregister/broadcast all flow through the single Run goroutine
// so the client set is never touched concurrently from two goroutines.
type Hub struct {
	clients    map[*wsClient]bool
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
	mu         sync.RWMutex
	log        logger.Logger
}

// NewHub builds a Hub. Call Run in a goroutine before accepting
// connections.
func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		log:        log,
	}
}

// Run drives the hub's event loop until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.close()
			}
			h.clients = make(map[*wsClient]bool)
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.close()
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			// Collect clients to drop before touching the map again, so a
			// slow client never blocks delivery to the rest.
			h.mu.RLock()
			var stale []*wsClient
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					stale = append(stale, c)
				}
			}
			h.mu.RUnlock()

			if len(stale) > 0 {
				h.mu.Lock()
				for _, c := range stale {
					if _, ok := h.clients[c]; ok {
						delete(h.clients, c)
						c.close()
					}
				}
				h.mu.Unlock()
			}
		}
	}
}

// Broadcast marshals msg and queues it for every connected client.
func (h *Hub) Broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal websocket message failed", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.log.Warn("websocket broadcast channel full, dropping message", "type", msg.Type)
	}
}

// ClientCount reports how many subscribers are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// handleWebSocket upgrades the connection and registers it with the hub.
// The current state of every VM in every pool is sent as a snapshot before
// the client starts receiving incremental state-change events.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 32), hub: s.hub}
	s.hub.register <- client

	go client.writePump()
	go client.readPump()

	s.sendSnapshot(r.Context(), client)
}

func (s *Server) sendSnapshot(ctx context.Context, c *wsClient) {
	templates, err := s.store.ListTemplates(ctx)
	if err != nil {
		s.logger.Warn("websocket snapshot: list templates failed", "error", err)
		return
	}
	pools, err := s.store.ListPools(ctx)
	if err != nil {
		s.logger.Warn("websocket snapshot: list pools failed", "error", err)
		return
	}

	vmsByPool := make(map[string][]VMView)
	for _, p := range pools {
		vms, err := s.store.ListVMs(ctx, p.ID)
		if err != nil {
			s.logger.Warn("websocket snapshot: list vms failed", "pool", p.Name, "error", err)
			continue
		}
		views := make([]VMView, 0, len(vms))
		for _, vm := range vms {
			views = append(views, vmView(vm))
		}
		vmsByPool[p.Name] = views
	}

	msg := WSMessage{
		Type: "snapshot",
		Data: map[string]interface{}{
			"template_count": len(templates),
			"vms_by_pool":    vmsByPool,
		},
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// readPump discards inbound traffic (clients only subscribe, they never
// send) but is required to service gorilla/websocket's control-frame and
// keepalive handling; its exit triggers unregistration.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
	}()

	c.conn.SetReadLimit(wsMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump relays queued messages to the socket and pings on an idle
// timer to keep intermediaries from closing the connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
