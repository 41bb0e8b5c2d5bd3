// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/gps_replay/internal/gps"
	"github.com/relabs-tech/gps_replay/pkg/logger"
)

const (
	// clientBuffer is how many events a websocket client may lag behind
	// before it is dropped.
	clientBuffer = 64
	writeTimeout = 10 * time.Second
)

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts events to every connected websocket client and remembers
// the latest one.
type Hub struct {
	upgrader websocket.Upgrader
	logger   logger.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	last    gps.Event
	hasLast bool
}

// NewHub returns an empty hub.
func NewHub(log logger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // visualizers are served from anywhere
			},
		},
		logger:  log,
		clients: make(map[*wsClient]struct{}),
	}
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug(r.Context(), "websocket client connected", logger.String("remote", r.RemoteAddr))

	go h.writeLoop(c)

	// Incoming frames are ignored; reading is how a close is noticed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *Hub) writeLoop(c *wsClient) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(c)
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replay finished"))
}

// remove unregisters c; send is closed exactly once, by whoever deletes it.
func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Emit queues ev for every client. Clients whose buffer is full are dropped.
func (h *Hub) Emit(ctx context.Context, ev gps.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = ev
	h.hasLast = true
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn(ctx, "dropping slow websocket client")
			delete(h.clients, c)
			close(c.send)
		}
	}
	return nil
}

// Latest returns the last emitted event, if any.
func (h *Hub) Latest() (gps.Event, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last, h.hasLast
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client after its queued events are written.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	return nil
}
