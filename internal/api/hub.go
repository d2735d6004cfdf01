package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub fans a simulation's routes_update events out to every connected
// websocket client: a registry of concurrent subscribers rather than a
// single publisher connection.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*hubClient]struct{}
}

type hubClient struct {
	conn *websocket.Conn
	send chan any
}

const (
	hubWriteWait  = 5 * time.Second
	hubSendBuffer = 16
)

// NewHub returns an empty Hub, ready to accept subscribers.
func NewHub() *Hub {
	return &Hub{clients: make(map[*hubClient]struct{})}
}

// ServeWS upgrades the request to a websocket and registers it as a
// subscriber until the connection drops. Client messages are read and
// discarded, never acted on: this channel is egress-only (routes_update
// broadcasts).
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("hub: upgrade failed: %v", err)
		return
	}

	c := &hubClient{conn: conn, send: make(chan any, hubSendBuffer)}
	h.register(c)
	defer h.unregister(c)

	// Drain and discard any client frames so the read side stays unblocked;
	// required for the close handshake to be observed. This channel never
	// acts on client payloads.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for msg := range c.send {
		if err := conn.SetWriteDeadline(time.Now().Add(hubWriteWait)); err != nil {
			return
		}
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// Broadcast sends msg to every connected subscriber. Slow subscribers are
// dropped rather than allowed to block the simulation's decision loop.
func (h *Hub) Broadcast(msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Printf("hub: client send buffer full, dropping subscriber")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) register(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	_ = c.conn.Close()
}
