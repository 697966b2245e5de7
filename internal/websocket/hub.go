package websocket

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"studytrack-agent/internal/models"
	"studytrack-agent/internal/tracker"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub streams tracking updates to connected UI clients, so pending counts
// and sync transitions render without polling the list endpoint.
type Hub struct {
	mu       sync.RWMutex
	conns    map[*websocket.Conn]struct{}
	stopOnce sync.Once
	cancel   func()
}

func NewHub(t *tracker.Store) *Hub {
	h := &Hub{conns: make(map[*websocket.Conn]struct{})}

	updates, cancel := t.Subscribe()
	h.cancel = cancel
	go h.broadcastLoop(updates)

	return h
}

func (h *Hub) Stop() {
	h.stopOnce.Do(h.cancel)
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.register(conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

func (h *Hub) broadcastLoop(updates <-chan models.TrackingUpdate) {
	for update := range updates {
		msg := models.WSMessage{
			Type:    "tracking_update",
			Payload: update,
		}

		h.mu.RLock()
		conns := make([]*websocket.Conn, 0, len(h.conns))
		for conn := range h.conns {
			conns = append(conns, conn)
		}
		h.mu.RUnlock()

		for _, conn := range conns {
			if err := conn.WriteJSON(msg); err != nil {
				h.unregister(conn)
			}
		}
	}
}
