package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"anjungan-print-agent/internal/models"
)

// Hub pushes dispatch events to connected websocket clients (the kiosk
// dashboard shows live print activity).
type Hub struct {
	log      *zap.Logger
	mu       sync.Mutex
	clients  map[*websocket.Conn]bool
	upgrader websocket.Upgrader
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The agent binds to loopback; the dashboard page may be
			// served from any local origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle upgrades the connection, sends the recent history as initial
// state, then blocks reading to detect disconnect.
func (h *Hub) Handle(history *History) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		h.mu.Lock()
		h.clients[conn] = true
		h.mu.Unlock()

		if err := conn.WriteJSON(history.Recent()); err != nil {
			h.drop(conn)
			return
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}
}

// Broadcast sends one event to every connected client, dropping clients
// that cannot keep up.
func (h *Hub) Broadcast(event models.DispatchEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			conn.Close()
			delete(h.clients, conn)
			continue
		}
		if err := conn.WriteJSON(event); err != nil {
			h.log.Warn("websocket broadcast failed", zap.Error(err))
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}
