package api

import (
	"sync"

	"anjungan-print-agent/internal/models"
)

// History keeps a bounded ring of recent dispatch events for the kiosk
// dashboard. Events are observability only; payload bytes are never
// retained, so there is nothing to persist across restarts.
type History struct {
	mu       sync.RWMutex
	events   []models.DispatchEvent
	capacity int
	onUpdate func(models.DispatchEvent)
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 100
	}
	return &History{capacity: capacity}
}

// SetOnUpdate registers a callback invoked with each new event. Set once
// during wiring, before the server accepts requests.
func (h *History) SetOnUpdate(cb func(models.DispatchEvent)) {
	h.onUpdate = cb
}

func (h *History) Add(event models.DispatchEvent) {
	h.mu.Lock()
	h.events = append(h.events, event)
	if len(h.events) > h.capacity {
		h.events = h.events[len(h.events)-h.capacity:]
	}
	cb := h.onUpdate
	h.mu.Unlock()

	if cb != nil {
		cb(event)
	}
}

// Recent returns the stored events, newest last.
func (h *History) Recent() []models.DispatchEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.DispatchEvent, len(h.events))
	copy(out, h.events)
	return out
}
