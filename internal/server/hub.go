package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/loomengine/loom/pkg/domain"
)

// hubBuffer sizes each subscriber channel. A subscriber that falls this
// far behind starts losing events; clients resynchronize with a refetch
// anyway.
const hubBuffer = 32

// Hub fans change events out to the websocket subscribers of each
// workflow.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[chan domain.ChangeEvent]struct{}
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[chan domain.ChangeEvent]struct{}),
		logger: logger,
	}
}

// Subscribe registers a subscriber for one workflow and returns its
// channel plus a release func. The channel is closed on release.
func (h *Hub) Subscribe(workflowID string) (chan domain.ChangeEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan domain.ChangeEvent, hubBuffer)
	if _, ok := h.subs[workflowID]; !ok {
		h.subs[workflowID] = make(map[chan domain.ChangeEvent]struct{})
	}
	h.subs[workflowID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if subs, ok := h.subs[workflowID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(h.subs, workflowID)
				}
			}
		})
	}
}

// Subscribers returns the current subscriber count for a workflow.
func (h *Hub) Subscribers(workflowID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[workflowID])
}

// Publish delivers an event to every subscriber of the workflow,
// dropping it for subscribers whose buffer is full.
func (h *Hub) Publish(workflowID string, typ domain.ChangeType, nodeID string) {
	event := domain.ChangeEvent{Type: typ, NodeID: nodeID, Timestamp: time.Now()}
	eventsPublished.WithLabelValues(string(typ)).Inc()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[workflowID] {
		select {
		case ch <- event:
		default:
			h.logger.Warn("subscriber buffer full, dropping event",
				"workflow_id", workflowID, "type", string(typ))
		}
	}
}
