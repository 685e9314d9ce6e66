package orchestrator

import (
	"encoding/json"
	"sync"
)

// Event is a generic SSE payload wrapper.
type Event struct {
	Event   string `json:"event"`
	TaskID  string `json:"task_id"`
	Payload any    `json:"payload,omitempty"`
}

type subscriber chan []byte

// Hub fans task events out to SSE subscribers. Slow subscribers drop events.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[subscriber]struct{} // taskID -> set of subscribers
}

func NewHub() *Hub { return &Hub{subs: map[string]map[subscriber]struct{}{}} }

func (h *Hub) Subscribe(taskID string) (<-chan []byte, func()) {
	ch := make(subscriber, 16)
	h.mu.Lock()
	set := h.subs[taskID]
	if set == nil {
		set = map[subscriber]struct{}{}
		h.subs[taskID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[taskID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, taskID)
				}
			}
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, unsubscribe
}

func (h *Hub) Publish(taskID string, ev Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.RLock()
	for ch := range h.subs[taskID] {
		select {
		case ch <- b:
		default:
		}
	}
	h.mu.RUnlock()
}

// Subscribers reports how many listeners a task has.
func (h *Hub) Subscribers(taskID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[taskID])
}
