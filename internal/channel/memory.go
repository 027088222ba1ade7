package channel

import (
	"context"
	"log"
	"sync"
)

// MemoryChannel is an in-process Channel used by tests and single-node runs.
// Fanout mirrors the websocket hub's room map: every subscriber of a channel
// gets its own buffered stream, and a full buffer drops rather than blocks.
type MemoryChannel struct {
	mu   sync.RWMutex
	subs map[string]map[int]chan Event
	next int
}

func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{subs: make(map[string]map[int]chan Event)}
}

func (m *MemoryChannel) Publish(_ context.Context, channelID string, ev Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.subs[channelID] {
		select {
		case ch <- ev:
		default:
			log.Printf("[CHANNEL] subscriber buffer full on %s, dropping %s", channelID, ev.Type)
		}
	}
	return nil
}

func (m *MemoryChannel) Subscribe(_ context.Context, channelID string) (<-chan Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.subs[channelID] == nil {
		m.subs[channelID] = make(map[int]chan Event)
	}
	id := m.next
	m.next++
	ch := make(chan Event, 64)
	m.subs[channelID][id] = ch

	var once sync.Once
	stop := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if room, ok := m.subs[channelID]; ok {
				if c, ok := room[id]; ok {
					delete(room, id)
					close(c)
				}
				if len(room) == 0 {
					delete(m.subs, channelID)
				}
			}
		})
	}
	return ch, stop
}
