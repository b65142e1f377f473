package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Event is a lifecycle change pushed to connected admin sockets.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	EntityID   int64     `json:"entityId"`
	Code       string    `json:"code,omitempty"`
	ActorID    int64     `json:"actorId"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewEvent(kind string, entityID int64, code string, actorID int64) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       kind,
		EntityID:   entityID,
		Code:       code,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
}

// Subscriber is the part of a websocket connection the hub writes to.
type Subscriber interface {
	WriteJSON(v interface{}) error
}

var _ Subscriber = (*websocket.Conn)(nil)

type EventHub struct {
	mu      sync.Mutex
	clients map[Subscriber]bool
	ch      chan Event
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients: map[Subscriber]bool{},
		ch:      make(chan Event, 64),
	}
}

// Run fans published events out to every subscriber until ctx is done. A
// subscriber whose write fails is dropped.
func (h *EventHub) Run(ctx context.Context) {
	for {
		select {
		case event := <-h.ch:
			h.mu.Lock()
			for client := range h.clients {
				if err := client.WriteJSON(event); err != nil {
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

// Publish never blocks; events are dropped when the buffer is full.
func (h *EventHub) Publish(event Event) {
	if h == nil {
		return
	}
	select {
	case h.ch <- event:
	default:
	}
}

func (h *EventHub) Add(client Subscriber) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
}

func (h *EventHub) Remove(client Subscriber) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
}

func (h *EventHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
