package service

import (
	"sync"

	"microearn/internal/model"
	"microearn/pkg/logger"

	"go.uber.org/zap"
)

// EventSink receives ledger events. Publish must not block.
type EventSink interface {
	Publish(event model.Event)
}

type Sinks []EventSink

func (s Sinks) Publish(event model.Event) {
	for _, sink := range s {
		sink.Publish(event)
	}
}

type Subscription struct {
	UserID string
	Admin  bool
	C      chan model.Event
}

func (s *Subscription) wants(event model.Event) bool {
	if s.Admin && event.Admin {
		return true
	}
	return event.UserID != "" && event.UserID == s.UserID
}

// EventHub fans events out to websocket subscribers. A subscriber whose
// buffer is full misses the event.
type EventHub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
}

func NewEventHub(buffer int) *EventHub {
	if buffer <= 0 {
		buffer = 16
	}
	return &EventHub{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
	}
}

func (h *EventHub) Subscribe(userID string, admin bool) *Subscription {
	sub := &Subscription{
		UserID: userID,
		Admin:  admin,
		C:      make(chan model.Event, h.buffer),
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Unsubscribe removes sub and closes its channel. Calling it twice is safe.
func (h *EventHub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.C)
}

func (h *EventHub) Publish(event model.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		if !sub.wants(event) {
			continue
		}
		select {
		case sub.C <- event:
		default:
			logger.Named("events").Warn("dropping event for slow subscriber",
				zap.String("type", string(event.Type)),
				zap.String("user_id", sub.UserID))
		}
	}
}
