// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package signal is the in-process publish/subscribe bus that connects the
// search orchestrator, the basket, and downstream renderers.
package signal

import (
	"sync"
	"time"
)

// Signal names.
const (
	SearchBefore    = "search:before"
	SearchSuccess   = "search:success"
	SearchFailure   = "search:failure"
	ResultsReady    = "results:ready"
	QueryRecord     = "query:record"
	Change          = "change"
	ChangeAdd       = "change:add"
	ChangeRemove    = "change:remove"
	ChangeRate      = "change:rate"
	BasketActivated = "basket:activated"
	Notify          = "ui:notify"
)

// All subscribes a handler to every signal.
const All = "*"

// Event is one published signal.
type Event struct {
	Name    string    `json:"name"`
	Payload any       `json:"payload,omitempty"`
	Time    time.Time `json:"time"`
}

// Handler receives events. Handlers run synchronously on the publishing
// goroutine, in subscription order.
type Handler func(Event)

type subscription struct {
	id      int
	name    string
	handler Handler
}

// Bus dispatches named events to subscribers.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
	now    func() time.Time
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{now: time.Now}
}

// Subscribe registers h for events called name, or for every event when name
// is All. The returned function removes the subscription.
func (b *Bus) Subscribe(name string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, name: name, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers an event to the matching subscribers. Subscribers may
// publish or subscribe from inside their handler.
func (b *Bus) Publish(name string, payload any) {
	b.mu.RLock()
	targets := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.name == name || s.name == All {
			targets = append(targets, s.handler)
		}
	}
	b.mu.RUnlock()

	ev := Event{Name: name, Payload: payload, Time: b.now()}
	for _, h := range targets {
		h(ev)
	}
}
