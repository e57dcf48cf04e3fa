// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notify delivers user-facing notifications. Delivery is fire and
// forget: callers never consume a result.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pdiddy/patent-chooser/internal/signal"
)

// Notification kinds.
const (
	KindInfo    = "info"
	KindWarning = "warning"
	KindError   = "error"
	KindSuccess = "success"
)

// Options decorate a notification.
type Options struct {
	Type string `json:"type"`
	Icon string `json:"icon,omitempty"`
}

// Message is one delivered notification.
type Message struct {
	Text string `json:"text"`
	Kind string `json:"kind"`
	Icon string `json:"icon,omitempty"`

	// Alert distinguishes inline user alerts from transient notifications.
	Alert bool `json:"alert,omitempty"`
}

// Notifier is the notification sink consumed by the search and basket
// components.
type Notifier interface {
	Notify(text string, opts Options)
	UserAlert(text, kind string)
}

// BusNotifier logs notifications and publishes them on the signal bus, where
// the HTTP shell streams them to connected browsers.
type BusNotifier struct {
	bus    *signal.Bus
	logger *slog.Logger
}

// NewBusNotifier returns a notifier publishing to bus.
func NewBusNotifier(bus *signal.Bus) *BusNotifier {
	return &BusNotifier{bus: bus, logger: slog.Default().With("component", "notify")}
}

// Notify publishes a transient notification.
func (n *BusNotifier) Notify(text string, opts Options) {
	n.deliver(Message{Text: text, Kind: opts.Type, Icon: opts.Icon})
}

// UserAlert publishes an inline alert.
func (n *BusNotifier) UserAlert(text, kind string) {
	n.deliver(Message{Text: text, Kind: kind, Alert: true})
}

func (n *BusNotifier) deliver(m Message) {
	level := slog.LevelInfo
	switch m.Kind {
	case KindWarning:
		level = slog.LevelWarn
	case KindError:
		level = slog.LevelError
	}
	n.logger.Log(context.Background(), level, m.Text, "kind", m.Kind, "alert", m.Alert)
	if n.bus != nil {
		n.bus.Publish(signal.Notify, m)
	}
}

// Recorder keeps every notification in memory. The CLI prints its contents
// after a command finishes.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Notify records a transient notification.
func (r *Recorder) Notify(text string, opts Options) {
	r.add(Message{Text: text, Kind: opts.Type, Icon: opts.Icon})
}

// UserAlert records an inline alert.
func (r *Recorder) UserAlert(text, kind string) {
	r.add(Message{Text: text, Kind: kind, Alert: true})
}

func (r *Recorder) add(m Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}

// Messages returns a copy of the recorded notifications.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Reset drops the recorded notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}

// Multi fans notifications out to several sinks.
type Multi []Notifier

// Notify forwards to every sink.
func (m Multi) Notify(text string, opts Options) {
	for _, n := range m {
		n.Notify(text, opts)
	}
}

// UserAlert forwards to every sink.
func (m Multi) UserAlert(text, kind string) {
	for _, n := range m {
		n.UserAlert(text, kind)
	}
}
