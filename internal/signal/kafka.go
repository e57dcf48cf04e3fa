// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/pdiddy/patent-chooser/pkg/types"
)

// messageWriter is the subset of *kafka.Writer the forwarder uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// defaultBufferSize bounds the events waiting for the broker.
const defaultBufferSize = 1024

// KafkaForwarder publishes selected bus events to a Kafka topic so that
// query history and result readiness can be consumed outside the process.
// Events are queued and written by a background goroutine; when the queue
// is full they are dropped.
type KafkaForwarder struct {
	writer  messageWriter
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.RWMutex
	closed  bool
	eventCh chan Event
	done    chan struct{}
}

// NewKafkaForwarder creates a forwarder writing to the configured topic.
func NewKafkaForwarder(cfg types.SignalsConfig) *KafkaForwarder {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaForwarder(w, defaultBufferSize)
}

func newKafkaForwarder(w messageWriter, bufferSize int) *KafkaForwarder {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	f := &KafkaForwarder{
		writer:  w,
		timeout: 5 * time.Second,
		logger:  slog.Default().With("component", "signal-kafka"),
		eventCh: make(chan Event, bufferSize),
		done:    make(chan struct{}),
	}
	go f.run()
	return f
}

// Attach subscribes the forwarder to the named signals and returns a function
// that detaches it again.
func (f *KafkaForwarder) Attach(bus *Bus, names ...string) (detach func()) {
	unsubs := make([]func(), 0, len(names))
	for _, name := range names {
		unsubs = append(unsubs, bus.Subscribe(name, f.Track))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Track queues ev for publishing without waiting for the broker.
func (f *KafkaForwarder) Track(ev Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}
	select {
	case f.eventCh <- ev:
	default:
		f.logger.Warn("signal dropped (buffer full)", "signal", ev.Name)
	}
}

func (f *KafkaForwarder) run() {
	defer close(f.done)
	for ev := range f.eventCh {
		if err := f.Publish(context.Background(), ev); err != nil {
			f.logger.Error("forwarding signal failed", "signal", ev.Name, "error", err)
		}
	}
}

// Publish writes one event keyed by its signal name.
func (f *KafkaForwarder) Publish(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling signal %s: %w", ev.Name, err)
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	if err := f.writer.WriteMessages(ctx, kafka.Message{Key: []byte(ev.Name), Value: value}); err != nil {
		return fmt.Errorf("publishing signal %s to kafka: %w", ev.Name, err)
	}
	f.logger.Debug("signal forwarded", "signal", ev.Name, "value_size", len(value))
	return nil
}

// Close publishes the queued events, then closes the writer.
func (f *KafkaForwarder) Close() error {
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		close(f.eventCh)
	}
	f.mu.Unlock()
	<-f.done
	return f.writer.Close()
}
