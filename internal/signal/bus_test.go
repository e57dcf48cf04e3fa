// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package signal

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var got []string
	bus.Subscribe(Change, func(ev Event) { got = append(got, "first:"+ev.Name) })
	bus.Subscribe(All, func(ev Event) { got = append(got, "all:"+ev.Name) })
	bus.Subscribe(ChangeAdd, func(ev Event) { got = append(got, "add:"+ev.Name) })

	bus.Publish(Change, nil)
	bus.Publish(ChangeAdd, "EP1000000A1")

	assert.Equal(t, []string{"first:change", "all:change", "all:change:add", "add:change:add"}, got)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	unsub := bus.Subscribe(ResultsReady, func(Event) { calls++ })

	bus.Publish(ResultsReady, nil)
	unsub()
	unsub()
	bus.Publish(ResultsReady, nil)

	assert.Equal(t, 1, calls)
}

func TestBusHandlerMayPublish(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.Subscribe(ChangeAdd, func(Event) {
		order = append(order, ChangeAdd)
		bus.Publish(Change, nil)
	})
	bus.Subscribe(Change, func(Event) { order = append(order, Change) })

	bus.Publish(ChangeAdd, nil)
	assert.Equal(t, []string{ChangeAdd, Change}, order)
}

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
	block  chan struct{}
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.block != nil {
		select {
		case <-w.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) messages() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

func TestKafkaForwarderForwardsAttachedSignals(t *testing.T) {
	w := &fakeWriter{}
	f := newKafkaForwarder(w, 16)
	bus := NewBus()
	detach := f.Attach(bus, QueryRecord, ResultsReady)

	bus.Publish(QueryRecord, map[string]any{"query": "pa=siemens"})
	bus.Publish(Change, nil)
	bus.Publish(ResultsReady, nil)
	detach()
	bus.Publish(ResultsReady, nil)
	require.NoError(t, f.Close())

	msgs := w.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, QueryRecord, string(msgs[0].Key))
	assert.Equal(t, ResultsReady, string(msgs[1].Key))

	var ev Event
	require.NoError(t, json.Unmarshal(msgs[0].Value, &ev))
	assert.Equal(t, QueryRecord, ev.Name)
	assert.True(t, w.closed)
}

func TestKafkaForwarderDoesNotBlockPublisher(t *testing.T) {
	w := &fakeWriter{block: make(chan struct{})}
	f := newKafkaForwarder(w, 1)
	bus := NewBus()
	f.Attach(bus, QueryRecord, ResultsReady)

	began := time.Now()
	for range 5 {
		bus.Publish(QueryRecord, nil)
		bus.Publish(ResultsReady, nil)
	}
	assert.Less(t, time.Since(began), 100*time.Millisecond)

	close(w.block)
	require.NoError(t, f.Close())
	assert.NotEmpty(t, w.messages())
	assert.LessOrEqual(t, len(w.messages()), 2, "events beyond the buffer are dropped")

	// Tracking after close is a no-op.
	f.Track(Event{Name: QueryRecord})
}

func TestKafkaForwarderPublishError(t *testing.T) {
	f := newKafkaForwarder(&fakeWriter{err: errors.New("broker down")}, 1)
	defer f.Close()
	err := f.Publish(context.Background(), Event{Name: QueryRecord})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
