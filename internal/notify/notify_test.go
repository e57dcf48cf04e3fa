// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/patent-chooser/internal/signal"
)

func TestBusNotifierPublishes(t *testing.T) {
	bus := signal.NewBus()
	var got []Message
	bus.Subscribe(signal.Notify, func(ev signal.Event) {
		got = append(got, ev.Payload.(Message))
	})

	n := NewBusNotifier(bus)
	n.Notify("Search provider \"foo\" not implemented.", Options{Type: KindError, Icon: "icon-search"})
	n.UserAlert("No results.", KindInfo)

	require.Len(t, got, 2)
	assert.Equal(t, Message{Text: "Search provider \"foo\" not implemented.", Kind: KindError, Icon: "icon-search"}, got[0])
	assert.Equal(t, Message{Text: "No results.", Kind: KindInfo, Alert: true}, got[1])
}

func TestMultiAndRecorder(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, b}
	m.UserAlert("Total hits: 5000.", KindWarning)
	m.Notify("saved", Options{Type: KindSuccess})

	assert.Len(t, a.Messages(), 2)
	assert.Equal(t, a.Messages(), b.Messages())

	a.Reset()
	assert.Empty(t, a.Messages())
	assert.Len(t, b.Messages(), 2)
}
