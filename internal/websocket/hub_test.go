package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sicreport/pkg/contracts/events"
)

func newRegisteredClient(t *testing.T, h *Hub) *Client {
	t.Helper()
	c := &Client{hub: h, send: make(chan []byte, 8)}
	h.register <- c
	return c
}

func TestHubBroadcastReachesClients(t *testing.T) {
	h := NewHub(nil)
	h.Start()
	defer h.Stop()

	c1 := newRegisteredClient(t, h)
	c2 := newRegisteredClient(t, h)

	h.Broadcast(events.TypeProgress, map[string]int{"index": 1})

	for _, c := range []*Client{c1, c2} {
		select {
		case payload := <-c.send:
			var msg Message
			require.NoError(t, json.Unmarshal(payload, &msg))
			assert.Equal(t, events.TypeProgress, msg.Type)
			assert.False(t, msg.Timestamp.IsZero())
		case <-time.After(time.Second):
			t.Fatal("client did not receive broadcast")
		}
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	h := NewHub(nil)
	h.Start()
	defer h.Stop()

	c := newRegisteredClient(t, h)
	h.unregister <- c

	select {
	case _, open := <-c.send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
}

func TestHubStartStopIdempotent(t *testing.T) {
	h := NewHub(nil)
	h.Start()
	h.Start()
	h.Stop()
	h.Stop()

	// Broadcast after stop must not block.
	done := make(chan struct{})
	go func() {
		h.Broadcast(events.TypeProgress, nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked after stop")
	}
}

func TestDetachAfterStopDoesNotBlock(t *testing.T) {
	h := NewHub(nil)
	h.Start()

	c := newRegisteredClient(t, h)
	h.Stop()

	// A client tearing down after shutdown must not hang on the hub.
	done := make(chan struct{})
	go func() {
		c.detach()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("detach blocked after hub stop")
	}
}

func TestClientCount(t *testing.T) {
	h := NewHub(nil)
	h.Start()
	defer h.Stop()

	assert.Equal(t, 0, h.ClientCount())

	newRegisteredClient(t, h)

	assert.Eventually(t, func() bool {
		return h.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)
}
