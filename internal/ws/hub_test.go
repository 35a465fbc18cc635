package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesAgentAndAdmin(t *testing.T) {
	h := NewHub()
	agent := &Client{AgentID: 7, Role: "AGENT", Send: make(chan []byte, 4)}
	other := &Client{AgentID: 8, Role: "AGENT", Send: make(chan []byte, 4)}
	admin := &Client{AgentID: 1, Role: "ADMIN", Send: make(chan []byte, 4)}
	h.Register(agent)
	h.Register(other)
	h.Register(admin)

	h.Publish(Event{Type: "withdrawal.status_changed", AgentID: 7})

	var got Event
	require.NoError(t, json.Unmarshal(<-agent.Send, &got))
	assert.Equal(t, "withdrawal.status_changed", got.Type)
	assert.EqualValues(t, 7, got.AgentID)
	assert.False(t, got.At.IsZero())

	assert.Len(t, admin.Send, 1)
	assert.Len(t, other.Send, 0, "unrelated agent must not receive the event")
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	h := NewHub()
	slow := &Client{AgentID: 7, Role: "AGENT", Send: make(chan []byte, 1)}
	h.Register(slow)

	h.Publish(Event{Type: "order.status_changed", AgentID: 7})
	h.Publish(Event{Type: "order.status_changed", AgentID: 7})

	// Second publish is dropped rather than blocking the writer.
	assert.Len(t, slow.Send, 1)
}

func TestPublishDuringCloseDoesNotPanic(t *testing.T) {
	h := NewHub()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			h.Publish(Event{Type: "order.status_changed", AgentID: 7})
		}
	}()
	for i := 0; i < 200; i++ {
		c := &Client{AgentID: 7, Role: "AGENT", Send: make(chan []byte, 1)}
		h.Register(c)
		c.Close()
	}
	<-done
}

func TestCloseUnregisters(t *testing.T) {
	h := NewHub()
	c := &Client{AgentID: 7, Role: "AGENT", Send: make(chan []byte, 1)}
	h.Register(c)
	require.Equal(t, 1, h.ClientCount())

	c.Close()
	assert.Equal(t, 0, h.ClientCount())
	// Double close is a no-op.
	c.Close()
	h.Publish(Event{Type: "order.status_changed", AgentID: 7})
}
