package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to create test messages
func createTestMessage(id, source, target string) Message {
	return Message{
		ID:      id,
		Type:    MessageTypeRequest,
		Source:  source,
		Target:  target,
		Session: "s1",
		Action:  "join",
	}
}

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr error
	}{
		{"valid", createTestMessage("m1", "client", "coordinator"), nil},
		{"missing id", Message{Type: MessageTypeAck, Source: "a", Target: "b"}, ErrInvalidMessageID},
		{"missing type", Message{ID: "1", Source: "a", Target: "b"}, ErrInvalidMessageType},
		{"missing source", Message{ID: "1", Type: MessageTypeAck, Target: "b"}, ErrInvalidSource},
		{"missing target", Message{ID: "1", Type: MessageTypeAck, Source: "a"}, ErrInvalidTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMessage_Reply(t *testing.T) {
	req := createTestMessage("m1", "client", "coordinator")
	req.Round = 2
	ack := req.Reply(MessageTypeAck, "ok")

	assert.Equal(t, "m1", ack.ID)
	assert.Equal(t, "coordinator", ack.Source)
	assert.Equal(t, "client", ack.Target)
	assert.Equal(t, 2, ack.Round)
	assert.Equal(t, "join", ack.Action)
	assert.Equal(t, "ok", ack.Payload)
}

func TestInMemoryChannel(t *testing.T) {
	ctx := context.Background()

	t.Run("send receive", func(t *testing.T) {
		ch := NewInMemoryChannel(InMemoryChannelConfig{BufferSize: 2, Timeout: time.Second})
		defer ch.Close()

		msg := createTestMessage("m1", "a", "b")
		require.NoError(t, ch.Send(ctx, msg))
		assert.Equal(t, 1, ch.Len())

		got, err := ch.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, msg, got)
	})

	t.Run("invalid message rejected", func(t *testing.T) {
		ch := NewInMemoryChannel(InMemoryChannelConfig{})
		defer ch.Close()
		assert.ErrorIs(t, ch.Send(ctx, Message{}), ErrInvalidMessageID)
	})

	t.Run("receive timeout", func(t *testing.T) {
		ch := NewInMemoryChannel(InMemoryChannelConfig{Timeout: 10 * time.Millisecond})
		defer ch.Close()
		_, err := ch.Receive(ctx)
		assert.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("full buffer times out", func(t *testing.T) {
		ch := NewInMemoryChannel(InMemoryChannelConfig{BufferSize: 1, Timeout: 10 * time.Millisecond})
		defer ch.Close()
		require.NoError(t, ch.Send(ctx, createTestMessage("1", "a", "b")))
		assert.ErrorIs(t, ch.Send(ctx, createTestMessage("2", "a", "b")), ErrTimeout)
	})

	t.Run("context cancelled", func(t *testing.T) {
		ch := NewInMemoryChannel(InMemoryChannelConfig{Timeout: time.Minute})
		defer ch.Close()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := ch.Receive(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("closed channel drains then errors", func(t *testing.T) {
		ch := NewInMemoryChannel(InMemoryChannelConfig{BufferSize: 2})
		require.NoError(t, ch.Send(ctx, createTestMessage("1", "a", "b")))
		require.NoError(t, ch.Close())
		require.NoError(t, ch.Close())
		assert.True(t, ch.IsClosed())

		assert.ErrorIs(t, ch.Send(ctx, createTestMessage("2", "a", "b")), ErrChannelClosed)
		_, err := ch.Receive(ctx)
		require.NoError(t, err)
		_, err = ch.Receive(ctx)
		assert.ErrorIs(t, err, ErrChannelClosed)
	})
}
