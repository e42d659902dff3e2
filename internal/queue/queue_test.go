package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	require.NoError(t, q.Publish(ctx, Message{Type: "swipe", Body: []byte(`{"card_id":"X"}`)}))

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	select {
	case msg := <-msgs:
		assert.Equal(t, "swipe", msg.Type)
		assert.Equal(t, `{"card_id":"X"}`, string(msg.Body))
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}

func TestInMemoryPublishHonorsCancellation(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, q.Publish(ctx, Message{Type: "swipe"}))
	cancel()

	// buffer is full and the context is done, so this must not block
	err := q.Publish(ctx, Message{Type: "swipe"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsumeClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(1)

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-msgs:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("consume channel did not close")
	}
}
