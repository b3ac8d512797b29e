package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/roomrent/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageEvent(id, threadKey, receiverID string) Event {
	return Event{
		Table:     TableMessages,
		Operation: OpInsert,
		Row:       &models.Message{ID: id, ThreadKey: threadKey, ReceiverID: receiverID},
	}
}

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C():
		require.True(t, ok, "subscription closed: %v", sub.Err())
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestHub_FiltersByColumn(t *testing.T) {
	hub := NewHub(8)
	ctx := context.Background()

	threadSub, err := hub.Subscribe(ctx, TableMessages, Eq("thread_key", "booking:b1"))
	require.NoError(t, err)
	inboxSub, err := hub.Subscribe(ctx, TableMessages, Eq("receiver_id", "seeker-1"))
	require.NoError(t, err)
	bookingSub, err := hub.Subscribe(ctx, TableBookings, Filter{})
	require.NoError(t, err)

	require.NoError(t, hub.Publish(ctx, messageEvent("m1", "booking:b1", "provider-1")))
	require.NoError(t, hub.Publish(ctx, messageEvent("m2", "booking:b2", "seeker-1")))

	assert.Equal(t, "m1", receive(t, threadSub).Row.(*models.Message).ID)
	assert.Equal(t, "m2", receive(t, inboxSub).Row.(*models.Message).ID)
	assert.Len(t, threadSub.C(), 0)
	assert.Len(t, inboxSub.C(), 0)
	assert.Len(t, bookingSub.C(), 0)
}

func TestHub_OverflowDropsSubscriber(t *testing.T) {
	hub := NewHub(2)
	ctx := context.Background()

	sub, err := hub.Subscribe(ctx, TableMessages, Filter{})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, hub.Publish(ctx, messageEvent("m", "booking:b1", "x")))
	}

	// buffered events are still readable, then the channel reports closure
	receive(t, sub)
	receive(t, sub)
	_, ok := <-sub.C()
	assert.False(t, ok)
	assert.ErrorIs(t, sub.Err(), ErrSubscriberOverflow)
	assert.Equal(t, 0, hub.Subscribers(TableMessages))
}

func TestHub_ContextCancellationReleasesSubscription(t *testing.T) {
	hub := NewHub(4)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := hub.Subscribe(ctx, TableMessages, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Subscribers(TableMessages))

	cancel()
	assert.Eventually(t, func() bool { return hub.Subscribers(TableMessages) == 0 }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, sub.Err(), ErrSubscriptionClosed)

	// publishing after release is harmless
	assert.NoError(t, hub.Publish(context.Background(), messageEvent("m", "k", "r")))
}

func TestHub_CloseIsIdempotent(t *testing.T) {
	hub := NewHub(4)
	sub, err := hub.Subscribe(context.Background(), TableAccounts, Filter{})
	require.NoError(t, err)

	sub.Close()
	sub.Close()
	assert.ErrorIs(t, sub.Err(), ErrSubscriptionClosed)

	hub.Close()
	_, err = hub.Subscribe(context.Background(), TableAccounts, Filter{})
	assert.ErrorIs(t, err, ErrHubClosed)
	assert.ErrorIs(t, hub.Publish(context.Background(), messageEvent("m", "k", "r")), ErrHubClosed)
}

func TestHub_ResetDropsAllButStaysOpen(t *testing.T) {
	hub := NewHub(4)
	ctx := context.Background()

	a, err := hub.Subscribe(ctx, TableMessages, Filter{})
	require.NoError(t, err)
	b, err := hub.Subscribe(ctx, TableBookings, Eq("provider_id", "provider-1"))
	require.NoError(t, err)

	assert.Equal(t, 2, hub.Reset(ErrRelayInterrupted))
	assert.ErrorIs(t, a.Err(), ErrRelayInterrupted)
	assert.ErrorIs(t, b.Err(), ErrRelayInterrupted)
	assert.Equal(t, 0, hub.Subscribers(TableMessages))

	c, err := hub.Subscribe(ctx, TableMessages, Filter{})
	require.NoError(t, err)
	require.NoError(t, hub.Publish(ctx, messageEvent("m1", "booking:b1", "seeker-1")))
	assert.Equal(t, "m1", receive(t, c).Row.(*models.Message).ID)
}
