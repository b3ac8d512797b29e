package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/roomrent/backend/internal/models"
	"github.com/roomrent/backend/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	mu    sync.Mutex
	msgs  []models.Message
	err   error
	calls int
}

func (f *stubFetcher) FetchThread(ctx context.Context, session *models.Session, ref models.ThreadRef) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Message, len(f.msgs))
	copy(out, f.msgs)
	return out, nil
}

func (f *stubFetcher) set(msgs ...models.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = msgs
}

func (f *stubFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// trackingHub remembers every subscription it hands out
type trackingHub struct {
	*realtime.Hub
	mu   sync.Mutex
	subs []*realtime.Subscription
}

func (h *trackingHub) Subscribe(ctx context.Context, table string, filter realtime.Filter) (*realtime.Subscription, error) {
	sub, err := h.Hub.Subscribe(ctx, table, filter)
	if err == nil {
		h.mu.Lock()
		h.subs = append(h.subs, sub)
		h.mu.Unlock()
	}
	return sub, err
}

func (h *trackingHub) last() *realtime.Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.subs[len(h.subs)-1]
}

func (h *trackingHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func threadMessage(id string, minute int) models.Message {
	bookingID := "b-1"
	return models.Message{
		ID:         id,
		BookingID:  &bookingID,
		ThreadKey:  "booking:b-1",
		SenderID:   "provider-1",
		ReceiverID: "seeker-1",
		Content:    id,
		CreatedAt:  testNow.Add(time.Duration(minute) * time.Minute),
	}
}

func pushMessage(t *testing.T, hub *realtime.Hub, msg models.Message) {
	t.Helper()
	require.NoError(t, hub.Publish(context.Background(), realtime.Event{
		Table:     realtime.TableMessages,
		Operation: realtime.OpInsert,
		Row:       &msg,
	}))
}

func messageIDs(msgs []models.Message) []string {
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	return ids
}

func TestOpenThread_MergesLocalAndPushedMessages(t *testing.T) {
	hub := &trackingHub{Hub: realtime.NewHub(8)}
	fetcher := &stubFetcher{}
	fetcher.set(threadMessage("m-1", 1))

	view, err := OpenThread(context.Background(), seekerSession, models.BookingThread("b-1"), fetcher, hub)
	require.NoError(t, err)
	defer view.Close()

	assert.Equal(t, []string{"m-1"}, messageIDs(view.Messages()))

	local := threadMessage("m-2", 2)
	local.SenderID, local.ReceiverID = "seeker-1", "provider-1"
	view.AddLocal(local)
	pushMessage(t, hub.Hub, local)
	pushMessage(t, hub.Hub, threadMessage("m-3", 3))

	require.Eventually(t, func() bool { return len(view.Messages()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"m-1", "m-2", "m-3"}, messageIDs(view.Messages()))

	// unrelated threads are filtered out by the subscription
	other := threadMessage("x-1", 4)
	other.ThreadKey = "booking:b-2"
	pushMessage(t, hub.Hub, other)
	pushMessage(t, hub.Hub, threadMessage("m-4", 5))
	require.Eventually(t, func() bool { return len(view.Messages()) == 4 }, time.Second, 5*time.Millisecond)
	assert.NotContains(t, messageIDs(view.Messages()), "x-1")
}

func TestOpenThread_ReadFlagNeverRegresses(t *testing.T) {
	hub := &trackingHub{Hub: realtime.NewHub(8)}
	read := threadMessage("m-1", 1)
	read.IsRead = true
	fetcher := &stubFetcher{}
	fetcher.set(read)

	view, err := OpenThread(context.Background(), seekerSession, models.BookingThread("b-1"), fetcher, hub)
	require.NoError(t, err)
	defer view.Close()

	pushMessage(t, hub.Hub, threadMessage("m-1", 1))
	pushMessage(t, hub.Hub, threadMessage("m-2", 2))
	require.Eventually(t, func() bool { return len(view.Messages()) == 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, view.Messages()[0].IsRead)
}

func TestOpenThread_RefetchesAfterDrop(t *testing.T) {
	hub := &trackingHub{Hub: realtime.NewHub(8)}
	fetcher := &stubFetcher{}
	fetcher.set(threadMessage("m-1", 1))

	view, err := OpenThread(context.Background(), seekerSession, models.BookingThread("b-1"), fetcher, hub)
	require.NoError(t, err)
	defer view.Close()

	// messages sent while disconnected are only recoverable by fetching
	fetcher.set(threadMessage("m-1", 1), threadMessage("m-2", 2), threadMessage("m-3", 3))
	hub.last().Close()

	require.Eventually(t, func() bool { return len(view.Messages()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, fetcher.Calls())
	assert.Equal(t, 2, hub.count())
	assert.NoError(t, view.Err())

	pushMessage(t, hub.Hub, threadMessage("m-4", 4))
	require.Eventually(t, func() bool { return len(view.Messages()) == 4 }, time.Second, 5*time.Millisecond)
}

func TestOpenThread_RefetchesAfterRelayReset(t *testing.T) {
	hub := &trackingHub{Hub: realtime.NewHub(8)}
	fetcher := &stubFetcher{}
	fetcher.set(threadMessage("m-1", 1))

	view, err := OpenThread(context.Background(), seekerSession, models.BookingThread("b-1"), fetcher, hub)
	require.NoError(t, err)
	defer view.Close()

	fetcher.set(threadMessage("m-1", 1), threadMessage("m-2", 2))
	hub.Reset(realtime.ErrRelayInterrupted)

	require.Eventually(t, func() bool { return len(view.Messages()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, fetcher.Calls())
	assert.NoError(t, view.Err())
}

func TestOpenThread_StopsWhenResubscribeFails(t *testing.T) {
	hub := &trackingHub{Hub: realtime.NewHub(8)}
	fetcher := &stubFetcher{}

	view, err := OpenThread(context.Background(), seekerSession, models.BookingThread("b-1"), fetcher, hub)
	require.NoError(t, err)
	defer view.Close()

	hub.Close()
	require.Eventually(t, func() bool { return view.Err() != nil }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, view.Err(), realtime.ErrHubClosed)
}

func TestOpenThread_FetchFailure(t *testing.T) {
	hub := &trackingHub{Hub: realtime.NewHub(8)}
	fetcher := &stubFetcher{err: errors.New("offline")}

	_, err := OpenThread(context.Background(), seekerSession, models.BookingThread("b-1"), fetcher, hub)
	assert.Error(t, err)
	assert.Equal(t, 0, hub.Subscribers(realtime.TableMessages))
}

func TestThreadView_CloseReleasesSubscription(t *testing.T) {
	hub := &trackingHub{Hub: realtime.NewHub(8)}
	fetcher := &stubFetcher{}
	fetcher.set(threadMessage("m-1", 1))

	view, err := OpenThread(context.Background(), seekerSession, models.BookingThread("b-1"), fetcher, hub)
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Subscribers(realtime.TableMessages))

	view.Close()
	assert.Equal(t, 0, hub.Subscribers(realtime.TableMessages))

	view.AddLocal(threadMessage("m-2", 2))
	assert.Len(t, view.Messages(), 1)
}
