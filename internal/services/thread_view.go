package services

import (
	"context"
	"log"
	"sync"

	"github.com/roomrent/backend/internal/models"
	"github.com/roomrent/backend/internal/realtime"
)

// ThreadFetcher loads the full history of a thread
type ThreadFetcher interface {
	FetchThread(ctx context.Context, session *models.Session, ref models.ThreadRef) ([]models.Message, error)
}

// Subscriber opens filtered realtime subscriptions
type Subscriber interface {
	Subscribe(ctx context.Context, table string, filter realtime.Filter) (*realtime.Subscription, error)
}

// ThreadView keeps a live, ordered copy of one thread for a client. It
// merges optimistic local messages with pushed ones by id and recovers
// from a dropped subscription by fetching the thread again.
type ThreadView struct {
	session *models.Session
	ref     models.ThreadRef
	fetcher ThreadFetcher
	hub     Subscriber

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	messages []models.Message
	closed   bool
	err      error
	updates  chan struct{}
}

// OpenThread subscribes to ref before fetching it so nothing sent in
// between is missed
func OpenThread(ctx context.Context, session *models.Session, ref models.ThreadRef, fetcher ThreadFetcher, hub Subscriber) (*ThreadView, error) {
	ctx, cancel := context.WithCancel(ctx)
	v := &ThreadView{
		session: session,
		ref:     ref,
		fetcher: fetcher,
		hub:     hub,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		updates: make(chan struct{}, 1),
	}

	sub, err := v.subscribe()
	if err != nil {
		cancel()
		return nil, err
	}
	msgs, err := fetcher.FetchThread(ctx, session, ref)
	if err != nil {
		sub.Close()
		cancel()
		return nil, err
	}
	v.messages = models.MergeMessages(nil, msgs)

	go v.run(sub)
	return v, nil
}

func (v *ThreadView) subscribe() (*realtime.Subscription, error) {
	return v.hub.Subscribe(v.ctx, realtime.TableMessages, realtime.Eq("thread_key", v.ref.Key()))
}

func (v *ThreadView) run(sub *realtime.Subscription) {
	defer close(v.done)
	defer func() { sub.Close() }()

	for {
		select {
		case <-v.ctx.Done():
			return

		case ev, ok := <-sub.C():
			if ok {
				if msg, isMsg := ev.Row.(*models.Message); isMsg {
					v.apply([]models.Message{*msg})
				}
				continue
			}
			if v.ctx.Err() != nil {
				return
			}

			log.Printf("[MESSAGING] Thread %s subscription lost: %v; re-fetching", v.ref.Key(), sub.Err())
			next, err := v.subscribe()
			if err != nil {
				v.fail(err)
				return
			}
			sub = next

			msgs, err := v.fetcher.FetchThread(v.ctx, v.session, v.ref)
			if err != nil {
				log.Printf("[MESSAGING] Re-fetch of %s failed: %v", v.ref.Key(), err)
				continue
			}
			v.apply(msgs)
		}
	}
}

// AddLocal merges an optimistically sent message. The server copy that
// arrives later replaces it rather than duplicating it.
func (v *ThreadView) AddLocal(msg models.Message) {
	v.apply([]models.Message{msg})
}

func (v *ThreadView) apply(msgs []models.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.messages = models.MergeMessages(v.messages, msgs)
	select {
	case v.updates <- struct{}{}:
	default:
	}
}

func (v *ThreadView) fail(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.err = err
}

// Messages returns a snapshot of the thread in display order
func (v *ThreadView) Messages() []models.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.Message, len(v.messages))
	copy(out, v.messages)
	return out
}

// Updates signals after the message list changes. Signals coalesce.
func (v *ThreadView) Updates() <-chan struct{} {
	return v.updates
}

// Done is closed once the view stops following the thread
func (v *ThreadView) Done() <-chan struct{} {
	return v.done
}

// Err reports why the view stopped following the thread, if it did
func (v *ThreadView) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Close releases the subscription and discards any completion that lands afterwards
func (v *ThreadView) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()

	v.cancel()
	<-v.done
}
