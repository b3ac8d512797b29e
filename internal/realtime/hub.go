// Package realtime fans out row change notifications to subscribers
// filtered by table and column value.
//
// Delivery is at-most-once with no replay. Each subscription owns a
// bounded buffer; a subscriber that lets it fill up is dropped and its
// channel closed with ErrSubscriberOverflow, after which the client is
// expected to re-fetch state and subscribe again.
package realtime

import (
	"context"
	"errors"
	"log"
	"sync"
)

type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
)

const (
	TableAccounts = "accounts"
	TableBookings = "bookings"
	TableMessages = "messages"
)

var (
	ErrSubscriberOverflow = errors.New("realtime: subscriber fell behind and was dropped")
	ErrSubscriptionClosed = errors.New("realtime: subscription closed")
	ErrHubClosed          = errors.New("realtime: hub closed")
	ErrRelayInterrupted   = errors.New("realtime: relay connection interrupted")
)

// Row is a published record. Column returns the string form of a
// filterable column and false when the row has no such column.
type Row interface {
	Column(name string) (string, bool)
}

type Event struct {
	Table     string    `json:"table"`
	Operation Operation `json:"operation"`
	Row       Row       `json:"row"`
}

// Publisher accepts events for fan-out
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Filter is an equality predicate on one column. The zero Filter matches every row.
type Filter struct {
	Column string
	Value  string
}

func Eq(column, value string) Filter {
	return Filter{Column: column, Value: value}
}

func (f Filter) Matches(row Row) bool {
	if f.Column == "" {
		return true
	}
	if row == nil {
		return false
	}
	v, ok := row.Column(f.Column)
	return ok && v == f.Value
}

// Hub is an in-process realtime channel
type Hub struct {
	mu         sync.Mutex
	subs       map[string]map[*Subscription]struct{}
	bufferSize int
	closed     bool
}

func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Hub{
		subs:       make(map[string]map[*Subscription]struct{}),
		bufferSize: bufferSize,
	}
}

// Subscription is one consumer's view of a table. Close releases it;
// cancelling the context passed to Subscribe does the same.
type Subscription struct {
	hub    *Hub
	table  string
	filter Filter
	ch     chan Event
	done   chan struct{}
	err    error
}

// Subscribe registers interest in table rows matching filter
func (h *Hub) Subscribe(ctx context.Context, table string, filter Filter) (*Subscription, error) {
	sub := &Subscription{
		hub:    h,
		table:  table,
		filter: filter,
		ch:     make(chan Event, h.bufferSize),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	if h.subs[table] == nil {
		h.subs[table] = make(map[*Subscription]struct{})
	}
	h.subs[table][sub] = struct{}{}
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

// Publish delivers event to every matching subscription without blocking
func (h *Hub) Publish(ctx context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}

	for sub := range h.subs[event.Table] {
		if !sub.filter.Matches(event.Row) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			log.Printf("[REALTIME] Dropping subscriber on %s (%s=%s): buffer full",
				sub.table, sub.filter.Column, sub.filter.Value)
			h.dropLocked(sub, ErrSubscriberOverflow)
		}
	}
	return nil
}

// Subscribers returns the number of live subscriptions on table
func (h *Hub) Subscribers(table string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[table])
}

// Reset drops every live subscription with reason but keeps accepting
// new ones. Subscribers that may have missed events re-fetch on the close.
func (h *Hub) Reset(reason error) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, subs := range h.subs {
		for sub := range subs {
			h.dropLocked(sub, reason)
			n++
		}
	}
	return n
}

// Close drops every subscription and rejects further use
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, subs := range h.subs {
		for sub := range subs {
			h.dropLocked(sub, ErrHubClosed)
		}
	}
}

func (h *Hub) dropLocked(sub *Subscription, reason error) {
	subs, ok := h.subs[sub.table]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.subs, sub.table)
	}
	sub.err = reason
	close(sub.ch)
	close(sub.done)
}

// C delivers events until the subscription ends, then is closed
func (s *Subscription) C() <-chan Event { return s.ch }

// Err explains why C was closed. Nil while the subscription is live.
func (s *Subscription) Err() error {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.err
}

// Close ends the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.dropLocked(s, ErrSubscriptionClosed)
}
