package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/roomrent/backend/internal/models"
)

const (
	channelPrefix       = "realtime:"
	healthCheckInterval = 30 * time.Second
)

// RedisRelay publishes events through Redis so every server instance
// feeds them into its local Hub. Publishers on any instance reach
// subscribers on all of them. Once Run has returned, Publish falls back
// to the local hub.
type RedisRelay struct {
	redis      *redis.Client
	hub        *Hub
	stopped    atomic.Bool
	retryDelay time.Duration
}

type wireEvent struct {
	Table     string          `json:"table"`
	Operation Operation       `json:"operation"`
	Row       json.RawMessage `json:"row"`
}

func NewRedisRelay(client *redis.Client, hub *Hub) *RedisRelay {
	return &RedisRelay{redis: client, hub: hub, retryDelay: time.Second}
}

func (r *RedisRelay) Publish(ctx context.Context, event Event) error {
	if r.stopped.Load() {
		return r.hub.Publish(ctx, event)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return r.redis.Publish(ctx, channelPrefix+event.Table, string(payload)).Err()
}

// Run forwards Redis messages into the local hub until ctx is done.
// Losing the Redis connection resets every hub subscription, once when
// the loss is seen and again when the pattern subscription is confirmed
// on the new connection, so subscribers re-fetch what they missed.
func (r *RedisRelay) Run(ctx context.Context) error {
	defer r.stopped.Store(true)

	pubsub := r.redis.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to realtime channels: %w", err)
	}
	log.Printf("[REALTIME] Relay subscribed to %s*", channelPrefix)

	connected := true
	for {
		msg, err := pubsub.ReceiveTimeout(ctx, healthCheckInterval)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if isTimeout(err) {
				// idle; a ping proves the connection is still there
				if err = pubsub.Ping(ctx); err == nil {
					continue
				}
			}
			if connected {
				connected = false
				r.interrupt(err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.retryDelay):
			}
			continue
		}
		connected = r.handle(ctx, msg, connected)
	}
}

// handle processes one PubSub reply and returns the new connection state
func (r *RedisRelay) handle(ctx context.Context, msg interface{}, connected bool) bool {
	switch m := msg.(type) {
	case *redis.Message:
		if err := r.deliver(ctx, m.Channel, m.Payload); err != nil {
			log.Printf("[REALTIME] Discarding message on %s: %v", m.Channel, err)
		}
	case *redis.Subscription:
		// go-redis resubscribes after reconnecting; events published
		// while it was away are gone
		if !connected {
			log.Printf("[REALTIME] Relay resubscribed to %s", m.Channel)
			r.interrupt(nil)
		}
		return true
	}
	return connected
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (r *RedisRelay) interrupt(cause error) {
	n := r.hub.Reset(ErrRelayInterrupted)
	if cause != nil {
		log.Printf("[REALTIME] Relay connection lost: %v; reset %d subscribers", cause, n)
		return
	}
	log.Printf("[REALTIME] Reset %d subscribers after reconnect", n)
}

func (r *RedisRelay) deliver(ctx context.Context, channel, payload string) error {
	event, err := DecodeEvent([]byte(payload))
	if err != nil {
		return err
	}
	if table := strings.TrimPrefix(channel, channelPrefix); table != event.Table {
		return fmt.Errorf("event for %s arrived on channel %s", event.Table, channel)
	}
	return r.hub.Publish(ctx, event)
}

// DecodeEvent parses the JSON form of an Event back into a typed row
func DecodeEvent(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}

	var row Row
	switch w.Table {
	case TableAccounts:
		row = &models.Account{}
	case TableBookings:
		row = &models.Booking{}
	case TableMessages:
		row = &models.Message{}
	default:
		return Event{}, fmt.Errorf("unknown table %q", w.Table)
	}
	if err := json.Unmarshal(w.Row, row); err != nil {
		return Event{}, fmt.Errorf("failed to decode %s row: %w", w.Table, err)
	}
	return Event{Table: w.Table, Operation: w.Operation, Row: row}, nil
}
