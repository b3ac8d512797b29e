package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/roomrent/backend/internal/realtime"
	"github.com/roomrent/backend/internal/services"
	"github.com/tmaxmax/go-sse"
)

const heartbeatInterval = 25 * time.Second

// eventStream writes JSON payloads as named server-sent events
type eventStream struct {
	session *sse.Session
}

// startStream upgrades the response and flushes the headers right away so
// the client sees the stream open before the first event
func startStream(w http.ResponseWriter, r *http.Request) (*eventStream, bool) {
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	session, err := sse.Upgrade(w, r)
	if err != nil {
		services.SendErrorResponse(w, "Streaming unsupported", http.StatusInternalServerError, nil)
		return nil, false
	}
	stream := &eventStream{session: session}
	if err := stream.ping(); err != nil {
		return nil, false
	}
	return stream, true
}

func (s *eventStream) send(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := &sse.Message{Type: sse.Type(event)}
	msg.AppendData(string(data))
	if err := s.session.Send(msg); err != nil {
		return err
	}
	return s.session.Flush()
}

func (s *eventStream) ping() error {
	msg := &sse.Message{}
	msg.AppendComment("ping")
	if err := s.session.Send(msg); err != nil {
		return err
	}
	return s.session.Flush()
}

// followSubscription streams sub until the client leaves or the hub drops
// it. A drop ends the stream with a reset event so the client reloads and
// reconnects.
func followSubscription(w http.ResponseWriter, r *http.Request, sub *realtime.Subscription) {
	stream, ok := startStream(w, r)
	if !ok {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-sub.C():
			if !open {
				stream.send("reset", map[string]string{"error": fmt.Sprint(sub.Err())})
				return
			}
			if err := stream.send(string(ev.Operation), ev.Row); err != nil {
				return
			}
		case <-heartbeat.C:
			if err := stream.ping(); err != nil {
				return
			}
		}
	}
}
