package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/roomrent/backend/internal/models"
	"github.com/roomrent/backend/internal/realtime"
	"github.com/roomrent/backend/internal/services"
)

// supportAlias lets a seeker or provider address their own support thread
// without knowing the owner's account id
const supportAlias = "support"

type MessageHandler struct {
	messaging *services.MessagingService
	responder *services.AutoResponder
	hub       *realtime.Hub
	validator *services.ValidationHelper
}

func NewMessageHandler(messaging *services.MessagingService, responder *services.AutoResponder, hub *realtime.Hub) *MessageHandler {
	return &MessageHandler{
		messaging: messaging,
		responder: responder,
		hub:       hub,
		validator: services.NewValidationHelper(),
	}
}

func (h *MessageHandler) threadRef(w http.ResponseWriter, r *http.Request, session *models.Session) (models.ThreadRef, bool) {
	key := urlParam(r, "threadKey")
	if key == supportAlias {
		return models.SupportThread(session.AccountID, h.messaging.OwnerID()), true
	}
	ref, err := models.ParseThreadKey(key)
	if err != nil {
		services.SendErrorResponse(w, "Invalid thread key", http.StatusBadRequest, nil)
		return models.ThreadRef{}, false
	}
	return ref, true
}

// ListThreads returns the caller's inbox
// @Summary List threads
// @Description One row per counterpart, most recent first, with per-thread unread counts
// @Tags Messaging
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.InboxEntry
// @Failure 401 {object} services.ErrorResponse
// @Router /threads [get]
func (h *MessageHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	threads, err := h.messaging.ListThreadsFor(r.Context(), session)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	if threads == nil {
		threads = []models.InboxEntry{}
	}
	respondJSON(w, http.StatusOK, threads)
}

// FetchThread returns a thread's history
// @Summary Get thread messages
// @Tags Messaging
// @Produce json
// @Security BearerAuth
// @Param threadKey path string true "Thread key (booking:<id>, support:<user>:<owner> or support)"
// @Success 200 {array} models.Message
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /threads/{threadKey}/messages [get]
func (h *MessageHandler) FetchThread(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}
	ref, ok := h.threadRef(w, r, session)
	if !ok {
		return
	}

	msgs, err := h.messaging.FetchThread(r.Context(), session, ref)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	respondJSON(w, http.StatusOK, msgs)
}

// SendMessage posts to a thread
// @Summary Send message
// @Description Contact details in booking threads are masked before storage. Support messages may draw an automatic reply.
// @Tags Messaging
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param threadKey path string true "Thread key"
// @Param request body services.SendMessageRequest true "Message"
// @Success 201 {object} models.Message
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse "Thread closed"
// @Router /threads/{threadKey}/messages [post]
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}
	ref, ok := h.threadRef(w, r, session)
	if !ok {
		return
	}

	var req services.SendMessageRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	msg, err := h.messaging.SendMessage(r.Context(), session, ref, req.Content)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

// MarkRead marks the caller's unread messages in a thread as read
// @Summary Mark thread read
// @Tags Messaging
// @Produce json
// @Security BearerAuth
// @Param threadKey path string true "Thread key"
// @Success 200 {object} object{updated=int}
// @Router /threads/{threadKey}/read [put]
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}
	ref, ok := h.threadRef(w, r, session)
	if !ok {
		return
	}

	n, err := h.messaging.MarkThreadRead(r.Context(), session, ref)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"updated": n})
}

// Typing reports whether an automatic support reply is being composed
// @Summary Support typing indicator
// @Tags Messaging
// @Produce json
// @Security BearerAuth
// @Param threadKey path string true "Thread key"
// @Success 200 {object} object{typing=bool}
// @Router /threads/{threadKey}/typing [get]
func (h *MessageHandler) Typing(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}
	ref, ok := h.threadRef(w, r, session)
	if !ok {
		return
	}

	typing := false
	if ref.Kind() == models.ThreadSupport && h.responder != nil {
		if session.AccountID != ref.UserID && session.AccountID != ref.OwnerID {
			services.SendServiceError(w, services.ErrUnauthorized)
			return
		}
		typing = h.responder.IsTyping(r.Context(), ref.Key())
	}
	respondJSON(w, http.StatusOK, map[string]bool{"typing": typing})
}

// ThreadEvents streams a live view of one thread as server-sent events.
// Every event carries the full ordered message list.
// @Summary Thread event stream
// @Tags Messaging
// @Produce text/event-stream
// @Security BearerAuth
// @Param threadKey path string true "Thread key"
// @Success 200 {array} models.Message "snapshot events"
// @Router /threads/{threadKey}/events [get]
func (h *MessageHandler) ThreadEvents(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}
	ref, ok := h.threadRef(w, r, session)
	if !ok {
		return
	}

	view, err := services.OpenThread(r.Context(), session, ref, h.messaging, h.hub)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	defer view.Close()

	stream, ok := startStream(w, r)
	if !ok {
		return
	}
	log.Printf("[REALTIME] %s following %s", session.AccountID, ref.Key())

	if err := stream.send("snapshot", view.Messages()); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-view.Done():
			if err := view.Err(); err != nil {
				stream.send("error", map[string]string{"error": err.Error()})
			}
			return
		case <-view.Updates():
			if err := stream.send("snapshot", view.Messages()); err != nil {
				return
			}
		case <-heartbeat.C:
			if err := stream.ping(); err != nil {
				return
			}
		}
	}
}

// InboxEvents streams every message addressed to the caller. The stream
// ends with a reset event when the subscriber is dropped; clients then
// reload the inbox and reconnect.
// @Summary Inbox event stream
// @Tags Messaging
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 {object} models.Message "insert and update events"
// @Router /inbox/events [get]
func (h *MessageHandler) InboxEvents(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	sub, err := h.hub.Subscribe(r.Context(), realtime.TableMessages, realtime.Eq("receiver_id", session.AccountID))
	if err != nil {
		services.SendErrorResponse(w, "Realtime feed unavailable", http.StatusServiceUnavailable, nil)
		return
	}
	defer sub.Close()

	followSubscription(w, r, sub)
}
