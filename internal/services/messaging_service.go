package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/roomrent/backend/internal/config"
	"github.com/roomrent/backend/internal/models"
	"github.com/roomrent/backend/internal/realtime"
	"github.com/roomrent/backend/internal/redact"
)

const messageColumns = `id, booking_id, thread_key, sender_id, receiver_id, content, is_read, created_at`

// MessagingService stores thread messages and pushes them to realtime subscribers
type MessagingService struct {
	db         *sql.DB
	clock      clockwork.Clock
	publisher  realtime.Publisher
	ownerID    string
	maxContent int
	responder  *AutoResponder
}

// SendMessageRequest represents the message request payload
// @Description Message request structure
type SendMessageRequest struct {
	Content string `json:"content" validate:"required" example:"Is the room still available?"` // Message text
}

// thread is a resolved conversation with its two participants
type thread struct {
	ref          models.ThreadRef
	participants [2]string
	bookingID    *string
	open         bool
}

func (t *thread) other(accountID string) (string, bool) {
	switch accountID {
	case t.participants[0]:
		return t.participants[1], true
	case t.participants[1]:
		return t.participants[0], true
	}
	return "", false
}

func NewMessagingService(db *sql.DB, cfg *config.EngineConfig, clk clockwork.Clock, publisher realtime.Publisher) *MessagingService {
	return &MessagingService{
		db:         db,
		clock:      clk,
		publisher:  publisher,
		ownerID:    cfg.OwnerAccountID,
		maxContent: cfg.MaxContentLength,
	}
}

// SetAutoResponder attaches the support channel auto-responder
func (s *MessagingService) SetAutoResponder(responder *AutoResponder) {
	s.responder = responder
}

// OwnerID is the platform owner account that answers support threads
func (s *MessagingService) OwnerID() string {
	return s.ownerID
}

// SendMessage stores a message from the session's account to the other
// participant of ref. Booking thread content is redacted before it is stored.
func (s *MessagingService) SendMessage(ctx context.Context, session *models.Session, ref models.ThreadRef, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, Invalid("message content is required")
	}
	if s.maxContent > 0 && utf8.RuneCountInString(content) > s.maxContent {
		return nil, Invalid("message content exceeds %d characters", s.maxContent)
	}
	if !session.Authenticated() {
		return nil, ErrUnauthorized
	}

	th, err := s.resolveThread(ctx, ref)
	if err != nil {
		return nil, err
	}
	receiverID, ok := th.other(session.AccountID)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !th.open {
		return nil, ErrThreadClosed
	}

	if ref.Kind() == models.ThreadBooking && redact.Contains(content) {
		content = redact.Redact(content)
		log.Printf("[MESSAGING] Masked contact details in %s from %s", ref.Key(), session.AccountID)
	}

	msg, err := s.insertMessage(ctx, th, session.AccountID, receiverID, content)
	if err != nil {
		return nil, err
	}

	if s.responder != nil && ref.Kind() == models.ThreadSupport && session.AccountID != s.ownerID {
		s.responder.Observe(msg)
	}
	return msg, nil
}

// PostSystemMessage stores a message authored by the platform itself.
// It skips redaction and never triggers the auto-responder.
func (s *MessagingService) PostSystemMessage(ctx context.Context, ref models.ThreadRef, senderID, receiverID, content string) (*models.Message, error) {
	th, err := s.resolveThread(ctx, ref)
	if err != nil {
		return nil, err
	}
	if other, ok := th.other(senderID); !ok || other != receiverID {
		return nil, ErrUnauthorized
	}
	return s.insertMessage(ctx, th, senderID, receiverID, content)
}

// MarkThreadRead flips every unread message addressed to the reader in
// ref, and only in ref. Returns how many messages changed.
func (s *MessagingService) MarkThreadRead(ctx context.Context, session *models.Session, ref models.ThreadRef) (int, error) {
	if !session.Authenticated() {
		return 0, ErrUnauthorized
	}
	th, err := s.resolveThread(ctx, ref)
	if err != nil {
		return 0, err
	}
	if _, ok := th.other(session.AccountID); !ok {
		return 0, ErrUnauthorized
	}

	rows, err := s.db.QueryContext(ctx, `
		UPDATE messages SET is_read = true
		WHERE thread_key = $1 AND receiver_id = $2 AND is_read = false
		RETURNING `+messageColumns,
		ref.Key(), session.AccountID)
	if err != nil {
		return 0, transient("failed to mark thread read", err)
	}
	updated, err := collectMessages(rows)
	if err != nil {
		return 0, transient("failed to mark thread read", err)
	}

	for i := range updated {
		publish(ctx, s.publisher, realtime.Event{Table: realtime.TableMessages, Operation: realtime.OpUpdate, Row: &updated[i]})
	}
	if len(updated) > 0 {
		log.Printf("[MESSAGING] %d messages in %s marked read by %s", len(updated), ref.Key(), session.AccountID)
	}
	return len(updated), nil
}

// FetchThread returns the full history of ref ordered by creation time
func (s *MessagingService) FetchThread(ctx context.Context, session *models.Session, ref models.ThreadRef) ([]models.Message, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthorized
	}
	th, err := s.resolveThread(ctx, ref)
	if err != nil {
		return nil, err
	}
	if _, ok := th.other(session.AccountID); !ok {
		return nil, ErrUnauthorized
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE thread_key = $1 ORDER BY created_at, id`, ref.Key())
	if err != nil {
		return nil, transient("failed to fetch thread", err)
	}
	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, transient("failed to fetch thread", err)
	}
	models.SortMessages(msgs)
	return msgs, nil
}

// ListThreadsFor builds the session's inbox: one row per counterpart
func (s *MessagingService) ListThreadsFor(ctx context.Context, session *models.Session) ([]models.InboxEntry, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthorized
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at, id`, session.AccountID)
	if err != nil {
		return nil, transient("failed to list threads", err)
	}
	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, transient("failed to list threads", err)
	}
	return SummarizeInbox(session.AccountID, msgs), nil
}

// SummarizeInbox groups accountID's threads by the other participant.
// Each row carries the latest message across its threads and the sum of
// their unread counts. Rows and the threads inside them are newest first.
func SummarizeInbox(accountID string, msgs []models.Message) []models.InboxEntry {
	threads := SummarizeThreads(accountID, msgs)

	var entries []models.InboxEntry
	index := make(map[string]int)
	for _, th := range threads {
		i, ok := index[th.OtherID]
		if !ok {
			i = len(entries)
			index[th.OtherID] = i
			entries = append(entries, models.InboxEntry{
				OtherID:       th.OtherID,
				ThreadKey:     th.ThreadKey,
				LastMessage:   th.LastMessage,
				LastMessageAt: th.LastMessageAt,
			})
		}
		entries[i].UnreadCount += th.UnreadCount
		entries[i].Threads = append(entries[i].Threads, th)
	}
	return entries
}

// SummarizeThreads groups accountID's messages by thread and reports the
// other participant, the latest message and the unread count of each,
// most recent thread first
func SummarizeThreads(accountID string, msgs []models.Message) []models.ThreadSummary {
	byKey := make(map[string]*models.ThreadSummary)
	latest := make(map[string]models.Message)

	for _, m := range msgs {
		if m.SenderID != accountID && m.ReceiverID != accountID {
			continue
		}
		summary, ok := byKey[m.ThreadKey]
		if !ok {
			summary = &models.ThreadSummary{ThreadKey: m.ThreadKey, Kind: models.ThreadSupport}
			if m.BookingID != nil {
				summary.Kind = models.ThreadBooking
				summary.BookingID = *m.BookingID
			}
			byKey[m.ThreadKey] = summary
		}

		if prev, seen := latest[m.ThreadKey]; !seen || laterMessage(m, prev) {
			latest[m.ThreadKey] = m
			summary.LastMessage = m.Content
			summary.LastMessageAt = m.CreatedAt
			if m.SenderID == accountID {
				summary.OtherID = m.ReceiverID
			} else {
				summary.OtherID = m.SenderID
			}
		}
		if m.ReceiverID == accountID && !m.IsRead {
			summary.UnreadCount++
		}
	}

	summaries := make([]models.ThreadSummary, 0, len(byKey))
	for _, summary := range byKey {
		summaries = append(summaries, *summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].LastMessageAt.Equal(summaries[j].LastMessageAt) {
			return summaries[i].ThreadKey < summaries[j].ThreadKey
		}
		return summaries[i].LastMessageAt.After(summaries[j].LastMessageAt)
	})
	return summaries
}

func laterMessage(a, b models.Message) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// resolveThread finds the two participants of ref and whether it still
// accepts new messages
func (s *MessagingService) resolveThread(ctx context.Context, ref models.ThreadRef) (*thread, error) {
	switch ref.Kind() {
	case models.ThreadBooking:
		var seekerID, providerID string
		var status models.BookingStatus
		err := s.db.QueryRowContext(ctx,
			`SELECT seeker_id, provider_id, status FROM bookings WHERE id = $1`,
			ref.BookingID).Scan(&seekerID, &providerID, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, transient("failed to resolve thread", err)
		}
		bookingID := ref.BookingID
		return &thread{
			ref:          ref,
			participants: [2]string{seekerID, providerID},
			bookingID:    &bookingID,
			open:         status.IsActive(),
		}, nil

	case models.ThreadSupport:
		if s.ownerID == "" || ref.OwnerID != s.ownerID || ref.UserID == "" || ref.UserID == ref.OwnerID {
			return nil, ErrNotFound
		}
		return &thread{
			ref:          ref,
			participants: [2]string{ref.UserID, ref.OwnerID},
			open:         true,
		}, nil
	}
	return nil, ErrNotFound
}

func (s *MessagingService) insertMessage(ctx context.Context, th *thread, senderID, receiverID, content string) (*models.Message, error) {
	msg := &models.Message{
		ID:         uuid.NewString(),
		BookingID:  th.bookingID,
		ThreadKey:  th.ref.Key(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		IsRead:     false,
		CreatedAt:  s.clock.Now(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		msg.ID, msg.BookingID, msg.ThreadKey, msg.SenderID, msg.ReceiverID, msg.Content, msg.IsRead, msg.CreatedAt)
	if err != nil {
		return nil, transient("failed to store message", err)
	}

	log.Printf("[MESSAGING] Message %s stored in %s from %s to %s", msg.ID, msg.ThreadKey, senderID, receiverID)
	publish(ctx, s.publisher, realtime.Event{Table: realtime.TableMessages, Operation: realtime.OpInsert, Row: msg})
	return msg, nil
}

func collectMessages(rows *sql.Rows) ([]models.Message, error) {
	defer rows.Close()

	msgs := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.BookingID, &m.ThreadKey, &m.SenderID, &m.ReceiverID,
			&m.Content, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
