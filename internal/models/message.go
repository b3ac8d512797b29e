package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ThreadKind tells booking conversations apart from support conversations
type ThreadKind string

const (
	ThreadBooking ThreadKind = "booking"
	ThreadSupport ThreadKind = "support"
)

// ThreadRef addresses a conversation between exactly two participants.
// A booking thread is keyed by BookingID; a support thread by (UserID, OwnerID).
type ThreadRef struct {
	BookingID string `json:"bookingId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	OwnerID   string `json:"ownerId,omitempty"`
}

func BookingThread(bookingID string) ThreadRef {
	return ThreadRef{BookingID: bookingID}
}

func SupportThread(userID, ownerID string) ThreadRef {
	return ThreadRef{UserID: userID, OwnerID: ownerID}
}

// Kind is inferred from whether the booking id is set
func (t ThreadRef) Kind() ThreadKind {
	if t.BookingID != "" {
		return ThreadBooking
	}
	return ThreadSupport
}

// Key is the stable string form used in URLs, storage and realtime filters
func (t ThreadRef) Key() string {
	if t.Kind() == ThreadBooking {
		return "booking:" + t.BookingID
	}
	return "support:" + t.UserID + ":" + t.OwnerID
}

func (t ThreadRef) String() string { return t.Key() }

// ParseThreadKey is the inverse of ThreadRef.Key
func ParseThreadKey(key string) (ThreadRef, error) {
	parts := strings.Split(key, ":")
	switch {
	case len(parts) == 2 && parts[0] == string(ThreadBooking) && parts[1] != "":
		return BookingThread(parts[1]), nil
	case len(parts) == 3 && parts[0] == string(ThreadSupport) && parts[1] != "" && parts[2] != "":
		return SupportThread(parts[1], parts[2]), nil
	}
	return ThreadRef{}, fmt.Errorf("malformed thread key %q", key)
}

// Message belongs to exactly one thread. Only IsRead ever changes, and only to true.
type Message struct {
	ID         string    `json:"id" db:"id"`
	BookingID  *string   `json:"bookingId,omitempty" db:"booking_id"`
	ThreadKey  string    `json:"threadKey" db:"thread_key"`
	SenderID   string    `json:"senderId" db:"sender_id"`
	ReceiverID string    `json:"receiverId" db:"receiver_id"`
	Content    string    `json:"content" db:"content"`
	IsRead     bool      `json:"isRead" db:"is_read"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// Column exposes the columns realtime subscribers may filter messages on
func (m *Message) Column(name string) (string, bool) {
	switch name {
	case "id":
		return m.ID, true
	case "thread_key":
		return m.ThreadKey, true
	case "sender_id":
		return m.SenderID, true
	case "receiver_id":
		return m.ReceiverID, true
	case "booking_id":
		if m.BookingID == nil {
			return "", false
		}
		return *m.BookingID, true
	}
	return "", false
}

// InboxEntry is one inbox row: everything exchanged with one counterpart.
// ThreadKey names the thread holding LastMessage; Threads keeps the
// per-thread unread counts that MarkThreadRead acts on.
type InboxEntry struct {
	OtherID       string          `json:"otherId"`
	ThreadKey     string          `json:"threadKey"`
	LastMessage   string          `json:"lastMessage"`
	LastMessageAt time.Time       `json:"lastMessageAt"`
	UnreadCount   int             `json:"unreadCount"`
	Threads       []ThreadSummary `json:"threads"`
}

// ThreadSummary is the state of one thread within an inbox row
type ThreadSummary struct {
	ThreadKey     string     `json:"threadKey"`
	Kind          ThreadKind `json:"kind"`
	BookingID     string     `json:"bookingId,omitempty"`
	OtherID       string     `json:"otherId"`
	LastMessage   string     `json:"lastMessage"`
	LastMessageAt time.Time  `json:"lastMessageAt"`
	UnreadCount   int        `json:"unreadCount"`
}

// SortMessages orders a thread by creation time, ties broken by id
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}

// MergeMessages folds incoming messages into current, keyed by id.
// A later copy of a message replaces the earlier one unless it would
// flip IsRead back to false.
func MergeMessages(current, incoming []Message) []Message {
	index := make(map[string]int, len(current)+len(incoming))
	merged := make([]Message, 0, len(current)+len(incoming))
	for _, batch := range [][]Message{current, incoming} {
		for _, m := range batch {
			if i, ok := index[m.ID]; ok {
				read := merged[i].IsRead || m.IsRead
				merged[i] = m
				merged[i].IsRead = read
				continue
			}
			index[m.ID] = len(merged)
			merged = append(merged, m)
		}
	}
	SortMessages(merged)
	return merged
}
