package services

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"github.com/roomrent/backend/internal/models"
)

// AutoReplyRule answers a support message containing any of Keywords
type AutoReplyRule struct {
	Keywords []string
	Reply    string
}

// DefaultAutoReplyRules is checked in order; the first matching rule wins
var DefaultAutoReplyRules = []AutoReplyRule{
	{
		Keywords: []string{"refund", "money back"},
		Reply:    "Refunds are reviewed within 3 business days. Please share your booking id so we can look into it.",
	},
	{
		Keywords: []string{"dues", "penalty", "deactivated", "commission"},
		Reply:    "Your dues are shown on the dues page. Clearing the full amount reactivates your account immediately.",
	},
	{
		Keywords: []string{"cancel"},
		Reply:    "Pending bookings can be cancelled from the booking page. Accepted bookings need the provider to contact us.",
	},
	{
		Keywords: []string{"book", "reserve"},
		Reply:    "To book a room open the listing, choose your stay duration and send the request to the provider.",
	},
	{
		Keywords: []string{"hello", "hi", "help"},
		Reply:    "Hi! Thanks for reaching out. Tell us what you need and an admin will follow up shortly.",
	},
}

// MatchAutoReply returns the reply of the first rule whose keyword appears
// in content, ignoring case
func MatchAutoReply(rules []AutoReplyRule, content string) (string, bool) {
	lower := strings.ToLower(content)
	for _, rule := range rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(lower, strings.ToLower(keyword)) {
				return rule.Reply, true
			}
		}
	}
	return "", false
}

// SystemMessageWriter stores messages authored by the platform
type SystemMessageWriter interface {
	PostSystemMessage(ctx context.Context, ref models.ThreadRef, senderID, receiverID, content string) (*models.Message, error)
}

// AutoResponder answers support messages on behalf of the owner after a
// short typing delay
type AutoResponder struct {
	writer  SystemMessageWriter
	redis   *redis.Client
	clock   clockwork.Clock
	delay   time.Duration
	ownerID string
	rules   []AutoReplyRule

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]clockwork.Timer
	closed  bool
}

func NewAutoResponder(writer SystemMessageWriter, redisClient *redis.Client, clk clockwork.Clock, ownerID string, delay time.Duration) *AutoResponder {
	ctx, cancel := context.WithCancel(context.Background())
	return &AutoResponder{
		writer:  writer,
		redis:   redisClient,
		clock:   clk,
		delay:   delay,
		ownerID: ownerID,
		rules:   DefaultAutoReplyRules,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[uint64]clockwork.Timer),
	}
}

func typingKey(threadKey string) string {
	return "typing:" + threadKey
}

// Observe schedules a canned reply to msg when it is a support message
// from a user and matches a rule. Returns whether a reply was scheduled.
func (r *AutoResponder) Observe(msg *models.Message) bool {
	if msg.BookingID != nil || msg.SenderID == r.ownerID {
		return false
	}
	reply, ok := MatchAutoReply(r.rules, msg.Content)
	if !ok {
		return false
	}
	ref, err := models.ParseThreadKey(msg.ThreadKey)
	if err != nil || ref.Kind() != models.ThreadSupport {
		return false
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	id := r.nextID
	r.nextID++
	r.pending[id] = nil
	r.mu.Unlock()

	r.setTyping(msg.ThreadKey)

	// the callback may run before AfterFunc returns, so fire checks pending itself
	userID := msg.SenderID
	timer := r.clock.AfterFunc(r.delay, func() {
		r.fire(id, ref, userID, reply)
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		timer.Stop()
		return true
	}
	if _, ok := r.pending[id]; ok {
		r.pending[id] = timer
	}
	return true
}

func (r *AutoResponder) fire(id uint64, ref models.ThreadRef, userID, reply string) {
	r.mu.Lock()
	if _, ok := r.pending[id]; !ok || r.closed {
		r.mu.Unlock()
		return
	}
	delete(r.pending, id)
	r.mu.Unlock()

	r.clearTyping(ref.Key())
	if _, err := r.writer.PostSystemMessage(r.ctx, ref, r.ownerID, userID, reply); err != nil {
		log.Printf("[MESSAGING] Auto reply to %s failed: %v", ref.Key(), err)
		return
	}
	log.Printf("[MESSAGING] Auto reply sent in %s", ref.Key())
}

// IsTyping reports whether a reply is being composed for threadKey
func (r *AutoResponder) IsTyping(ctx context.Context, threadKey string) bool {
	if r.redis == nil {
		return false
	}
	n, err := r.redis.Exists(ctx, typingKey(threadKey)).Result()
	if err != nil {
		log.Printf("[MESSAGING] Failed to read typing state: %v", err)
		return false
	}
	return n > 0
}

// Pending is the number of replies scheduled but not yet sent
func (r *AutoResponder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Close cancels every scheduled reply. Replies already being written are abandoned.
func (r *AutoResponder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for id, timer := range r.pending {
		if timer != nil {
			timer.Stop()
		}
		delete(r.pending, id)
	}
	r.cancel()
}

func (r *AutoResponder) setTyping(threadKey string) {
	if r.redis == nil {
		return
	}
	if err := r.redis.Set(r.ctx, typingKey(threadKey), r.ownerID, r.delay+time.Second).Err(); err != nil {
		log.Printf("[MESSAGING] Failed to set typing state: %v", err)
	}
}

func (r *AutoResponder) clearTyping(threadKey string) {
	if r.redis == nil {
		return
	}
	if err := r.redis.Del(r.ctx, typingKey(threadKey)).Err(); err != nil {
		log.Printf("[MESSAGING] Failed to clear typing state: %v", err)
	}
}
