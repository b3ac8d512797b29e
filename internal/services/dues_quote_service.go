package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// DuesQuote is the total an account must confirm to clear its dues
// @Description Dues quote structure
type DuesQuote struct {
	Token         string          `json:"token,omitempty"`                                  // Single use confirmation token
	AccountID     string          `json:"accountId"`                                        // Quoted account
	WalletBalance decimal.Decimal `json:"walletBalance" swaggertype:"string" example:"500"` // Accrued commission
	PenaltyAmount decimal.Decimal `json:"penaltyAmount" swaggertype:"string" example:"50"`  // Late penalty
	Total         decimal.Decimal `json:"total" swaggertype:"string" example:"550"`         // Amount to confirm
	ExpiresAt     time.Time       `json:"expiresAt,omitempty"`                              // Token expiry
	QRImage       string          `json:"qrImage,omitempty"`                                // Base64 PNG encoding the token
}

type quotePayload struct {
	AccountID string          `json:"accountId"`
	Total     decimal.Decimal `json:"total"`
	Nonce     string          `json:"nonce"`
}

// DuesQuoteService issues and redeems dues confirmation tokens
type DuesQuoteService struct {
	ledger *LedgerService
	redis  *redis.Client
	clock  clockwork.Clock
	ttl    time.Duration
	nonce  func() string
}

func NewDuesQuoteService(ledger *LedgerService, redisClient *redis.Client, clk clockwork.Clock, ttl time.Duration) *DuesQuoteService {
	return &DuesQuoteService{
		ledger: ledger,
		redis:  redisClient,
		clock:  clk,
		ttl:    ttl,
		nonce:  generateNonce,
	}
}

func quoteKey(token string) string {
	return fmt.Sprintf("dues_quote:%s", token)
}

// Quote reports the account's current dues. When anything is owed and Redis
// is available it also stores a confirmation token for the exact total and
// renders it as a QR code.
func (s *DuesQuoteService) Quote(ctx context.Context, accountID string) (*DuesQuote, error) {
	account, err := s.ledger.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	quote := &DuesQuote{
		AccountID:     account.ID,
		WalletBalance: account.WalletBalance,
		PenaltyAmount: account.PenaltyAmount,
		Total:         account.Dues(),
	}
	if quote.Total.IsZero() || s.redis == nil {
		return quote, nil
	}

	payload, err := json.Marshal(quotePayload{AccountID: account.ID, Total: quote.Total, Nonce: s.nonce()})
	if err != nil {
		return nil, transient("failed to encode quote", err)
	}
	quote.Token = base64.URLEncoding.EncodeToString(payload)
	quote.ExpiresAt = s.clock.Now().Add(s.ttl)

	if err := s.redis.Set(ctx, quoteKey(quote.Token), payload, s.ttl).Err(); err != nil {
		return nil, transient("failed to store quote", err)
	}

	qr, err := qrcode.New(quote.Token, qrcode.Medium)
	if err != nil {
		return nil, transient("failed to render quote", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return nil, transient("failed to render quote", err)
	}
	quote.QRImage = base64.StdEncoding.EncodeToString(buf.Bytes())

	log.Printf("[LEDGER] Dues quote of %s issued for account %s", quote.Total.StringFixed(2), account.ID)
	return quote, nil
}

// Redeem consumes a confirmation token and returns the total it confirms.
// Tokens are single use and bound to the account they were issued for.
func (s *DuesQuoteService) Redeem(ctx context.Context, accountID, token string) (decimal.Decimal, error) {
	if s.redis == nil {
		return decimal.Zero, Invalid("dues quotes are unavailable; confirm the amount instead")
	}
	key := quoteKey(token)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return decimal.Zero, Invalid("invalid or expired dues quote")
	}
	if err != nil {
		return decimal.Zero, transient("failed to read quote", err)
	}

	var payload quotePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return decimal.Zero, Invalid("invalid or expired dues quote")
	}
	if payload.AccountID != accountID {
		return decimal.Zero, ErrUnauthorized
	}

	s.redis.Del(ctx, key)
	return payload.Total, nil
}

// ClearWithQuote redeems token and clears the dues it confirms
func (s *DuesQuoteService) ClearWithQuote(ctx context.Context, accountID, token, method string) (*ClearDuesResult, error) {
	confirmed, err := s.Redeem(ctx, accountID, token)
	if err != nil {
		return nil, err
	}
	return s.ledger.ClearDues(ctx, accountID, confirmed, method, token)
}

func generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
