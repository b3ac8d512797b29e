package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Payment is an append-only record of a ledger-clearing event
type Payment struct {
	ID        string          `json:"id" db:"id"`
	AccountID string          `json:"accountId" db:"account_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Method    string          `json:"method" db:"method"`
	Reference string          `json:"reference" db:"reference"`
	Metadata  Metadata        `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

// Payment methods accepted as a funds-cleared signal
const (
	PaymentMethodWallet   = "wallet"
	PaymentMethodCard     = "card"
	PaymentMethodTransfer = "bank_transfer"
	PaymentMethodQR       = "qr"
)

// Metadata type for JSONB fields
type Metadata map[string]any

// Value implements driver.Valuer for Metadata
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for Metadata
func (m *Metadata) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(b, m)
}
