package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Role identifies what an account may do on the marketplace
type Role string

const (
	RoleSeeker   Role = "seeker"
	RoleProvider Role = "provider"
	RoleOwner    Role = "owner"
)

// ParseRole converts a stored or client supplied role into a Role
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSeeker, RoleProvider, RoleOwner:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Account holds an account's standing and the dues it owes the platform
type Account struct {
	ID              string          `json:"id" db:"id"`
	Email           string          `json:"email" db:"email"`
	FullName        string          `json:"fullName" db:"full_name"`
	Role            Role            `json:"role" db:"role"`
	WalletBalance   decimal.Decimal `json:"walletBalance" db:"wallet_balance"`
	PenaltyAmount   decimal.Decimal `json:"penaltyAmount" db:"penalty_amount"`
	LastPaymentDate *time.Time      `json:"lastPaymentDate" db:"last_payment_date"`
	IsAccountActive bool            `json:"isAccountActive" db:"is_account_active"`
	TotalPaidAmount decimal.Decimal `json:"totalPaidAmount" db:"total_paid_amount"`
	Version         int             `json:"-" db:"version"` // for optimistic locking
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// Dues is the total owed: wallet balance plus penalty
func (a *Account) Dues() decimal.Decimal {
	return a.WalletBalance.Add(a.PenaltyAmount)
}

// Column exposes the columns realtime subscribers may filter accounts on
func (a *Account) Column(name string) (string, bool) {
	switch name {
	case "id":
		return a.ID, true
	case "role":
		return string(a.Role), true
	}
	return "", false
}

// Session is the authenticated caller of an operation
type Session struct {
	AccountID string `json:"accountId"`
	Role      Role   `json:"role"`
}

// Authenticated reports whether the session carries an identity
func (s *Session) Authenticated() bool {
	return s != nil && s.AccountID != ""
}
