package services

import (
	"context"
	"errors"
	"log"

	"github.com/roomrent/backend/internal/models"
)

// Decision is the outcome of an access check
type Decision int

const (
	Admitted Decision = iota
	Unauthenticated
	RoleMismatch
	Deactivated
)

func (d Decision) String() string {
	switch d {
	case Admitted:
		return "admitted"
	case Unauthenticated:
		return "unauthenticated"
	case RoleMismatch:
		return "role_mismatch"
	case Deactivated:
		return "deactivated"
	}
	return "unknown"
}

// DuesPath is where deactivated accounts are sent to settle their dues
const DuesPath = "/api/v1/ledger/dues"

// StandingEvaluator re-evaluates and returns an account's standing
type StandingEvaluator interface {
	EvaluateStanding(ctx context.Context, accountID string) (*models.Account, error)
}

// AccessGate decides whether a session may reach protected functionality
type AccessGate struct {
	ledger StandingEvaluator
}

func NewAccessGate(ledger StandingEvaluator) *AccessGate {
	return &AccessGate{ledger: ledger}
}

// CanAccess re-evaluates the session account's standing and admits it
// when it is active and holds one of allowed (any role if none given).
// Owners are always admitted.
func (g *AccessGate) CanAccess(ctx context.Context, session *models.Session, allowed ...models.Role) (Decision, *models.Account, error) {
	if !session.Authenticated() {
		return Unauthenticated, nil, nil
	}

	account, err := g.ledger.EvaluateStanding(ctx, session.AccountID)
	if errors.Is(err, ErrNotFound) {
		return Unauthenticated, nil, nil
	}
	if err != nil {
		return Unauthenticated, nil, err
	}

	decision := Decide(account, allowed...)
	if decision != Admitted {
		log.Printf("[GATE] Account %s (%s) refused: %s", account.ID, account.Role, decision)
	}
	return decision, account, nil
}

// Decide applies the admission rules to an already evaluated account
func Decide(account *models.Account, allowed ...models.Role) Decision {
	switch account.Role {
	case models.RoleOwner:
		return Admitted
	case models.RoleSeeker, models.RoleProvider:
		if !account.IsAccountActive {
			return Deactivated
		}
		if len(allowed) == 0 {
			return Admitted
		}
		for _, role := range allowed {
			if role == account.Role {
				return Admitted
			}
		}
		return RoleMismatch
	}
	return RoleMismatch
}
