package services

import (
	"context"
	"errors"
	"testing"

	"github.com/roomrent/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStandingEvaluator struct {
	mock.Mock
}

func (m *MockStandingEvaluator) EvaluateStanding(ctx context.Context, accountID string) (*models.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name    string
		account models.Account
		allowed []models.Role
		want    Decision
	}{
		{"active seeker any role", models.Account{Role: models.RoleSeeker, IsAccountActive: true}, nil, Admitted},
		{"active seeker allowed", models.Account{Role: models.RoleSeeker, IsAccountActive: true}, []models.Role{models.RoleSeeker}, Admitted},
		{"provider on seeker route", models.Account{Role: models.RoleProvider, IsAccountActive: true}, []models.Role{models.RoleSeeker}, RoleMismatch},
		{"deactivated wins over role mismatch", models.Account{Role: models.RoleProvider}, []models.Role{models.RoleSeeker}, Deactivated},
		{"deactivated seeker", models.Account{Role: models.RoleSeeker}, nil, Deactivated},
		{"owner always admitted", models.Account{Role: models.RoleOwner}, []models.Role{models.RoleSeeker}, Admitted},
		{"unknown role", models.Account{Role: models.Role("guest"), IsAccountActive: true}, nil, RoleMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(&tt.account, tt.allowed...))
		})
	}
}

func TestAccessGate_CanAccess(t *testing.T) {
	ctx := context.Background()

	t.Run("no session", func(t *testing.T) {
		gate := NewAccessGate(&MockStandingEvaluator{})
		decision, account, err := gate.CanAccess(ctx, nil)
		assert.NoError(t, err)
		assert.Nil(t, account)
		assert.Equal(t, Unauthenticated, decision)
	})

	t.Run("standing is re-evaluated", func(t *testing.T) {
		ledger := &MockStandingEvaluator{}
		ledger.On("EvaluateStanding", ctx, "seeker-1").
			Return(&models.Account{ID: "seeker-1", Role: models.RoleSeeker, IsAccountActive: false}, nil).Once()

		decision, account, err := NewAccessGate(ledger).CanAccess(ctx, seekerSession, models.RoleSeeker)
		require.NoError(t, err)
		assert.Equal(t, Deactivated, decision)
		assert.Equal(t, "seeker-1", account.ID)
		ledger.AssertExpectations(t)
	})

	t.Run("vanished account", func(t *testing.T) {
		ledger := &MockStandingEvaluator{}
		ledger.On("EvaluateStanding", ctx, "seeker-1").Return(nil, ErrNotFound)

		decision, _, err := NewAccessGate(ledger).CanAccess(ctx, seekerSession)
		assert.NoError(t, err)
		assert.Equal(t, Unauthenticated, decision)
	})

	t.Run("store failure is surfaced", func(t *testing.T) {
		ledger := &MockStandingEvaluator{}
		ledger.On("EvaluateStanding", ctx, "seeker-1").Return(nil, transient("failed to load account", errors.New("timeout")))

		_, _, err := NewAccessGate(ledger).CanAccess(ctx, seekerSession)
		assert.Equal(t, KindTransient, KindOf(err))
	})
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "admitted", Admitted.String())
	assert.Equal(t, "deactivated", Deactivated.String())
	assert.Equal(t, "unknown", Decision(42).String())
}
