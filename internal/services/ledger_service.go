package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/roomrent/backend/internal/audit"
	"github.com/roomrent/backend/internal/config"
	"github.com/roomrent/backend/internal/models"
	"github.com/roomrent/backend/internal/realtime"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, email, full_name, role, wallet_balance, penalty_amount, last_payment_date,
	is_account_active, total_paid_amount, version, created_at, updated_at`

// LedgerService tracks what each account owes the platform and runs the
// deactivation automaton. Every multi-field change happens inside one
// transaction on a locked row.
type LedgerService struct {
	db          *sql.DB
	clock       clockwork.Clock
	audit       audit.Logger
	publisher   realtime.Publisher
	window      time.Duration
	penaltyRate decimal.Decimal
}

// ClearDuesResult reports the outcome of a dues clearing attempt.
// Payment is nil when there was nothing to clear.
type ClearDuesResult struct {
	Account *models.Account `json:"account"`
	Payment *models.Payment `json:"payment,omitempty"`
}

func NewLedgerService(db *sql.DB, cfg *config.EngineConfig, clk clockwork.Clock, publisher realtime.Publisher) *LedgerService {
	return &LedgerService{
		db:          db,
		clock:       clk,
		audit:       audit.NewAuditLogger(),
		publisher:   publisher,
		window:      cfg.OverdueWindow,
		penaltyRate: cfg.PenaltyRate,
	}
}

// ShouldDeactivate reports whether an account's standing evaluation
// must switch it off: a non-owner, currently active account that has
// carried a positive balance for longer than window since its last
// payment (or since signup if it never paid).
func ShouldDeactivate(account *models.Account, now time.Time, window time.Duration) bool {
	switch account.Role {
	case models.RoleOwner:
		return false
	case models.RoleSeeker, models.RoleProvider:
	default:
		return false
	}

	if !account.IsAccountActive || !account.WalletBalance.IsPositive() {
		return false
	}

	since := account.CreatedAt
	if account.LastPaymentDate != nil {
		since = *account.LastPaymentDate
	}
	return now.Sub(since) > window
}

// GetAccount loads an account without locking it
func (s *LedgerService) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, transient("failed to load account", err)
	}
	return account, nil
}

// EvaluateStanding applies the deactivation rule and returns the
// account as it stands afterwards
func (s *LedgerService) EvaluateStanding(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !ShouldDeactivate(account, s.clock.Now(), s.window) {
		return account, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, transient("failed to begin transaction", err)
	}
	defer tx.Rollback()

	// re-check under the row lock; a payment may have landed in between
	account, err = s.lockAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if !ShouldDeactivate(account, now, s.window) {
		return account, nil
	}

	if err := s.updateAccount(ctx, tx, account, `is_account_active = false`); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, transient("failed to commit deactivation", err)
	}

	account.IsAccountActive = false
	account.Version++
	account.UpdatedAt = now
	log.Printf("[LEDGER] Account %s deactivated: balance %s overdue", account.ID, account.WalletBalance)
	s.audit.LogLedger("DEACTIVATE", "", account.ID, account.WalletBalance.StringFixed(2), nil)
	s.publishAccount(ctx, account)
	return account, nil
}

// AccrueCommission adds amount to the payer's wallet balance in its own transaction
func (s *LedgerService) AccrueCommission(ctx context.Context, payerID string, amount decimal.Decimal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return transient("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := s.AccrueCommissionTx(ctx, tx, payerID, amount, ""); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return transient("failed to commit accrual", err)
	}
	return nil
}

// AccrueCommissionTx adds amount to the payer's wallet balance inside
// the caller's transaction. The increment is a single statement so
// concurrent accruals never lose updates. last_payment_date is left alone.
func (s *LedgerService) AccrueCommissionTx(ctx context.Context, tx *sql.Tx, payerID string, amount decimal.Decimal, reference string) error {
	if !amount.IsPositive() {
		return nil
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET wallet_balance = wallet_balance + $1, version = version + 1, updated_at = $2
		WHERE id = $3`,
		amount, s.clock.Now(), payerID)
	if err != nil {
		return transient("failed to accrue commission", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return transient("failed to accrue commission", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("accrue commission for %s: %w", payerID, ErrNotFound)
	}

	s.audit.LogLedger("ACCRUE_COMMISSION", reference, payerID, amount.StringFixed(2), nil)
	return nil
}

// ClearDues settles balance and penalty together once the payer has
// confirmed the exact total. Nothing owed is a successful no-op.
func (s *LedgerService) ClearDues(ctx context.Context, accountID string, confirmed decimal.Decimal, method, reference string) (*ClearDuesResult, error) {
	if method == "" {
		return nil, Invalid("payment method is required")
	}
	if confirmed.IsNegative() {
		return nil, Invalid("confirmed amount cannot be negative")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, transient("failed to begin transaction", err)
	}
	defer tx.Rollback()

	account, err := s.lockAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	dues := account.Dues()
	if dues.IsZero() {
		return &ClearDuesResult{Account: account}, nil
	}
	if !confirmed.Equal(dues) {
		log.Printf("[LEDGER] Dues mismatch for %s: confirmed %s, owed %s", accountID, confirmed, dues)
		return nil, ErrDuesMismatch
	}

	now := s.clock.Now()
	result, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET wallet_balance = 0, penalty_amount = 0, last_payment_date = $1, is_account_active = true,
			total_paid_amount = total_paid_amount + $2, version = version + 1, updated_at = $1
		WHERE id = $3 AND version = $4`,
		now, dues, account.ID, account.Version)
	if err != nil {
		return nil, transient("failed to clear dues", err)
	}
	if err := expectOneRow(result, account.ID); err != nil {
		return nil, err
	}

	if reference == "" {
		reference = "DUES-" + uuid.NewString()
	}
	payment := &models.Payment{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		Amount:    dues,
		Method:    method,
		Reference: reference,
		Metadata: models.Metadata{
			"wallet_balance": account.WalletBalance.StringFixed(2),
			"penalty_amount": account.PenaltyAmount.StringFixed(2),
		},
		CreatedAt: now,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO payments (id, account_id, amount, method, reference, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		payment.ID, payment.AccountID, payment.Amount, payment.Method, payment.Reference, payment.Metadata, payment.CreatedAt); err != nil {
		return nil, transient("failed to record payment", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, transient("failed to commit dues clearing", err)
	}

	account.WalletBalance = decimal.Zero
	account.PenaltyAmount = decimal.Zero
	account.LastPaymentDate = &now
	account.IsAccountActive = true
	account.TotalPaidAmount = account.TotalPaidAmount.Add(dues)
	account.Version++
	account.UpdatedAt = now

	log.Printf("[LEDGER] Dues of %s cleared for account %s via %s", dues.StringFixed(2), account.ID, method)
	s.audit.LogLedger("CLEAR_DUES", reference, account.ID, dues.StringFixed(2), map[string]string{"method": method})
	s.publishAccount(ctx, account)

	return &ClearDuesResult{Account: account, Payment: payment}, nil
}

// AssessPenalty lets the owner charge the late penalty on an account's
// current balance. An account already carrying a penalty is left as is.
func (s *LedgerService) AssessPenalty(ctx context.Context, session *models.Session, accountID string) (*models.Account, error) {
	if err := requireOwner(session); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, transient("failed to begin transaction", err)
	}
	defer tx.Rollback()

	account, err := s.lockAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Role == models.RoleOwner {
		return nil, Invalid("owner accounts carry no dues")
	}
	if account.PenaltyAmount.IsPositive() || !account.WalletBalance.IsPositive() {
		return account, nil
	}

	penalty := account.WalletBalance.Mul(s.penaltyRate).Round(2)
	if err := s.updateAccount(ctx, tx, account, `penalty_amount = $4`, penalty); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, transient("failed to commit penalty", err)
	}

	account.PenaltyAmount = penalty
	account.Version++
	log.Printf("[LEDGER] Penalty %s assessed on account %s by %s", penalty.StringFixed(2), account.ID, session.AccountID)
	s.audit.LogLedger("ASSESS_PENALTY", "", account.ID, penalty.StringFixed(2), map[string]string{"assessed_by": session.AccountID})
	s.publishAccount(ctx, account)
	return account, nil
}

// SetAccountActive is the owner's manual override of an account's standing
func (s *LedgerService) SetAccountActive(ctx context.Context, session *models.Session, accountID string, active bool) (*models.Account, error) {
	if err := requireOwner(session); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, transient("failed to begin transaction", err)
	}
	defer tx.Rollback()

	account, err := s.lockAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if account.IsAccountActive == active {
		return account, nil
	}

	if err := s.updateAccount(ctx, tx, account, `is_account_active = $4`, active); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, transient("failed to commit standing override", err)
	}

	account.IsAccountActive = active
	account.Version++
	log.Printf("[LEDGER] Account %s set active=%v by owner %s", account.ID, active, session.AccountID)
	s.audit.LogLedger("OVERRIDE_STANDING", "", account.ID, "", map[string]string{
		"active":     fmt.Sprintf("%v", active),
		"changed_by": session.AccountID,
	})
	s.publishAccount(ctx, account)
	return account, nil
}

func (s *LedgerService) lockAccount(ctx context.Context, tx *sql.Tx, accountID string) (*models.Account, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, accountID)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, transient("failed to lock account", err)
	}
	return account, nil
}

// updateAccount applies set to a locked account guarded by its version.
// Placeholders $1..$3 are taken; extra arguments start at $4.
func (s *LedgerService) updateAccount(ctx context.Context, tx *sql.Tx, account *models.Account, set string, args ...any) error {
	now := s.clock.Now()
	result, err := tx.ExecContext(ctx,
		`UPDATE accounts SET `+set+`, version = version + 1, updated_at = $1 WHERE id = $2 AND version = $3`,
		append([]any{now, account.ID, account.Version}, args...)...)
	if err != nil {
		return transient("failed to update account", err)
	}
	if err := expectOneRow(result, account.ID); err != nil {
		return err
	}
	account.UpdatedAt = now
	return nil
}

func (s *LedgerService) publishAccount(ctx context.Context, account *models.Account) {
	publish(ctx, s.publisher, realtime.Event{Table: realtime.TableAccounts, Operation: realtime.OpUpdate, Row: account})
}

func expectOneRow(result sql.Result, accountID string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return transient("failed to read update result", err)
	}
	if rowsAffected == 0 {
		return transient("optimistic lock failed", fmt.Errorf("account %s changed concurrently", accountID))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Email, &a.FullName, &a.Role, &a.WalletBalance, &a.PenaltyAmount, &a.LastPaymentDate,
		&a.IsAccountActive, &a.TotalPaidAmount, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func requireOwner(session *models.Session) error {
	if !session.Authenticated() {
		return ErrUnauthorized
	}
	switch session.Role {
	case models.RoleOwner:
		return nil
	case models.RoleSeeker, models.RoleProvider:
		return ErrUnauthorized
	}
	return ErrUnauthorized
}

// publish hands an event to the realtime channel. Delivery problems are
// logged and never fail the operation that already committed.
func publish(ctx context.Context, publisher realtime.Publisher, event realtime.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		log.Printf("[REALTIME] Failed to publish %s %s: %v", event.Table, event.Operation, err)
	}
}
