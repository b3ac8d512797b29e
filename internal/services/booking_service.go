package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"github.com/roomrent/backend/internal/config"
	"github.com/roomrent/backend/internal/models"
	"github.com/roomrent/backend/internal/realtime"
	"github.com/shopspring/decimal"
)

const bookingColumns = `id, room_id, seeker_id, provider_id, status, stay_duration, unit_price, total_price, created_at, updated_at`

// uniqueViolation is the Postgres SQLSTATE for unique_violation
const uniqueViolation = "23505"

// BookingService owns the booking lifecycle
type BookingService struct {
	db           *sql.DB
	ledger       *LedgerService
	clock        clockwork.Clock
	publisher    realtime.Publisher
	seekerRate   decimal.Decimal
	providerRate decimal.Decimal
}

// CreateBookingRequest represents the booking request payload
// @Description Booking request structure
type CreateBookingRequest struct {
	RoomID       string `json:"roomId" validate:"required" example:"7b0c3f0e-5a7e-4c39-9b8a-0f5d8c3a1e11"` // Listing to book
	StayDuration int    `json:"stayDuration" validate:"required,gte=1" example:"3"`                        // Number of rent units
}

// TransitionRequest represents a booking status change
// @Description Booking status change structure
type TransitionRequest struct {
	Status string `json:"status" validate:"required,oneof=accepted declined cancelled" example:"accepted"` // Target status
}

func NewBookingService(db *sql.DB, ledger *LedgerService, cfg *config.EngineConfig, clk clockwork.Clock, publisher realtime.Publisher) *BookingService {
	return &BookingService{
		db:           db,
		ledger:       ledger,
		clock:        clk,
		publisher:    publisher,
		seekerRate:   cfg.SeekerCommissionRate,
		providerRate: cfg.ProviderCommissionRate,
	}
}

// Commission is the platform's cut of total at rate, rounded to cents
func Commission(total, rate decimal.Decimal) decimal.Decimal {
	return total.Mul(rate).Round(2)
}

// CreateBooking places a pending booking for the session's seeker.
// The one-active-booking rule is enforced by a conditional insert
// against a partial unique index, never by a prior lookup.
func (s *BookingService) CreateBooking(ctx context.Context, session *models.Session, roomID string, stayDuration int) (*models.Booking, error) {
	if stayDuration < 1 {
		return nil, Invalid("stay duration must be at least 1")
	}
	if strings.TrimSpace(roomID) == "" {
		return nil, Invalid("room id is required")
	}
	if !session.Authenticated() {
		return nil, ErrUnauthorized
	}
	switch session.Role {
	case models.RoleSeeker:
	case models.RoleProvider, models.RoleOwner:
		return nil, ErrUnauthorized
	default:
		return nil, ErrUnauthorized
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, transient("failed to begin transaction", err)
	}
	defer tx.Rollback()

	listing, err := s.readListing(ctx, tx, roomID)
	if err != nil {
		return nil, err
	}
	if !listing.IsActive {
		return nil, ErrListingUnavailable
	}
	if listing.OwnerAccountID == session.AccountID {
		return nil, Invalid("cannot book your own listing")
	}

	now := s.clock.Now()
	booking := &models.Booking{
		ID:           uuid.NewString(),
		RoomID:       listing.ID,
		SeekerID:     session.AccountID,
		ProviderID:   listing.OwnerAccountID,
		Status:       models.BookingPending,
		StayDuration: stayDuration,
		UnitPrice:    listing.Price,
		TotalPrice:   listing.Price.Mul(decimal.NewFromInt(int64(stayDuration))),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var insertedID string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (room_id, seeker_id) WHERE status IN ('pending', 'accepted') DO NOTHING
		RETURNING id`,
		booking.ID, booking.RoomID, booking.SeekerID, booking.ProviderID, booking.Status,
		booking.StayDuration, booking.UnitPrice, booking.TotalPrice, now).Scan(&insertedID)
	if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
		log.Printf("[BOOKING] Duplicate active booking: room %s seeker %s", roomID, session.AccountID)
		return nil, ErrDuplicateActiveBooking
	}
	if err != nil {
		return nil, transient("failed to create booking", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateActiveBooking
		}
		return nil, transient("failed to commit booking", err)
	}

	log.Printf("[BOOKING] Booking %s created: room %s, %d x %s = %s, thread %s",
		booking.ID, booking.RoomID, stayDuration, booking.UnitPrice.StringFixed(2), booking.TotalPrice.StringFixed(2), booking.Thread().Key())
	publish(ctx, s.publisher, realtime.Event{Table: realtime.TableBookings, Operation: realtime.OpInsert, Row: booking})
	return booking, nil
}

// TransitionBooking moves a pending booking to a terminal status. Accepting
// accrues both commission shares in the same transaction.
func (s *BookingService) TransitionBooking(ctx context.Context, session *models.Session, bookingID string, to models.BookingStatus) (*models.Booking, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthorized
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, transient("failed to begin transaction", err)
	}
	defer tx.Rollback()

	booking, err := s.lockBooking(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(booking, session.AccountID, to); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	result, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, now, booking.ID, models.BookingPending)
	if err != nil {
		return nil, transient("failed to update booking", err)
	}
	if rows, err := result.RowsAffected(); err != nil {
		return nil, transient("failed to update booking", err)
	} else if rows == 0 {
		return nil, ErrInvalidTransition
	}

	if to == models.BookingAccepted {
		seekerShare := Commission(booking.TotalPrice, s.seekerRate)
		providerShare := Commission(booking.TotalPrice, s.providerRate)
		if err := s.ledger.AccrueCommissionTx(ctx, tx, booking.SeekerID, seekerShare, booking.ID); err != nil {
			return nil, err
		}
		if err := s.ledger.AccrueCommissionTx(ctx, tx, booking.ProviderID, providerShare, booking.ID); err != nil {
			return nil, err
		}
		log.Printf("[BOOKING] Commission accrued for booking %s: seeker %s, provider %s",
			booking.ID, seekerShare.StringFixed(2), providerShare.StringFixed(2))
	}

	if err := tx.Commit(); err != nil {
		return nil, transient("failed to commit transition", err)
	}

	booking.Status = to
	booking.UpdatedAt = now
	log.Printf("[BOOKING] Booking %s moved to %s by %s", booking.ID, to, session.AccountID)
	publish(ctx, s.publisher, realtime.Event{Table: realtime.TableBookings, Operation: realtime.OpUpdate, Row: booking})
	return booking, nil
}

// CheckTransition validates one step of the booking state machine for actorID
func CheckTransition(booking *models.Booking, actorID string, to models.BookingStatus) error {
	if !booking.HasParticipant(actorID) {
		return ErrUnauthorized
	}
	if booking.Status.IsTerminal() {
		return ErrInvalidTransition
	}

	switch to {
	case models.BookingAccepted, models.BookingDeclined:
		if actorID != booking.ProviderID {
			return ErrUnauthorized
		}
	case models.BookingCancelled:
		if actorID != booking.SeekerID {
			return ErrUnauthorized
		}
	default:
		return ErrInvalidTransition
	}
	return nil
}

// GetBooking returns a booking visible to the session: its two
// participants and the platform owner
func (s *BookingService) GetBooking(ctx context.Context, session *models.Session, bookingID string) (*models.Booking, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthorized
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, bookingID)
	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, transient("failed to load booking", err)
	}

	if session.Role != models.RoleOwner && !booking.HasParticipant(session.AccountID) {
		return nil, ErrNotFound
	}
	return booking, nil
}

// ListBookingsFor lists bookings where the session is seeker or provider, newest first
func (s *BookingService) ListBookingsFor(ctx context.Context, session *models.Session) ([]models.Booking, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthorized
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE seeker_id = $1 OR provider_id = $1
		ORDER BY created_at DESC`, session.AccountID)
	if err != nil {
		return nil, transient("failed to list bookings", err)
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, transient("failed to read booking", err)
		}
		bookings = append(bookings, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, transient("failed to list bookings", err)
	}
	return bookings, nil
}

func (s *BookingService) readListing(ctx context.Context, tx *sql.Tx, roomID string) (*models.Listing, error) {
	var listing models.Listing
	err := tx.QueryRowContext(ctx,
		`SELECT id, owner_account_id, price, rent_unit, is_active FROM listings WHERE id = $1 FOR SHARE`,
		roomID).Scan(&listing.ID, &listing.OwnerAccountID, &listing.Price, &listing.RentUnit, &listing.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("listing %s: %w", roomID, ErrNotFound)
	}
	if err != nil {
		return nil, transient("failed to read listing", err)
	}
	return &listing, nil
}

func (s *BookingService) lockBooking(ctx context.Context, tx *sql.Tx, bookingID string) (*models.Booking, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, bookingID)
	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, transient("failed to lock booking", err)
	}
	return booking, nil
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(&b.ID, &b.RoomID, &b.SeekerID, &b.ProviderID, &b.Status, &b.StayDuration,
		&b.UnitPrice, &b.TotalPrice, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
