package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus is a step in the booking lifecycle
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingAccepted  BookingStatus = "accepted"
	BookingDeclined  BookingStatus = "declined"
	BookingCancelled BookingStatus = "cancelled"
)

// ActiveBookingStatuses may exist at most once per (room, seeker)
var ActiveBookingStatuses = []BookingStatus{BookingPending, BookingAccepted}

// ParseBookingStatus validates a client supplied status
func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingPending, BookingAccepted, BookingDeclined, BookingCancelled:
		return BookingStatus(s), true
	}
	return "", false
}

// IsActive reports whether the status counts against the one-active-booking rule
func (s BookingStatus) IsActive() bool {
	return s == BookingPending || s == BookingAccepted
}

// IsTerminal reports whether no further transition is allowed
func (s BookingStatus) IsTerminal() bool {
	return s == BookingAccepted || s == BookingDeclined || s == BookingCancelled
}

type Booking struct {
	ID           string          `json:"id" db:"id"`
	RoomID       string          `json:"roomId" db:"room_id"`
	SeekerID     string          `json:"seekerId" db:"seeker_id"`
	ProviderID   string          `json:"providerId" db:"provider_id"`
	Status       BookingStatus   `json:"status" db:"status"`
	StayDuration int             `json:"stayDuration" db:"stay_duration"`
	UnitPrice    decimal.Decimal `json:"unitPrice" db:"unit_price"`
	TotalPrice   decimal.Decimal `json:"totalPrice" db:"total_price"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}

// Thread returns the booking-scoped thread of this booking
func (b *Booking) Thread() ThreadRef {
	return BookingThread(b.ID)
}

// HasParticipant reports whether accountID is the seeker or provider
func (b *Booking) HasParticipant(accountID string) bool {
	return accountID == b.SeekerID || accountID == b.ProviderID
}

// Column exposes the columns realtime subscribers may filter bookings on
func (b *Booking) Column(name string) (string, bool) {
	switch name {
	case "id":
		return b.ID, true
	case "room_id":
		return b.RoomID, true
	case "seeker_id":
		return b.SeekerID, true
	case "provider_id":
		return b.ProviderID, true
	case "status":
		return string(b.Status), true
	}
	return "", false
}
