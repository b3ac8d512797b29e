package handlers

import (
	"net/http"

	"github.com/roomrent/backend/internal/models"
	"github.com/roomrent/backend/internal/realtime"
	"github.com/roomrent/backend/internal/services"
)

type BookingHandler struct {
	service   *services.BookingService
	hub       *realtime.Hub
	validator *services.ValidationHelper
}

func NewBookingHandler(service *services.BookingService, hub *realtime.Hub) *BookingHandler {
	return &BookingHandler{
		service:   service,
		hub:       hub,
		validator: services.NewValidationHelper(),
	}
}

// CreateBooking places a pending booking on a room
// @Summary Book a room
// @Description Place a pending booking for the authenticated seeker. Fails with 409 while another pending or accepted booking exists for the same room.
// @Tags Bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateBookingRequest true "Booking request"
// @Success 201 {object} models.Booking
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 402 {object} middleware.DeactivatedResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /bookings [post]
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	var req services.CreateBookingRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), session, req.RoomID, req.StayDuration)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, booking)
}

// ListBookings lists the caller's bookings
// @Summary List bookings
// @Description List bookings where the caller is the seeker or the provider, newest first
// @Tags Bookings
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Booking
// @Failure 401 {object} services.ErrorResponse
// @Router /bookings [get]
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	bookings, err := h.service.ListBookingsFor(r.Context(), session)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	respondJSON(w, http.StatusOK, bookings)
}

// GetBooking returns one booking
// @Summary Get booking
// @Tags Bookings
// @Produce json
// @Security BearerAuth
// @Param bookingId path string true "Booking ID"
// @Success 200 {object} models.Booking
// @Failure 404 {object} services.ErrorResponse
// @Router /bookings/{bookingId} [get]
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	booking, err := h.service.GetBooking(r.Context(), session, urlParam(r, "bookingId"))
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

// UpdateStatus accepts, declines or cancels a pending booking
// @Summary Change booking status
// @Description Providers accept or decline, seekers cancel. Only pending bookings can change.
// @Tags Bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param bookingId path string true "Booking ID"
// @Param request body services.TransitionRequest true "Target status"
// @Success 200 {object} models.Booking
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /bookings/{bookingId}/status [put]
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	var req services.TransitionRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	booking, err := h.service.TransitionBooking(r.Context(), session, urlParam(r, "bookingId"), models.BookingStatus(req.Status))
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

// bookingFeedFilter picks the bookings a role follows. Owners see all of them.
func bookingFeedFilter(session *models.Session) realtime.Filter {
	switch session.Role {
	case models.RoleSeeker:
		return realtime.Eq("seeker_id", session.AccountID)
	case models.RoleProvider:
		return realtime.Eq("provider_id", session.AccountID)
	case models.RoleOwner:
		return realtime.Filter{}
	}
	return realtime.Eq("id", "")
}

// BookingEvents streams inserts and status changes of the caller's bookings
// @Summary Booking event stream
// @Description Providers receive new requests on their rooms, seekers receive decisions on their bookings
// @Tags Bookings
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 {object} models.Booking "insert and update events"
// @Router /bookings/events [get]
func (h *BookingHandler) BookingEvents(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	sub, err := h.hub.Subscribe(r.Context(), realtime.TableBookings, bookingFeedFilter(session))
	if err != nil {
		services.SendErrorResponse(w, "Realtime feed unavailable", http.StatusServiceUnavailable, nil)
		return
	}
	defer sub.Close()

	followSubscription(w, r, sub)
}
