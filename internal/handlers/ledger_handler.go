package handlers

import (
	"net/http"

	"github.com/roomrent/backend/internal/services"
	"github.com/shopspring/decimal"
)

type LedgerHandler struct {
	ledger    *services.LedgerService
	quotes    *services.DuesQuoteService
	validator *services.ValidationHelper
}

func NewLedgerHandler(ledger *services.LedgerService, quotes *services.DuesQuoteService) *LedgerHandler {
	return &LedgerHandler{
		ledger:    ledger,
		quotes:    quotes,
		validator: services.NewValidationHelper(),
	}
}

// ClearDuesRequest confirms a dues payment either with a quote token or
// with the exact amount owed
// @Description Dues clearing request structure
type ClearDuesRequest struct {
	Token     string           `json:"token,omitempty" validate:"required_without=Amount"`                // Quote token from GET /ledger/dues
	Amount    *decimal.Decimal `json:"amount,omitempty" swaggertype:"string" example:"550.00"`            // Exact dues total when no token is given
	Method    string           `json:"method" validate:"required,oneof=wallet card bank_transfer qr"`     // How the funds cleared
	Reference string           `json:"reference,omitempty" validate:"max=128" example:"PSK-20250301-001"` // Processor reference
}

// DuesResponse is the dues page payload
// @Description Dues summary structure
type DuesResponse struct {
	IsAccountActive bool                `json:"isAccountActive"`
	Quote           *services.DuesQuote `json:"quote"`
}

// GetDues reports what the caller owes and issues a confirmation quote
// @Summary Get dues
// @Description Re-evaluate the caller's standing and return the outstanding commission and penalty with a single use QR quote
// @Tags Ledger
// @Produce json
// @Security BearerAuth
// @Success 200 {object} DuesResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /ledger/dues [get]
func (h *LedgerHandler) GetDues(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	account, err := h.ledger.EvaluateStanding(r.Context(), session.AccountID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	quote, err := h.quotes.Quote(r.Context(), session.AccountID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, DuesResponse{IsAccountActive: account.IsAccountActive, Quote: quote})
}

// ClearDues records that the caller's dues were paid and reactivates the account
// @Summary Clear dues
// @Description Zero the wallet balance and penalty in one step. The confirmed total must equal the current dues.
// @Tags Ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ClearDuesRequest true "Dues confirmation"
// @Success 200 {object} services.ClearDuesResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse "Confirmed total does not match dues"
// @Router /ledger/dues/clear [post]
func (h *LedgerHandler) ClearDues(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	var req ClearDuesRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	var (
		result *services.ClearDuesResult
		err    error
	)
	if req.Token != "" {
		result, err = h.quotes.ClearWithQuote(r.Context(), session.AccountID, req.Token, req.Method)
	} else {
		result, err = h.ledger.ClearDues(r.Context(), session.AccountID, *req.Amount, req.Method, req.Reference)
	}
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// AdminHandler exposes the owner's ledger controls
type AdminHandler struct {
	ledger    *services.LedgerService
	validator *services.ValidationHelper
}

func NewAdminHandler(ledger *services.LedgerService) *AdminHandler {
	return &AdminHandler{
		ledger:    ledger,
		validator: services.NewValidationHelper(),
	}
}

// SetActiveRequest overrides an account's standing
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// AssessPenalty charges the late penalty on an account
// @Summary Assess penalty
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Success 200 {object} models.Account
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/accounts/{accountId}/penalty [post]
func (h *AdminHandler) AssessPenalty(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	account, err := h.ledger.AssessPenalty(r.Context(), session, urlParam(r, "accountId"))
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

// SetActive activates or deactivates an account by hand
// @Summary Override account standing
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Param request body SetActiveRequest true "Standing override"
// @Success 200 {object} models.Account
// @Failure 403 {object} services.ErrorResponse
// @Router /admin/accounts/{accountId}/active [put]
func (h *AdminHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	var req SetActiveRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	account, err := h.ledger.SetAccountActive(r.Context(), session, urlParam(r, "accountId"), *req.Active)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}
