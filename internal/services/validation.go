package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Code    string            `json:"code,omitempty"`    // Machine readable failure name
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	errorResp := ErrorResponse{Error: message}
	var fieldErrs validator.ValidationErrors
	if errors.As(validationErr, &fieldErrs) {
		errorResp.Details = make(map[string]string)
		for _, err := range fieldErrs {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}
	writeErrorResponse(w, statusCode, errorResp)
}

// SendServiceError maps a core operation failure onto an HTTP response.
// Transient failures are reported generically.
func SendServiceError(w http.ResponseWriter, err error) {
	var se *Error
	if !errors.As(err, &se) {
		se = &Error{Kind: KindTransient, Code: ErrTransient.Code, Err: err}
	}

	status := http.StatusInternalServerError
	message := "An Internal Error Occurred"
	switch se.Kind {
	case KindValidation:
		status, message = http.StatusBadRequest, se.Message
	case KindConflict:
		status, message = http.StatusConflict, se.Message
	case KindAuthorization:
		status, message = http.StatusForbidden, se.Message
	case KindNotFound:
		status, message = http.StatusNotFound, se.Message
	case KindTransient:
		log.Printf("[API] transient failure: %v", err)
	}

	writeErrorResponse(w, status, ErrorResponse{Error: message, Code: se.Code})
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}
