package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/roomrent/backend/internal/models"
	"github.com/roomrent/backend/internal/services"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// requireSession writes a 401 and returns nil when the request carries no session
func requireSession(w http.ResponseWriter, r *http.Request) *models.Session {
	session := models.SessionFrom(r.Context())
	if !session.Authenticated() {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return nil
	}
	return session
}

// decodeAndValidate reads the body into req and runs its validate tags
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *services.ValidationHelper, req any) bool {
	if err := services.DecodeJSONBody(w, r, req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := v.ValidateStruct(req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
