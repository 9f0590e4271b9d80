package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	authdomain "catalog/backend/internal/domain/auth"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authdomain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, authdomain.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
	default:
		writeError(w, http.StatusInternalServerError, "authentication failed")
	}
}
