package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aeronite/auth-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuthEnvelope wraps login/refresh responses. Token values mirror the
// access_token / refresh_token cookies for clients that prefer headers.
type AuthEnvelope struct {
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	User         *SafeUser `json:"user,omitempty"`
}

// SafeUser is the public projection of a user: everything except the
// password hash ever leaves through this shape.
type SafeUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	IsVerified bool   `json:"is_verified"`
}

func toSafeUser(u *domain.User) *SafeUser {
	if u == nil {
		return nil
	}
	return &SafeUser{
		ID:         u.UserID,
		Username:   u.Username,
		Name:       u.Name,
		Email:      u.Email,
		IsVerified: u.IsVerified,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// writeDomainError maps a service error onto a status code via its sentinel.
// Unrecognized errors become an opaque 500 so infrastructure details never leak.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrUnprocessable):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
