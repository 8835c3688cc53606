package handler

import (
	"net/http"

	"github.com/aeronite/auth-api/internal/application/auth"
	"github.com/aeronite/auth-api/internal/transport/http/middleware"
)

// UserHandler serves the authenticated user's own detail.
type UserHandler struct {
	svc auth.Service
}

func NewUserHandler(svc auth.Service) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) Detail(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := h.svc.Get(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSafeUser(u))
}
