package handler

import (
	"net/http"

	"github.com/aeronite/auth-api/internal/application/auth"
	"github.com/aeronite/auth-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// VerifyHandler handles the email-ownership verification endpoints.
type VerifyHandler struct {
	svc auth.Service
}

func NewVerifyHandler(svc auth.Service) *VerifyHandler {
	return &VerifyHandler{svc: svc}
}

func (h *VerifyHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.RequestEmailVerification(r.Context(), claims.UserID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageEnvelope{
		Message: "OTP code has been successfully sent to your email address",
	})
}

func (h *VerifyHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.ConfirmEmailVerification(r.Context(), claims.UserID, chi.URLParam(r, "otp")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageEnvelope{Message: "email successfully verified"})
}
