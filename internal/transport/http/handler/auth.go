package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aeronite/auth-api/internal/application/auth"
	"github.com/aeronite/auth-api/internal/domain"
	"github.com/aeronite/auth-api/internal/pkg/validate"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// AuthHandler handles registration and the session-token endpoints.
// Sessions are stateless: logout only instructs the client to drop cookies,
// and a token stays verifiable until it expires.
type AuthHandler struct {
	svc        auth.Service
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthHandler(svc auth.Service, accessTTL, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{svc: svc, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	u, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSafeUser(u))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	result, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	setCookie(w, accessTokenCookie, result.AccessToken, h.accessTTL)
	setCookie(w, refreshTokenCookie, result.RefreshToken, h.refreshTTL)
	writeJSON(w, http.StatusOK, AuthEnvelope{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		User:         toSafeUser(result.User),
	})
}

// Logout clears both session cookies. There is no server-side session state
// to invalidate.
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	clearCookie(w, accessTokenCookie)
	clearCookie(w, refreshTokenCookie)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logout successful"})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := refreshTokenFromRequest(r)
	if refreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token required")
		return
	}
	accessToken, err := h.svc.Refresh(r.Context(), refreshToken)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	setCookie(w, accessTokenCookie, accessToken, h.accessTTL)
	writeJSON(w, http.StatusOK, AuthEnvelope{AccessToken: accessToken})
}

// refreshTokenFromRequest reads the refresh token from the JSON body, falling
// back to the refresh_token cookie set at login.
func refreshTokenFromRequest(r *http.Request) string {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.RefreshToken != "" {
		return body.RefreshToken
	}
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:   name,
		Value:  value,
		Path:   "/",
		MaxAge: int(ttl.Seconds()),
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:   name,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}
