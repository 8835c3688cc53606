package http

import (
	"net/http"

	"github.com/aeronite/auth-api/internal/application/auth"
	"github.com/aeronite/auth-api/internal/application/otp"
	"github.com/aeronite/auth-api/internal/config"
	"github.com/aeronite/auth-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/aeronite/auth-api/internal/infrastructure/jwt"
	"github.com/aeronite/auth-api/internal/infrastructure/smtp"
	"github.com/aeronite/auth-api/internal/transport/http/handler"
	appmiddleware "github.com/aeronite/auth-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo      *dynamo.UserRepo
	ChallengeRepo *dynamo.ChallengeRepo
	Mailer        smtp.Mailer
	JWTProvider   *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	otpSvc := otp.NewService(deps.ChallengeRepo, cfg.OTPLength, cfg.OTPCooldown, cfg.OTPTTL)
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:    deps.UserRepo,
		OTPManager:  otpSvc,
		TokenIssuer: deps.JWTProvider,
		Mailer:      deps.Mailer,
	})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	verifyH := handler.NewVerifyHandler(authSvc)
	userH := handler.NewUserHandler(authSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/register", authH.Register)
		r.With(sensitiveRL.Limit).Post("/login", authH.Login)
		r.Post("/refresh", authH.Refresh)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/logout", authH.Logout)
			r.With(sensitiveRL.Limit).Post("/send-otp", verifyH.SendOTP)
			r.Post("/verify-email/{otp}", verifyH.VerifyEmail)
			r.Get("/user-detail", userH.Detail)
		})
	})

	return r
}
