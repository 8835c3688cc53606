package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aeronite/auth-api/internal/domain"
	jwtinfra "github.com/aeronite/auth-api/internal/infrastructure/jwt"
	"github.com/aeronite/auth-api/internal/pkg/hash"
	"github.com/aeronite/auth-api/internal/pkg/id"
)

const loginFailedMsg = "login failed, either username or password is incorrect"

// LoginResult carries both session tokens plus the authenticated user.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *domain.User
}

type Service interface {
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (accessToken string, err error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	RequestEmailVerification(ctx context.Context, userID string) error
	ConfirmEmailVerification(ctx context.Context, userID, code string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	MarkVerified(ctx context.Context, userID string) error
}

type otpManager interface {
	Issue(ctx context.Context, userID string) (string, error)
	Validate(ctx context.Context, userID, candidate string) (bool, error)
}

type tokenIssuer interface {
	IssueAccessToken(userID, name, email string) (string, error)
	IssueRefreshToken(userID, name, email string) (string, error)
	Verify(token string) (*jwtinfra.Claims, error)
}

type mailer interface {
	SendEmail(toName, toAddr, subject, htmlBody string) error
}

type service struct {
	repo   userStore
	otp    otpManager
	tokens tokenIssuer
	mailer mailer
}

type ServiceDeps struct {
	UserRepo    userStore
	OTPManager  otpManager
	TokenIssuer tokenIssuer
	Mailer      mailer
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:   deps.UserRepo,
		otp:    deps.OTPManager,
		tokens: deps.TokenIssuer,
		mailer: deps.Mailer,
	}
}

func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("username already taken: %w", domain.ErrConflict)
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	digest, err := hash.Generate(req.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Username:     req.Username,
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: digest,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error) {
	// The failure message is identical whether the username is unknown or the
	// password is wrong.
	u, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", loginFailedMsg, domain.ErrUnauthorized)
	}
	if !hash.Verify(req.Password, u.PasswordHash) {
		return nil, fmt.Errorf("%s: %w", loginFailedMsg, domain.ErrUnauthorized)
	}
	accessToken, err := s.tokens.IssueAccessToken(u.UserID, u.Name, u.Email)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.tokens.IssueRefreshToken(u.UserID, u.Name, u.Email)
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: accessToken, RefreshToken: refreshToken, User: u}, nil
}

// Refresh verifies the refresh token and re-issues only a new access token
// carrying the same claims snapshot. Tokens are stateless — no store lookup.
func (s *service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		return "", fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}
	return s.tokens.IssueAccessToken(claims.UserID, claims.Name, claims.Email)
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) RequestEmailVerification(ctx context.Context, userID string) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if u.IsVerified {
		return fmt.Errorf("email already verified: %w", domain.ErrUnprocessable)
	}
	code, err := s.otp.Issue(ctx, u.UserID)
	if err != nil {
		return err
	}
	// Delivery is fire-and-forget: a mail failure neither fails the request
	// nor rolls back the issued challenge.
	if err := s.mailer.SendEmail(u.Name, u.Email, "Email Verification",
		verificationBody(u.Name, code)); err != nil {
		slog.Warn("failed to send verification email", "user_id", u.UserID, "err", err)
	}
	return nil
}

func (s *service) ConfirmEmailVerification(ctx context.Context, userID, code string) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if u.IsVerified {
		return fmt.Errorf("email already verified: %w", domain.ErrUnprocessable)
	}
	ok, err := s.otp.Validate(ctx, u.UserID, code)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("OTP code is invalid: %w", domain.ErrUnprocessable)
	}
	return s.repo.MarkVerified(ctx, u.UserID)
}

func verificationBody(name, code string) string {
	return fmt.Sprintf(`<p>Hello %s!</p><p>Verify your account with the following OTP code:
<br/><span style="font-size: 24px; font-weight: 700">%s</span></p><p>The OTP code is only valid for 5 minutes after it's sent.</p>`, name, code)
}
