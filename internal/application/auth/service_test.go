package auth

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/aeronite/auth-api/internal/application/otp"
	"github.com/aeronite/auth-api/internal/domain"
	jwtinfra "github.com/aeronite/auth-api/internal/infrastructure/jwt"
	"github.com/aeronite/auth-api/internal/pkg/hash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) MarkVerified(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockOTPManager struct{ mock.Mock }

func (m *mockOTPManager) Issue(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}
func (m *mockOTPManager) Validate(ctx context.Context, userID, candidate string) (bool, error) {
	args := m.Called(ctx, userID, candidate)
	return args.Bool(0), args.Error(1)
}

type mockTokenIssuer struct{ mock.Mock }

func (m *mockTokenIssuer) IssueAccessToken(userID, name, email string) (string, error) {
	args := m.Called(userID, name, email)
	return args.String(0), args.Error(1)
}
func (m *mockTokenIssuer) IssueRefreshToken(userID, name, email string) (string, error) {
	args := m.Called(userID, name, email)
	return args.String(0), args.Error(1)
}
func (m *mockTokenIssuer) Verify(token string) (*jwtinfra.Claims, error) {
	args := m.Called(token)
	if c, _ := args.Get(0).(*jwtinfra.Claims); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(toName, toAddr, subject, htmlBody string) error {
	return m.Called(toName, toAddr, subject, htmlBody).Error(0)
}

// --- builder ---

func newService(us *mockUserStore, om *mockOTPManager, ti *mockTokenIssuer, ml *mockMailer) Service {
	return NewService(ServiceDeps{
		UserRepo:    us,
		OTPManager:  om,
		TokenIssuer: ti,
		Mailer:      ml,
	})
}

func registration() domain.CreateUserRequest {
	return domain.CreateUserRequest{
		Username: "alice",
		Password: "Passw0rd!",
		Name:     "Alice",
		Email:    "alice@example.com",
	}
}

// --- Register ---

func TestRegister_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(nil, domain.ErrNotFound)
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, domain.ErrNotFound)

	var stored *domain.User
	us.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.User) }).
		Return(nil)

	u, err := newService(us, nil, nil, nil).Register(context.Background(), registration())

	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.False(t, u.IsVerified)
	require.NotNil(t, stored)
	// Only the hash is persisted, never the plaintext.
	assert.NotEqual(t, "Passw0rd!", stored.PasswordHash)
	assert.True(t, hash.Verify("Passw0rd!", stored.PasswordHash))
	us.AssertExpectations(t)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(&domain.User{UserID: "u1"}, nil)

	_, err := newService(us, nil, nil, nil).Register(context.Background(), registration())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	us.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(nil, domain.ErrNotFound)
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(&domain.User{UserID: "u2"}, nil)

	_, err := newService(us, nil, nil, nil).Register(context.Background(), registration())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

// --- Login ---

func userWithPassword(t *testing.T, password string) *domain.User {
	t.Helper()
	digest, err := hash.Generate(password)
	require.NoError(t, err)
	return &domain.User{
		UserID:       "u1",
		Username:     "alice",
		Email:        "alice@example.com",
		Name:         "Alice",
		PasswordHash: digest,
	}
}

func TestLogin_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	ti := &mockTokenIssuer{}
	us.On("GetByUsername", mock.Anything, "alice").Return(userWithPassword(t, "Passw0rd!"), nil)
	ti.On("IssueAccessToken", "u1", "Alice", "alice@example.com").Return("access-token", nil)
	ti.On("IssueRefreshToken", "u1", "Alice", "alice@example.com").Return("refresh-token", nil)

	result, err := newService(us, nil, ti, nil).Login(context.Background(), domain.LoginRequest{
		Username: "alice", Password: "Passw0rd!",
	})

	require.NoError(t, err)
	assert.Equal(t, "access-token", result.AccessToken)
	assert.Equal(t, "refresh-token", result.RefreshToken)
	assert.Equal(t, "alice", result.User.Username)
	assert.False(t, result.User.IsVerified)
}

func TestLogin_WrongPassword(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(userWithPassword(t, "Passw0rd!"), nil)

	_, err := newService(us, nil, nil, nil).Login(context.Background(), domain.LoginRequest{
		Username: "alice", Password: "wrong-password",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_FailureMessageDoesNotLeakUserExistence(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(userWithPassword(t, "Passw0rd!"), nil)
	us.On("GetByUsername", mock.Anything, "nobody").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, nil, nil)

	_, errWrongPassword := svc.Login(context.Background(), domain.LoginRequest{
		Username: "alice", Password: "wrong-password",
	})
	_, errUnknownUser := svc.Login(context.Background(), domain.LoginRequest{
		Username: "nobody", Password: "whatever1A",
	})

	require.Error(t, errWrongPassword)
	require.Error(t, errUnknownUser)
	assert.Equal(t, errWrongPassword.Error(), errUnknownUser.Error())
	assert.True(t, errors.Is(errUnknownUser, domain.ErrUnauthorized))
}

// --- Refresh ---

func TestRefresh_HappyPath(t *testing.T) {
	ti := &mockTokenIssuer{}
	ti.On("Verify", "refresh-token").Return(&jwtinfra.Claims{
		UserID: "u1", Name: "Alice", Email: "alice@example.com",
	}, nil)
	ti.On("IssueAccessToken", "u1", "Alice", "alice@example.com").Return("new-access-token", nil)

	access, err := newService(nil, nil, ti, nil).Refresh(context.Background(), "refresh-token")

	require.NoError(t, err)
	assert.Equal(t, "new-access-token", access)
	ti.AssertNotCalled(t, "IssueRefreshToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefresh_InvalidToken(t *testing.T) {
	ti := &mockTokenIssuer{}
	ti.On("Verify", "garbage").Return(nil, domain.ErrUnauthorized)

	_, err := newService(nil, nil, ti, nil).Refresh(context.Background(), "garbage")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

// --- RequestEmailVerification ---

func TestRequestEmailVerification_UserNotFound(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "missing").Return(nil, domain.ErrNotFound)

	err := newService(us, nil, nil, nil).RequestEmailVerification(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRequestEmailVerification_AlreadyVerified(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", IsVerified: true}, nil)

	err := newService(us, nil, nil, nil).RequestEmailVerification(context.Background(), "u1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnprocessable))
}

func TestRequestEmailVerification_HappyPath_MailerReceivesCode(t *testing.T) {
	us := &mockUserStore{}
	om := &mockOTPManager{}
	ml := &mockMailer{}

	us.On("Get", mock.Anything, "u1").Return(&domain.User{
		UserID: "u1", Name: "Alice", Email: "alice@example.com",
	}, nil)
	om.On("Issue", mock.Anything, "u1").Return("042137", nil)
	ml.On("SendEmail", "Alice", "alice@example.com", mock.Anything, mock.MatchedBy(func(body string) bool {
		return regexp.MustCompile(`\d{6}`).MatchString(body)
	})).Return(nil)

	err := newService(us, om, nil, ml).RequestEmailVerification(context.Background(), "u1")

	require.NoError(t, err)
	ml.AssertExpectations(t)
}

func TestRequestEmailVerification_CooldownPropagates(t *testing.T) {
	us := &mockUserStore{}
	om := &mockOTPManager{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "a@b.com"}, nil)
	om.On("Issue", mock.Anything, "u1").Return("", domain.ErrRateLimited)

	err := newService(us, om, nil, nil).RequestEmailVerification(context.Background(), "u1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRateLimited))
}

func TestRequestEmailVerification_MailFailureIsSwallowed(t *testing.T) {
	us := &mockUserStore{}
	om := &mockOTPManager{}
	ml := &mockMailer{}

	us.On("Get", mock.Anything, "u1").Return(&domain.User{
		UserID: "u1", Name: "Alice", Email: "alice@example.com",
	}, nil)
	om.On("Issue", mock.Anything, "u1").Return("042137", nil)
	ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("smtp unreachable"))

	err := newService(us, om, nil, ml).RequestEmailVerification(context.Background(), "u1")

	assert.NoError(t, err)
}

// --- ConfirmEmailVerification ---

func TestConfirmEmailVerification_UserNotFound(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "missing").Return(nil, domain.ErrNotFound)

	err := newService(us, nil, nil, nil).ConfirmEmailVerification(context.Background(), "missing", "123456")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestConfirmEmailVerification_AlreadyVerified(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", IsVerified: true}, nil)

	err := newService(us, nil, nil, nil).ConfirmEmailVerification(context.Background(), "u1", "123456")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnprocessable))
}

func TestConfirmEmailVerification_InvalidCode(t *testing.T) {
	us := &mockUserStore{}
	om := &mockOTPManager{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)
	om.On("Validate", mock.Anything, "u1", "000000").Return(false, nil)

	err := newService(us, om, nil, nil).ConfirmEmailVerification(context.Background(), "u1", "000000")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnprocessable))
	us.AssertNotCalled(t, "MarkVerified", mock.Anything, mock.Anything)
}

func TestConfirmEmailVerification_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	om := &mockOTPManager{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)
	om.On("Validate", mock.Anything, "u1", "123456").Return(true, nil)
	us.On("MarkVerified", mock.Anything, "u1").Return(nil)

	err := newService(us, om, nil, nil).ConfirmEmailVerification(context.Background(), "u1", "123456")

	require.NoError(t, err)
	us.AssertExpectations(t)
	om.AssertExpectations(t)
}

// --- end to end (real hasher + issuer, in-memory stores) ---

type memChallengeStore struct {
	byUser map[string]*domain.OTPChallenge
}

func (m *memChallengeStore) LatestByUser(_ context.Context, userID string) (*domain.OTPChallenge, error) {
	if c, ok := m.byUser[userID]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}
func (m *memChallengeStore) ReplaceForUser(_ context.Context, userID string, c *domain.OTPChallenge) error {
	m.byUser[userID] = c
	return nil
}
func (m *memChallengeStore) Delete(_ context.Context, challengeID string) error {
	for uid, c := range m.byUser {
		if c.ChallengeID == challengeID {
			delete(m.byUser, uid)
		}
	}
	return nil
}

func TestVerificationFlow_EndToEnd(t *testing.T) {
	us := &mockUserStore{}
	ml := &mockMailer{}

	alice := &domain.User{UserID: "u1", Username: "alice", Name: "Alice", Email: "alice@example.com"}
	us.On("Get", mock.Anything, "u1").Return(alice, nil)
	us.On("MarkVerified", mock.Anything, "u1").Return(nil)

	var sentCode string
	ml.On("SendEmail", "Alice", "alice@example.com", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			sentCode = regexp.MustCompile(`\d{6}`).FindString(args.String(3))
		}).
		Return(nil)

	// Real OTP manager over an in-memory store, so the code round-trips
	// through the production hashing path.
	otpSvc := otp.NewService(&memChallengeStore{byUser: map[string]*domain.OTPChallenge{}}, 6, time.Minute, 5*time.Minute)
	svc := NewService(ServiceDeps{UserRepo: us, OTPManager: otpSvc, Mailer: ml})

	require.NoError(t, svc.RequestEmailVerification(context.Background(), "u1"))
	require.Len(t, sentCode, 6)

	require.NoError(t, svc.ConfirmEmailVerification(context.Background(), "u1", sentCode))
	us.AssertCalled(t, "MarkVerified", mock.Anything, "u1")

	// The challenge was consumed: the same code no longer validates.
	err := svc.ConfirmEmailVerification(context.Background(), "u1", sentCode)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnprocessable))
}
