package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/aeronite/auth-api/internal/domain"
	"github.com/aeronite/auth-api/internal/pkg/hash"
	"github.com/aeronite/auth-api/internal/pkg/id"
)

// Service manages the per-user one-time-passcode lifecycle: issue with
// cooldown, single-use consumption, lazy expiry.
type Service interface {
	// Issue creates a fresh challenge and returns the plaintext code for
	// delivery. The code is never persisted in plaintext.
	Issue(ctx context.Context, userID string) (string, error)
	// Validate consumes the user's live challenge if candidate matches.
	// A mismatch leaves the challenge live for further attempts.
	Validate(ctx context.Context, userID, candidate string) (bool, error)
}

type challengeStore interface {
	LatestByUser(ctx context.Context, userID string) (*domain.OTPChallenge, error)
	ReplaceForUser(ctx context.Context, userID string, c *domain.OTPChallenge) error
	Delete(ctx context.Context, challengeID string) error
}

type service struct {
	repo     challengeStore
	length   int
	cooldown time.Duration
	ttl      time.Duration
}

func NewService(repo challengeStore, length int, cooldown, ttl time.Duration) Service {
	return &service{repo: repo, length: length, cooldown: cooldown, ttl: ttl}
}

func (s *service) Issue(ctx context.Context, userID string) (string, error) {
	// Cooldown is measured against the newest challenge's created_at, even if
	// that challenge has since expired or been superseded. Checked before the
	// replace so a rejected request never disturbs the live challenge.
	latest, err := s.repo.LatestByUser(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}
	now := time.Now().UTC()
	if latest != nil && now.Sub(latest.CreatedAt) < s.cooldown {
		return "", fmt.Errorf("please wait about 1 minute before requesting a new OTP code: %w", domain.ErrRateLimited)
	}

	code, err := generateCode(s.length)
	if err != nil {
		return "", err
	}
	digest, err := hash.Generate(code)
	if err != nil {
		return "", err
	}

	c := &domain.OTPChallenge{
		ChallengeID: id.New(),
		UserID:      userID,
		OTPHash:     digest,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl).Unix(),
	}
	if err := s.repo.ReplaceForUser(ctx, userID, c); err != nil {
		return "", err
	}
	return code, nil
}

func (s *service) Validate(ctx context.Context, userID, candidate string) (bool, error) {
	c, err := s.repo.LatestByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if !c.Live(time.Now().UTC()) {
		return false, nil
	}
	if !hash.Verify(candidate, c.OTPHash) {
		return false, nil
	}
	// Single-use: a matched challenge is gone before we report success.
	if err := s.repo.Delete(ctx, c.ChallengeID); err != nil {
		return false, err
	}
	return true, nil
}

// generateCode draws a numeric code from crypto/rand, zero-padded to length digits.
func generateCode(length int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
