package domain

import "time"

// OTPChallenge is a pending email-ownership proof for one user.
// At most one live challenge exists per user: issuing a new one replaces all
// prior rows. The code itself is bcrypt-hashed; plaintext is never stored.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type OTPChallenge struct {
	ChallengeID string    `json:"id" dynamodbav:"challenge_id"`
	UserID      string    `json:"user_id" dynamodbav:"user_id"`
	OTPHash     string    `json:"-" dynamodbav:"otp_hash"`
	CreatedAt   time.Time `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt   int64     `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}

// Live reports whether the challenge can still be matched.
func (c *OTPChallenge) Live(now time.Time) bool {
	return c.ExpiresAt > now.Unix()
}
