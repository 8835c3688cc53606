package hash

import "golang.org/x/crypto/bcrypt"

// Generate bcrypt-hashes a plaintext secret. The same function covers account
// passwords and OTP codes so both get the identical cost factor.
func Generate(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plain matches digest. A malformed digest fails
// closed: the answer is false, never an error surfaced to caller logic.
func Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
