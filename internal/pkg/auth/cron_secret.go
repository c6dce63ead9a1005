package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// CronSecretVerifier checks the shared secret the external scheduler sends with sweep calls.
// Only the bcrypt hash is kept in configuration.
type CronSecretVerifier struct {
	hash []byte
}

// NewCronSecretVerifier creates a verifier. An empty hash rejects every secret.
func NewCronSecretVerifier(hash string) *CronSecretVerifier {
	return &CronSecretVerifier{hash: []byte(hash)}
}

// Verify returns true when secret matches the configured hash
func (v *CronSecretVerifier) Verify(secret string) bool {
	if len(v.hash) == 0 || secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(v.hash, []byte(secret)) == nil
}

// HashCronSecret produces the value to put in sweep.secret_hash
func HashCronSecret(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
