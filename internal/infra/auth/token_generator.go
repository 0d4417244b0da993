package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"hrdesk/internal/domain/service"
	"hrdesk/internal/errors"
)

// opaqueTokenBytes is the entropy of every refresh, verification and reset token.
const opaqueTokenBytes = 40

type randomTokenGenerator struct{}

// NewTokenGenerator returns a generator backed by crypto/rand.
func NewTokenGenerator() service.TokenGenerator {
	return randomTokenGenerator{}
}

// Generate returns 40 random bytes hex-encoded (80 characters).
func (randomTokenGenerator) Generate() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to read random bytes")
	}

	return hex.EncodeToString(buf), nil
}

// Hash returns the hex SHA-256 of the token.
func (randomTokenGenerator) Hash(token string) string {
	sum := sha256.Sum256([]byte(token))

	return hex.EncodeToString(sum[:])
}
