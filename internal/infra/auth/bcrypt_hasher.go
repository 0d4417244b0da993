package auth

import (
	"fmt"
	"strings"
	"unicode"

	"hrdesk/config"
	domainerrors "hrdesk/internal/domain/errors"
	"hrdesk/internal/domain/service"
	"hrdesk/internal/errors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt only looks at the first 72 bytes of input.
const bcryptMaxPasswordBytes = 72

var forbiddenPasswordWords = []string{"password", "admin", "qwerty", "letmein", "123456"}

// bcryptHasher is a concrete implementation of the PasswordHasher interface using bcrypt.
type bcryptHasher struct {
	cost   int
	policy config.PasswordStrengthConfig
}

// NewBcryptHasher is the constructor for bcryptHasher.
// It returns the implementation as a service.PasswordHasher interface.
func NewBcryptHasher(cfg *config.Config) service.PasswordHasher {
	hasher := &bcryptHasher{
		cost:   bcrypt.DefaultCost,
		policy: defaultPasswordPolicy(),
	}
	if cfg.Auth != nil && cfg.Auth.BcryptCost >= bcrypt.MinCost && cfg.Auth.BcryptCost <= bcrypt.MaxCost {
		hasher.cost = cfg.Auth.BcryptCost
	}
	if cfg.PasswordStrength != nil {
		hasher.policy = *cfg.PasswordStrength
	}

	return hasher
}

// NewBcryptHasherWithCost builds a hasher with an explicit cost and the default policy.
func NewBcryptHasherWithCost(cost int) service.PasswordHasher {
	return &bcryptHasher{cost: cost, policy: defaultPasswordPolicy()}
}

func defaultPasswordPolicy() config.PasswordStrengthConfig {
	return config.PasswordStrengthConfig{
		MinLength:        8,
		MaxLength:        bcryptMaxPasswordBytes,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumbers:   true,
		RequireSpecial:   true,
	}
}

// Hash generates a salted hash from a plaintext password using bcrypt.
// bcrypt automatically handles salt generation.
func (h *bcryptHasher) Hash(password string) (string, error) {
	if err := h.ValidatePasswordStrength(password); err != nil {
		return "", err
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}

	return string(bytes), nil
}

// Check compares a plaintext password with a bcrypt hash.
func (h *bcryptHasher) Check(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	// err is nil if the password and hash match.
	return err == nil
}

// ValidatePasswordStrength applies the configured policy and the forbidden word list.
func (h *bcryptHasher) ValidatePasswordStrength(password string) error {
	if h.policy.MinLength > 0 && len(password) < h.policy.MinLength {
		return weakPassword("must be at least %d characters long", h.policy.MinLength)
	}

	maxLength := h.policy.MaxLength
	if maxLength <= 0 || maxLength > bcryptMaxPasswordBytes {
		maxLength = bcryptMaxPasswordBytes
	}
	if len(password) > maxLength {
		return weakPassword("must be at most %d characters long", maxLength)
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasNumber = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if h.policy.RequireLowercase && !hasLower {
		return weakPassword("must contain at least one lowercase letter")
	}
	if h.policy.RequireUppercase && !hasUpper {
		return weakPassword("must contain at least one uppercase letter")
	}
	if h.policy.RequireNumbers && !hasNumber {
		return weakPassword("must contain at least one number")
	}
	if h.policy.RequireSpecial && !hasSpecial {
		return weakPassword("must contain at least one special character")
	}

	lowered := strings.ToLower(password)
	for _, word := range forbiddenPasswordWords {
		if strings.Contains(lowered, word) {
			return weakPassword("contains forbidden words")
		}
	}

	return nil
}

func weakPassword(format string, args ...any) error {
	return errors.WithStack(domainerrors.ErrPasswordStrength.WithDetails(fmt.Sprintf("password "+format, args...)))
}
