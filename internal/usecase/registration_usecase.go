package usecase

import (
	"context"

	"hrdesk/internal/domain/entity"
)

// RegisterInput defines the profile submitted at sign-up.
type RegisterInput struct {
	Title     string
	FirstName string
	LastName  string
	Email     string
	Password  string
	Origin    string
}

// RegisterOutput describes the outcome of a registration.
// Both fields are empty when the email was already taken and the duplicate was answered uniformly.
type RegisterOutput struct {
	Account           *entity.Account
	VerificationToken string
}

// RegistrationUsecase covers sign-up and email verification.
type RegistrationUsecase interface {
	Register(ctx context.Context, input *RegisterInput) (*RegisterOutput, error)
	VerifyEmail(ctx context.Context, token string) error
}
