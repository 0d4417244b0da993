package usecase

import "context"

// ResetPasswordInput defines the data required to consume a reset token.
type ResetPasswordInput struct {
	Token     string
	Password  string
	IPAddress string
}

// PasswordUsecase covers the password recovery flow.
type PasswordUsecase interface {
	// ForgotPassword never reveals whether the email exists.
	ForgotPassword(ctx context.Context, email, origin string) error

	// ValidateResetToken has no side effects.
	ValidateResetToken(ctx context.Context, token string) error

	// ResetPassword consumes the reset token.
	ResetPassword(ctx context.Context, input *ResetPasswordInput) error
}
