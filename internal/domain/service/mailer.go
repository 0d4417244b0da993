package service

import (
	"context"

	"hrdesk/internal/domain/entity"
)

// Mailer dispatches a rendered email.
type Mailer interface {
	Send(ctx context.Context, msg *entity.MailMessage) error
}

// MailPublisher hands a rendered email to an asynchronous transport for the mail worker.
type MailPublisher interface {
	Publish(ctx context.Context, msg *entity.MailMessage) error

	// Close releases any resources held by the publisher
	Close() error
}

// MailComposer renders the account lifecycle emails.
// origin is the client origin used to build links; it may be empty.
type MailComposer interface {
	Verification(account *entity.Account, token, origin string) (*entity.MailMessage, error)
	AlreadyRegistered(account *entity.Account, origin string) (*entity.MailMessage, error)
	PasswordReset(account *entity.Account, token, origin string) (*entity.MailMessage, error)
}
