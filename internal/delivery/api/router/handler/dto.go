package handler

import (
	"time"

	"hrdesk/internal/domain/entity"
	"hrdesk/internal/usecase"
)

// AccountResponse is the public view of an account. Hashes and tokens never leave the server.
type AccountResponse struct {
	ID         uint64     `json:"id"`
	Title      string     `json:"title"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	IsVerified bool       `json:"isVerified"`
	IsActive   bool       `json:"isActive"`
	Created    time.Time  `json:"created"`
	Updated    *time.Time `json:"updated,omitempty"`
}

// AuthenticateResponse is returned by sign-in and refresh.
type AuthenticateResponse struct {
	Account  AccountResponse `json:"account"`
	JwtToken string          `json:"jwtToken"`
}

// RefreshTokenResponse describes one session without exposing its value.
type RefreshTokenResponse struct {
	ID          uint64     `json:"id"`
	Created     time.Time  `json:"created"`
	CreatedByIP string     `json:"createdByIp"`
	Expires     time.Time  `json:"expires"`
	Revoked     *time.Time `json:"revoked,omitempty"`
	RevokedByIP *string    `json:"revokedByIp,omitempty"`
	Replaced    bool       `json:"replaced"`
	IsActive    bool       `json:"isActive"`
	IsExpired   bool       `json:"isExpired"`
}

func newAccountResponse(account *entity.Account) AccountResponse {
	return AccountResponse{
		ID:         account.ID,
		Title:      account.Title,
		FirstName:  account.FirstName,
		LastName:   account.LastName,
		Email:      account.Email,
		Role:       account.Role.String(),
		IsVerified: account.IsVerified,
		IsActive:   account.IsActive,
		Created:    account.Created,
		Updated:    account.Updated,
	}
}

func newAccountResponses(accounts []*entity.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, newAccountResponse(account))
	}

	return out
}

func newAuthenticateResponse(output *usecase.AuthOutput) AuthenticateResponse {
	return AuthenticateResponse{
		Account:  newAccountResponse(output.Account),
		JwtToken: output.AccessToken,
	}
}

func newRefreshTokenResponses(tokens []*entity.RefreshToken, now time.Time) []RefreshTokenResponse {
	out := make([]RefreshTokenResponse, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, RefreshTokenResponse{
			ID:          token.ID,
			Created:     token.Created,
			CreatedByIP: token.CreatedByIP,
			Expires:     token.Expires,
			Revoked:     token.Revoked,
			RevokedByIP: token.RevokedByIP,
			Replaced:    token.ReplacedByToken != nil,
			IsActive:    token.IsUsable(now),
			IsExpired:   token.IsExpired(now),
		})
	}

	return out
}
