// Package handler contains the HTTP handlers of the API server.
package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"hrdesk/config"
	"hrdesk/internal/delivery/api/response"
	deliverycontext "hrdesk/internal/delivery/context"
	"hrdesk/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const (
	registerMessage       = "Registration successful, please check your email for verification instructions"
	forgotPasswordMessage = "Please check your email for password reset instructions"
)

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	AuthUC         usecase.AuthUsecase
	RegistrationUC usecase.RegistrationUsecase
	PasswordUC     usecase.PasswordUsecase
	Config         *config.Config
	Logger         *slog.Logger
}

// AuthHandler serves the anonymous credential flows and token rotation.
type AuthHandler struct {
	authUC         usecase.AuthUsecase
	registrationUC usecase.RegistrationUsecase
	passwordUC     usecase.PasswordUsecase
	cookie         config.RefreshCookieConfig
	refreshTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler.
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		authUC:         params.AuthUC,
		registrationUC: params.RegistrationUC,
		passwordUC:     params.PasswordUC,
		cookie:         params.Config.Auth.RefreshCookie,
		refreshTTL:     params.Config.Auth.RefreshTokenTTL,
		logger:         params.Logger,
	}
}

// AuthenticateRequest represents the sign-in body.
type AuthenticateRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RevokeTokenRequest names the refresh token to revoke; the cookie is used when empty.
type RevokeTokenRequest struct {
	Token string `json:"token"`
}

// RegisterRequest represents the sign-up body.
type RegisterRequest struct {
	Title           string `json:"title" validate:"required,max=20"`
	FirstName       string `json:"firstName" validate:"required,max=100"`
	LastName        string `json:"lastName" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	AcceptTerms     bool   `json:"acceptTerms" validate:"eq=true"`
}

// TokenRequest carries a single opaque token.
type TokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// ForgotPasswordRequest represents the password recovery body.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents the body consuming a reset token.
type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// bindAndValidate decodes the body into req and runs the struct validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return response.BindingError(c, "Invalid request body")
	}

	if err := c.Validate(req); err != nil {
		return response.HandleAppError(c, err)
	}

	return nil
}

// Authenticate signs in and sets the refresh token cookie.
func (h *AuthHandler) Authenticate(c echo.Context) error {
	var req AuthenticateRequest
	if err := bindAndValidate(c, &req); err != nil || c.Response().Committed {
		return err
	}

	output, err := h.authUC.Authenticate(c.Request().Context(), &usecase.AuthenticateInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.RealIP(),
		Origin:    origin(c),
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	h.setRefreshCookie(c, output.RefreshToken, output.RefreshTokenExpires)

	return response.Success(c, http.StatusOK, newAuthenticateResponse(output))
}

// RefreshToken rotates the refresh token carried by the cookie.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	output, err := h.authUC.RefreshToken(c.Request().Context(), h.refreshCookie(c), c.RealIP())
	if err != nil {
		return response.HandleAppError(c, err)
	}

	h.setRefreshCookie(c, output.RefreshToken, output.RefreshTokenExpires)

	return response.Success(c, http.StatusOK, newAuthenticateResponse(output))
}

// RevokeToken revokes the token from the body, or the caller's cookie when none is given.
func (h *AuthHandler) RevokeToken(c echo.Context) error {
	var req RevokeTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "Invalid request body")
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		token = h.refreshCookie(c)
	}

	if err := h.authUC.RevokeToken(c.Request().Context(), token, c.RealIP(), deliverycontext.GetPrincipal(c)); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Message(c, "Token revoked")
}

// Register answers with the same message whether or not the email was new.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil || c.Response().Committed {
		return err
	}

	_, err := h.registrationUC.Register(c.Request().Context(), &usecase.RegisterInput{
		Title:     req.Title,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Origin:    origin(c),
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Message(c, registerMessage)
}

func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req TokenRequest
	if err := bindAndValidate(c, &req); err != nil || c.Response().Committed {
		return err
	}

	if err := h.registrationUC.VerifyEmail(c.Request().Context(), req.Token); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Message(c, "Verification successful, you can now login")
}

// ForgotPassword answers identically for known and unknown emails.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil || c.Response().Committed {
		return err
	}

	if err := h.passwordUC.ForgotPassword(c.Request().Context(), req.Email, origin(c)); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Message(c, forgotPasswordMessage)
}

func (h *AuthHandler) ValidateResetToken(c echo.Context) error {
	var req TokenRequest
	if err := bindAndValidate(c, &req); err != nil || c.Response().Committed {
		return err
	}

	if err := h.passwordUC.ValidateResetToken(c.Request().Context(), req.Token); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Message(c, "Token is valid")
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil || c.Response().Committed {
		return err
	}

	err := h.passwordUC.ResetPassword(c.Request().Context(), &usecase.ResetPasswordInput{
		Token:     req.Token,
		Password:  req.Password,
		IPAddress: c.RealIP(),
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Message(c, "Password reset successful, you can now login")
}

func (h *AuthHandler) refreshCookie(c echo.Context) string {
	cookie, err := c.Cookie(h.cookie.Name)
	if err != nil {
		return ""
	}

	return cookie.Value
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, token string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: sameSite(h.cookie.SameSite),
	})
}

func sameSite(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}

func origin(c echo.Context) string {
	return c.Request().Header.Get(echo.HeaderOrigin)
}

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"})
}
