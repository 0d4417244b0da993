// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"hrdesk/internal/delivery/api/middleware"
	"hrdesk/internal/delivery/api/router/handler"
	"hrdesk/internal/domain/entity"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	AccountHandler *handler.AccountHandler
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler    *handler.AuthHandler
	accountHandler *handler.AccountHandler
	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimiter
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:    params.AuthHandler,
		accountHandler: params.AccountHandler,
		authMiddleware: params.AuthMiddleware,
		rateLimiter:    params.RateLimiter,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)

	accounts := e.Group("/accounts")

	// Anonymous credential flows
	limit := r.rateLimiter.Limit
	accounts.POST("/authenticate", r.authHandler.Authenticate, limit)
	accounts.POST("/refresh-token", r.authHandler.RefreshToken, limit)
	accounts.POST("/register", r.authHandler.Register, limit)
	accounts.POST("/verify-email", r.authHandler.VerifyEmail)
	accounts.POST("/forgot-password", r.authHandler.ForgotPassword, limit)
	accounts.POST("/validate-reset-token", r.authHandler.ValidateResetToken)
	accounts.POST("/reset-password", r.authHandler.ResetPassword, limit)

	anyRole := r.authMiddleware.Authorize()
	adminOnly := r.authMiddleware.Authorize(entity.RoleAdmin)

	accounts.POST("/revoke-token", r.authHandler.RevokeToken, anyRole)

	accounts.GET("", r.accountHandler.ListAccounts, adminOnly)
	accounts.POST("", r.accountHandler.CreateAccount, adminOnly)

	// Owner-or-admin is enforced by the use cases
	accounts.GET("/:id", r.accountHandler.GetAccount, anyRole)
	accounts.PUT("/:id", r.accountHandler.UpdateAccount, anyRole)
	accounts.DELETE("/:id", r.accountHandler.DeleteAccount, anyRole)
	accounts.GET("/:id/refresh-tokens", r.accountHandler.ListRefreshTokens, anyRole)
	accounts.DELETE("/:id/refresh-tokens", r.accountHandler.RevokeAllSessions, anyRole)
}
