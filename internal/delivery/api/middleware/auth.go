package middleware

import (
	"log/slog"
	"strings"

	deliverycontext "hrdesk/internal/delivery/context"
	"hrdesk/internal/domain/entity"
	domainerrors "hrdesk/internal/domain/errors"
	"hrdesk/internal/domain/service"
	"hrdesk/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const bearerPrefix = "Bearer "

// AuthMiddlewareParams holds dependencies for AuthMiddleware, injected by Fx.
type AuthMiddlewareParams struct {
	fx.In

	TokenService service.TokenService
	AuthUC       usecase.AuthUsecase
	Logger       *slog.Logger
}

// AuthMiddleware guards routes with a bearer access token.
type AuthMiddleware struct {
	tokenSvc service.TokenService
	authUC   usecase.AuthUsecase
	logger   *slog.Logger
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(params AuthMiddlewareParams) *AuthMiddleware {
	return &AuthMiddleware{
		tokenSvc: params.TokenService,
		authUC:   params.AuthUC,
		logger:   params.Logger,
	}
}

// Authorize validates the access token, re-reads the account behind it and
// enforces the role set. With no roles any authenticated account passes.
// The handler is never invoked when a check fails.
func (m *AuthMiddleware) Authorize(roles ...entity.Role) echo.MiddlewareFunc {
	allowed := entity.Roles(roles)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return domainerrors.ErrUnauthorized.WrapMessage("missing bearer token")
			}

			claims, err := m.tokenSvc.ValidateAccessToken(tokenString)
			if err != nil {
				deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger).
					Debug("Rejected access token", slog.Any("error", err))

				return domainerrors.ErrUnauthorized.WrapMessage("invalid access token")
			}

			ctx := c.Request().Context()
			principal, err := m.authUC.ResolvePrincipal(ctx, claims.AccountID)
			if err != nil {
				return err
			}

			if len(allowed) > 0 && !allowed.Contains(principal.Role) {
				return domainerrors.ErrForbidden.WrapMessage("role not permitted on route")
			}

			deliverycontext.SetPrincipal(c, principal)

			reqLogger := deliverycontext.GetLoggerOrDefault(ctx, m.logger).With(slog.Uint64("account_id", principal.ID))
			c.SetRequest(c.Request().WithContext(deliverycontext.WithLogger(ctx, reqLogger)))

			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(bearerPrefix):])

	return token, token != ""
}
