package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"hrdesk/internal/delivery/api/response"
	deliverycontext "hrdesk/internal/delivery/context"
	"hrdesk/internal/domain/entity"
	domainerrors "hrdesk/internal/domain/errors"
	"hrdesk/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AccountHandlerParams holds dependencies for AccountHandler, injected by Fx.
type AccountHandlerParams struct {
	fx.In

	AccountUC usecase.AccountUsecase
	SessionUC usecase.SessionUsecase
	Logger    *slog.Logger
}

// AccountHandler serves account management and session listing for authenticated callers.
type AccountHandler struct {
	accountUC usecase.AccountUsecase
	sessionUC usecase.SessionUsecase
	logger    *slog.Logger
	now       func() time.Time
}

// NewAccountHandler is the constructor for AccountHandler.
func NewAccountHandler(params AccountHandlerParams) *AccountHandler {
	return &AccountHandler{
		accountUC: params.AccountUC,
		sessionUC: params.SessionUC,
		logger:    params.Logger,
		now:       time.Now,
	}
}

// CreateAccountRequest represents the body of an Admin-created account.
type CreateAccountRequest struct {
	Title           string `json:"title" validate:"required,max=20"`
	FirstName       string `json:"firstName" validate:"required,max=100"`
	LastName        string `json:"lastName" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,oneof=Admin User"`
}

// UpdateAccountRequest carries optional changes. A password change must be confirmed.
type UpdateAccountRequest struct {
	Title           *string `json:"title" validate:"omitempty,max=20"`
	FirstName       *string `json:"firstName" validate:"omitempty,max=100"`
	LastName        *string `json:"lastName" validate:"omitempty,max=100"`
	Email           *string `json:"email" validate:"omitempty,email,max=255"`
	Password        *string `json:"password" validate:"omitempty,min=6"`
	ConfirmPassword *string `json:"confirmPassword" validate:"omitempty,eqfield=Password"`
	Role            *string `json:"role" validate:"omitempty,oneof=Admin User"`
	IsActive        *bool   `json:"isActive"`
}

func (h *AccountHandler) ListAccounts(c echo.Context) error {
	accounts, err := h.accountUC.ListAccounts(c.Request().Context(), deliverycontext.GetPrincipal(c))
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newAccountResponses(accounts))
}

func (h *AccountHandler) GetAccount(c echo.Context) error {
	id, err := accountID(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	account, err := h.accountUC.GetAccount(c.Request().Context(), deliverycontext.GetPrincipal(c), id)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newAccountResponse(account))
}

// CreateAccount creates an account that is verified from the start.
func (h *AccountHandler) CreateAccount(c echo.Context) error {
	var req CreateAccountRequest
	if err := bindAndValidate(c, &req); err != nil || c.Response().Committed {
		return err
	}

	account, err := h.accountUC.CreateAccount(c.Request().Context(), deliverycontext.GetPrincipal(c), &usecase.CreateAccountInput{
		Title:     req.Title,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      entity.Role(req.Role),
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, newAccountResponse(account))
}

func (h *AccountHandler) UpdateAccount(c echo.Context) error {
	id, err := accountID(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	var req UpdateAccountRequest
	if err := bindAndValidate(c, &req); err != nil || c.Response().Committed {
		return err
	}

	if req.Password != nil && (req.ConfirmPassword == nil || *req.ConfirmPassword != *req.Password) {
		return response.HandleAppError(c,
			domainerrors.ErrValidationFailed.WithDetails("confirmPassword: must match password"))
	}

	input := &usecase.UpdateAccountInput{
		Title:     req.Title,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		IsActive:  req.IsActive,
	}
	if req.Role != nil {
		role := entity.Role(*req.Role)
		input.Role = &role
	}

	account, err := h.accountUC.UpdateAccount(c.Request().Context(), deliverycontext.GetPrincipal(c), id, input)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newAccountResponse(account))
}

func (h *AccountHandler) DeleteAccount(c echo.Context) error {
	id, err := accountID(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	if err := h.accountUC.DeleteAccount(c.Request().Context(), deliverycontext.GetPrincipal(c), id); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Message(c, "Account deleted successfully")
}

// ListRefreshTokens returns the session history of an account.
func (h *AccountHandler) ListRefreshTokens(c echo.Context) error {
	id, err := accountID(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	tokens, err := h.sessionUC.ListRefreshTokens(c.Request().Context(), deliverycontext.GetPrincipal(c), id)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newRefreshTokenResponses(tokens, h.now()))
}

// RevokeAllSessions signs the account out everywhere.
func (h *AccountHandler) RevokeAllSessions(c echo.Context) error {
	id, err := accountID(c)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	revoked, err := h.sessionUC.RevokeAllSessions(c.Request().Context(), deliverycontext.GetPrincipal(c), id, c.RealIP())
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]int64{"revoked": revoked})
}

func accountID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, domainerrors.ErrValidationFailed.WithDetails("id: must be a positive integer")
	}

	return id, nil
}
