package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	deliverycontext "hrdesk/internal/delivery/context"
	"hrdesk/internal/domain/entity"
	domainerrors "hrdesk/internal/domain/errors"
	"hrdesk/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAccountUsecase struct {
	mock.Mock
}

func (m *mockAccountUsecase) ListAccounts(ctx context.Context, requester *entity.Principal) ([]*entity.Account, error) {
	args := m.Called(ctx, requester)
	out, _ := args.Get(0).([]*entity.Account)

	return out, args.Error(1)
}

func (m *mockAccountUsecase) GetAccount(ctx context.Context, requester *entity.Principal, id uint64) (*entity.Account, error) {
	args := m.Called(ctx, requester, id)
	out, _ := args.Get(0).(*entity.Account)

	return out, args.Error(1)
}

func (m *mockAccountUsecase) CreateAccount(ctx context.Context, requester *entity.Principal, input *usecase.CreateAccountInput) (*entity.Account, error) {
	args := m.Called(ctx, requester, input)
	out, _ := args.Get(0).(*entity.Account)

	return out, args.Error(1)
}

func (m *mockAccountUsecase) UpdateAccount(ctx context.Context, requester *entity.Principal, id uint64, input *usecase.UpdateAccountInput) (*entity.Account, error) {
	args := m.Called(ctx, requester, id, input)
	out, _ := args.Get(0).(*entity.Account)

	return out, args.Error(1)
}

func (m *mockAccountUsecase) DeleteAccount(ctx context.Context, requester *entity.Principal, id uint64) error {
	return m.Called(ctx, requester, id).Error(0)
}

type mockSessionUsecase struct {
	mock.Mock
}

func (m *mockSessionUsecase) ListRefreshTokens(ctx context.Context, requester *entity.Principal, accountID uint64) ([]*entity.RefreshToken, error) {
	args := m.Called(ctx, requester, accountID)
	out, _ := args.Get(0).([]*entity.RefreshToken)

	return out, args.Error(1)
}

func (m *mockSessionUsecase) RevokeAllSessions(ctx context.Context, requester *entity.Principal, accountID uint64, ipAddress string) (int64, error) {
	args := m.Called(ctx, requester, accountID, ipAddress)

	return args.Get(0).(int64), args.Error(1)
}

type accountHandlerFixture struct {
	echo     *echo.Echo
	handler  *AccountHandler
	accounts *mockAccountUsecase
	sessions *mockSessionUsecase
	caller   *entity.Principal
}

func newAccountHandlerFixture() *accountHandlerFixture {
	f := &accountHandlerFixture{
		echo:     newTestEcho(),
		accounts: new(mockAccountUsecase),
		sessions: new(mockSessionUsecase),
		caller:   &entity.Principal{ID: 2, Role: entity.RoleUser},
	}
	f.handler = NewAccountHandler(AccountHandlerParams{
		AccountUC: f.accounts,
		SessionUC: f.sessions,
		Logger:    newDiscardLogger(),
	})

	return f
}

// as runs h as the fixture's caller with the given :id.
func (f *accountHandlerFixture) as(id string, h echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.SetParamNames("id")
		c.SetParamValues(id)
		deliverycontext.SetPrincipal(c, f.caller)

		return h(c)
	}
}

func TestGetAccount(t *testing.T) {
	f := newAccountHandlerFixture()
	f.accounts.On("GetAccount", mock.Anything, f.caller, uint64(2)).
		Return(&entity.Account{ID: 2, Email: "bob@example.com", PasswordHash: "$2a$secret", Role: entity.RoleUser}, nil)
	f.accounts.On("GetAccount", mock.Anything, f.caller, uint64(1)).
		Return(nil, domainerrors.ErrForbidden.WrapMessage("not owner"))

	own := serve(f.echo, http.MethodGet, "/accounts/2", "", f.as("2", f.handler.GetAccount))
	assert.Equal(t, http.StatusOK, own.Code)
	assert.Contains(t, own.Body.String(), "bob@example.com")
	assert.NotContains(t, own.Body.String(), "$2a$secret")

	other := serve(f.echo, http.MethodGet, "/accounts/1", "", f.as("1", f.handler.GetAccount))
	assert.Equal(t, http.StatusForbidden, other.Code)
}

func TestGetAccount_InvalidID(t *testing.T) {
	f := newAccountHandlerFixture()

	for _, id := range []string{"abc", "0", "-1"} {
		rec := serve(f.echo, http.MethodGet, "/accounts/"+id, "", f.as(id, f.handler.GetAccount))
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
	}
	f.accounts.AssertNotCalled(t, "GetAccount", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateAccount(t *testing.T) {
	f := newAccountHandlerFixture()
	f.caller.Role = entity.RoleAdmin
	f.accounts.On("CreateAccount", mock.Anything, f.caller, mock.MatchedBy(func(in *usecase.CreateAccountInput) bool {
		return in.Role == entity.RoleAdmin && in.Email == "carol@example.com"
	})).Return(&entity.Account{ID: 3, Email: "carol@example.com", Role: entity.RoleAdmin, IsVerified: true}, nil)

	rec := serve(f.echo, http.MethodPost, "/accounts",
		`{"title":"Dr","firstName":"Carol","lastName":"King","email":"carol@example.com",`+
			`"password":"Sup3r!Secret","confirmPassword":"Sup3r!Secret","role":"Admin"}`,
		f.as("", f.handler.CreateAccount))

	assert.Equal(t, http.StatusCreated, rec.Code)
	f.accounts.AssertExpectations(t)
}

func TestCreateAccount_UnknownRole(t *testing.T) {
	f := newAccountHandlerFixture()

	rec := serve(f.echo, http.MethodPost, "/accounts",
		`{"title":"Dr","firstName":"C","lastName":"K","email":"c@example.com",`+
			`"password":"Sup3r!Secret","confirmPassword":"Sup3r!Secret","role":"Root"}`,
		f.as("", f.handler.CreateAccount))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "role")
}

func TestUpdateAccount(t *testing.T) {
	f := newAccountHandlerFixture()
	f.accounts.On("UpdateAccount", mock.Anything, f.caller, uint64(2), mock.MatchedBy(func(in *usecase.UpdateAccountInput) bool {
		return in.FirstName != nil && *in.FirstName == "Robert" && in.Role == nil && in.Password == nil
	})).Return(&entity.Account{ID: 2, FirstName: "Robert"}, nil)

	rec := serve(f.echo, http.MethodPut, "/accounts/2", `{"firstName":"Robert"}`, f.as("2", f.handler.UpdateAccount))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Robert")
}

func TestUpdateAccount_PasswordNeedsConfirmation(t *testing.T) {
	f := newAccountHandlerFixture()

	rec := serve(f.echo, http.MethodPut, "/accounts/2", `{"password":"N3w!Passphrase"}`, f.as("2", f.handler.UpdateAccount))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "confirmPassword")
	f.accounts.AssertNotCalled(t, "UpdateAccount", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteAccount(t *testing.T) {
	f := newAccountHandlerFixture()
	f.accounts.On("DeleteAccount", mock.Anything, f.caller, uint64(2)).Return(nil)

	rec := serve(f.echo, http.MethodDelete, "/accounts/2", "", f.as("2", f.handler.DeleteAccount))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListRefreshTokens_HidesTokenValues(t *testing.T) {
	f := newAccountHandlerFixture()
	now := time.Now()
	successor := "b3f1c0ffee"
	revokedAt := now.Add(-time.Hour)
	f.sessions.On("ListRefreshTokens", mock.Anything, f.caller, uint64(2)).Return([]*entity.RefreshToken{
		{ID: 2, AccountID: 2, TokenHash: "a1deadbeef", Expires: now.Add(time.Hour), Created: now, IsActive: true},
		{ID: 1, AccountID: 2, TokenHash: "00ddba11", Expires: now.Add(time.Hour), Created: revokedAt,
			IsActive: false, Revoked: &revokedAt, ReplacedByToken: &successor},
	}, nil)

	rec := serve(f.echo, http.MethodGet, "/accounts/2/refresh-tokens", "", f.as("2", f.handler.ListRefreshTokens))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "a1deadbeef")
	assert.NotContains(t, rec.Body.String(), successor)

	var body struct {
		Data []RefreshTokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.True(t, body.Data[0].IsActive)
	assert.False(t, body.Data[1].IsActive)
	assert.True(t, body.Data[1].Replaced)
}

func TestRevokeAllSessions(t *testing.T) {
	f := newAccountHandlerFixture()
	f.sessions.On("RevokeAllSessions", mock.Anything, f.caller, uint64(2), mock.Anything).Return(int64(3), nil)

	rec := serve(f.echo, http.MethodDelete, "/accounts/2/refresh-tokens", "", f.as("2", f.handler.RevokeAllSessions))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"revoked":3}`, dataOf(t, rec))
}
