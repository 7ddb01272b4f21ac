package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/support-tickets/internal/domain"
	"github.com/spec-kit/support-tickets/internal/repository/memory"
	apperrors "github.com/spec-kit/support-tickets/pkg/util/errorutil"
)

func TestTokenManager_IssueAndParse(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute, time.Hour)
	user := &domain.User{ID: "u-1", IsAdmin: true}

	pair, err := tm.IssuePair(user)
	require.NoError(t, err)

	access, err := tm.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", access.UserID())
	assert.True(t, access.IsAdmin)
	assert.Equal(t, TokenTypeAccess, access.Type)

	refresh, err := tm.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refresh.ID)
	assert.NotEqual(t, access.ID, refresh.ID)
	assert.True(t, pair.RefreshExpiresAt.After(pair.AccessExpiresAt))
}

func TestTokenManager_RejectsWrongTypeSecretAndExpiry(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute, time.Hour)
	pair, err := tm.IssuePair(&domain.User{ID: "u-1"})
	require.NoError(t, err)

	_, err = tm.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = tm.ParseRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenManager("other", time.Minute, time.Hour)
	_, err = other.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tm.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword_HashAndCheck(t *testing.T) {
	hashed, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := CheckPassword(hashed, "correct horse")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hashed, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPassword("not-a-hash", "x")
	assert.Error(t, err)
}

func newProtectedApp(t *testing.T) (*fiber.App, *TokenManager, *memory.Store) {
	t.Helper()
	store := memory.New()
	tm := NewTokenManager("secret", time.Minute, time.Hour)
	mw := NewAuthMiddleware(tm, store.Users())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"code": de.Code})
		},
	})
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		actor, err := RequireActor(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"id": actor.ID, "admin": actor.IsAdmin})
	})
	return app, tm, store
}

func call(t *testing.T, app *fiber.App, header string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set(fiber.HeaderAuthorization, header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return resp.StatusCode, out
}

func TestAuthMiddleware(t *testing.T) {
	app, tm, store := newProtectedApp(t)
	ctx := context.Background()

	active := &domain.User{Username: "alice", IsActive: true, IsAdmin: true}
	require.NoError(t, store.Users().Create(ctx, active))
	inactive := &domain.User{Username: "bob", IsActive: false}
	require.NoError(t, store.Users().Create(ctx, inactive))

	activePair, err := tm.IssuePair(active)
	require.NoError(t, err)
	inactivePair, err := tm.IssuePair(inactive)
	require.NoError(t, err)

	status, body := call(t, app, "Bearer "+activePair.AccessToken)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, active.ID, body["id"])
	assert.Equal(t, true, body["admin"])

	for name, header := range map[string]string{
		"missing":       "",
		"scheme":        "Token " + activePair.AccessToken,
		"refresh token": "Bearer " + activePair.RefreshToken,
		"garbage":       "Bearer nope",
		"inactive user": "Bearer " + inactivePair.AccessToken,
	} {
		t.Run(name, func(t *testing.T) {
			status, body := call(t, app, header)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, "UNAUTHORIZED", body["code"])
		})
	}
}
