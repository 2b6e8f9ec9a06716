package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub/schoolhub-server/internal/domain"
	domainerrors "github.com/schoolhub/schoolhub-server/internal/errors"
	"github.com/schoolhub/schoolhub-server/internal/ratelimit"
)

func setupAdmin(t *testing.T, env *testEnv) *AuthResponse {
	t.Helper()

	resp, err := env.auth.Setup(context.Background(), SetupRequest{
		Email:       "principal@school.org",
		Password:    "correct horse battery",
		DisplayName: "Principal",
	})
	require.NoError(t, err)
	return resp
}

func TestSetupCreatesAdmin(t *testing.T) {
	env := setupServices(t)

	resp := setupAdmin(t, env)

	assert.Equal(t, domain.RoleAdmin, resp.User.Role)
	assert.Empty(t, resp.User.PasswordHash)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	claims, err := env.auth.VerifyAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestSetupOnlyOnce(t *testing.T) {
	env := setupServices(t)
	setupAdmin(t, env)

	_, err := env.auth.Setup(context.Background(), SetupRequest{
		Email:       "second@school.org",
		Password:    "whatever else here",
		DisplayName: "Second",
	})
	assertDomainCode(t, err, domainerrors.CodeAlreadyConfigured)
}

func TestLoginSuccess(t *testing.T) {
	env := setupServices(t)
	setupAdmin(t, env)

	resp, err := env.auth.Login(context.Background(), LoginRequest{
		Email:    "principal@school.org",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.False(t, resp.User.LastLoginAt.IsZero())
}

func TestLoginWrongPassword(t *testing.T) {
	env := setupServices(t)
	setupAdmin(t, env)

	_, err := env.auth.Login(context.Background(), LoginRequest{
		Email:    "principal@school.org",
		Password: "wrong password here",
	})
	assertDomainCode(t, err, domainerrors.CodeInvalidCredentials)
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	env := setupServices(t)
	setupAdmin(t, env)

	_, err := env.auth.Login(context.Background(), LoginRequest{
		Email:    "nobody@school.org",
		Password: "wrong password here",
	})
	assertDomainCode(t, err, domainerrors.CodeInvalidCredentials)
}

func TestLoginRateLimit(t *testing.T) {
	env := setupServices(t)
	setupAdmin(t, env)
	ctx := context.Background()

	// Tight limiter so the test doesn't sleep.
	limiter := ratelimit.New(0.1, 2)
	t.Cleanup(limiter.Stop)
	env.auth.loginLimiter = limiter

	req := LoginRequest{
		Email:     "principal@school.org",
		Password:  "wrong password here",
		IPAddress: "203.0.113.9",
	}

	for range 2 {
		_, err := env.auth.Login(ctx, req)
		assertDomainCode(t, err, domainerrors.CodeInvalidCredentials)
	}

	// Burst exhausted: even the right password is refused now.
	req.Password = "correct horse battery"
	_, err := env.auth.Login(ctx, req)
	assertDomainCode(t, err, domainerrors.CodeInvalidCredentials)
}

func TestRefreshRotatesToken(t *testing.T) {
	env := setupServices(t)
	first := setupAdmin(t, env)
	ctx := context.Background()

	second, err := env.auth.Refresh(ctx, RefreshRequest{RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The old refresh token is dead after rotation.
	_, err = env.auth.Refresh(ctx, RefreshRequest{RefreshToken: first.RefreshToken})
	assertDomainCode(t, err, domainerrors.CodeUnauthorized)

	// The new one works.
	_, err = env.auth.Refresh(ctx, RefreshRequest{RefreshToken: second.RefreshToken})
	require.NoError(t, err)
}

func TestRefreshPicksUpPermissionChanges(t *testing.T) {
	env := setupServices(t)
	setupAdmin(t, env)
	ctx := context.Background()

	created, err := env.users.CreateUser(ctx, CreateUserRequest{
		Email:       "reader@school.org",
		Password:    "reader password 1",
		DisplayName: "Reader",
		Role:        "user",
	})
	require.NoError(t, err)

	login, err := env.auth.Login(ctx, LoginRequest{
		Email:    "reader@school.org",
		Password: "reader password 1",
	})
	require.NoError(t, err)

	claims, err := env.auth.VerifyAccessToken(login.AccessToken)
	require.NoError(t, err)
	assert.Empty(t, claims.Permissions.Books)

	// Admin grants a book; the live access token is unaffected, but a
	// refresh mints one with the new grants.
	_, err = env.users.UpdateUser(ctx, created.ID, UpdateUserRequest{
		Permissions: &PermissionsRequest{Books: []string{"7"}},
	})
	require.NoError(t, err)

	refreshed, err := env.auth.Refresh(ctx, RefreshRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)

	claims, err = env.auth.VerifyAccessToken(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, claims.Permissions.Books)
}

func TestLogout(t *testing.T) {
	env := setupServices(t)
	resp := setupAdmin(t, env)
	ctx := context.Background()

	require.NoError(t, env.auth.Logout(ctx, resp.RefreshToken))

	_, err := env.auth.Refresh(ctx, RefreshRequest{RefreshToken: resp.RefreshToken})
	assertDomainCode(t, err, domainerrors.CodeUnauthorized)

	// Logging out twice is fine.
	require.NoError(t, env.auth.Logout(ctx, resp.RefreshToken))
}

func TestSetupValidation(t *testing.T) {
	env := setupServices(t)

	_, err := env.auth.Setup(context.Background(), SetupRequest{
		Email:       "not-an-email",
		Password:    "short",
		DisplayName: "",
	})
	assertDomainCode(t, err, domainerrors.CodeValidation)
}

func assertDomainCode(t *testing.T, err error, code domainerrors.Code) {
	t.Helper()
	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}
