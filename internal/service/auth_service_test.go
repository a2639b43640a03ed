package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"parking_ledger/internal/domain"
	"parking_ledger/internal/repository/sqlite"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(t *testing.T, expiration time.Duration) *AuthService {
	t.Helper()
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err, "open db")
	t.Cleanup(func() { db.Close() })
	return NewAuthService(sqlite.NewSqliteUserRepository(db), "test-secret", expiration)
}

func TestRegisterFirstUserIsAdmin(t *testing.T) {
	auth := newTestAuthService(t, time.Hour)
	ctx := context.Background()

	first, err := auth.Register(ctx, domain.RegisterUserDTO{Username: "gerente", Password: "segredo1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, first.Role)
	assert.Empty(t, first.Password, "password hash leaked from Register")

	second, err := auth.Register(ctx, domain.RegisterUserDTO{Username: "porteiro", Password: "segredo2"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOperator, second.Role)

	_, err = auth.Register(ctx, domain.RegisterUserDTO{Username: "porteiro", Password: "outra123"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestLoginAndValidateToken(t *testing.T) {
	auth := newTestAuthService(t, time.Hour)
	ctx := context.Background()

	user, err := auth.Register(ctx, domain.RegisterUserDTO{Username: "gerente", Password: "segredo1"})
	require.NoError(t, err)

	_, err = auth.Login(ctx, domain.LoginUserDTO{Username: "gerente", Password: "errada"})
	assert.ErrorIs(t, err, ErrInvalidCredentials, "wrong password")
	_, err = auth.Login(ctx, domain.LoginUserDTO{Username: "ninguem", Password: "segredo1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials, "unknown user")

	resp, err := auth.Login(ctx, domain.LoginUserDTO{Username: "gerente", Password: "segredo1"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.UserID)
	assert.Equal(t, domain.RoleAdmin, resp.Role)

	_, claims, err := auth.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, claims["role"])
	assert.Equal(t, "gerente", claims["username"])
}

func TestValidateTokenRejects(t *testing.T) {
	auth := newTestAuthService(t, time.Hour)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	expiredToken, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	foreignToken, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"malformed":    "not-a-token",
		"expired":      expiredToken,
		"wrong secret": foreignToken,
	} {
		_, _, err := auth.ValidateToken(token)
		assert.ErrorIs(t, err, ErrTokenInvalid, name)
	}
}
