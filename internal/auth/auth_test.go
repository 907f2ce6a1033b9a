package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-booking-api/internal/auth"
	"tenant-booking-api/internal/memstore"
	"tenant-booking-api/internal/model"
)

const secret = "test-secret"

func TestPasswordHash(t *testing.T) {
	h, err := auth.HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(h, "hunter22"))
	assert.False(t, auth.CheckPassword(h, "hunter23"))
}

func TestTokenRoundTrip(t *testing.T) {
	tok, err := auth.MakeToken("u1", "a@test.com", auth.RoleAdmin, secret, time.Minute)
	require.NoError(t, err)

	c, err := auth.ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.UserID)
	assert.Equal(t, "a@test.com", c.Email)
	assert.Equal(t, auth.RoleAdmin, c.Role)

	_, err = auth.ParseToken(tok, "other-secret")
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	tok, err := auth.MakeToken("u1", "a@test.com", "", secret, -time.Minute)
	require.NoError(t, err)
	_, err = auth.ParseToken(tok, secret)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenRejectsNoneAlg(t *testing.T) {
	c := auth.Claims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.ParseToken(tok, secret)
	assert.Error(t, err)
}

func TestIdentityCreateAndSignIn(t *testing.T) {
	st := memstore.New()
	id := auth.NewIdentity(st, secret, time.Hour)
	ctx := context.Background()

	uid, err := id.CreatePrincipal(ctx, " owner@test.com ", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, uid)

	_, err = id.CreatePrincipal(ctx, "owner@test.com", "secret1")
	assert.ErrorIs(t, err, model.ErrEmailInUse)

	_, err = id.CreatePrincipal(ctx, "weak@test.com", "12345")
	assert.ErrorIs(t, err, auth.ErrWeakPassword)

	tok, p, err := id.SignIn(ctx, "owner@test.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, uid, p.UID)

	claims, err := id.Verify(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, uid, claims.UserID)
	assert.Empty(t, claims.Role)

	_, _, err = id.SignIn(ctx, "owner@test.com", "wrong")
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	_, _, err = id.SignIn(ctx, "nobody@test.com", "secret1")
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = id.Verify(ctx, "garbage")
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestIdentityCreateAdmin(t *testing.T) {
	st := memstore.New()
	id := auth.NewIdentity(st, secret, time.Hour)
	ctx := context.Background()

	_, err := id.CreateAdmin(ctx, "root@test.com", "secret1")
	require.NoError(t, err)
	tok, _, err := id.SignIn(ctx, "root@test.com", "secret1")
	require.NoError(t, err)
	claims, err := id.Verify(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
}

func TestSignInStoreFailure(t *testing.T) {
	st := memstore.New()
	st.FailOn("PrincipalByEmail", errors.New("db down"))
	id := auth.NewIdentity(st, secret, time.Hour)

	_, _, err := id.SignIn(context.Background(), "a@test.com", "secret1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrUnauthorized)
}
