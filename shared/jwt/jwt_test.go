package jwt

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/studcollab/looped/shared/domain"
	internal_errors "github.com/studcollab/looped/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripUser(t *testing.T) {
	svc := New("test_secret", time.Hour)
	user := domain.User{Id: "u1", Email: "asha@uni.edu", Name: "Asha"}

	token, err := svc.NewToken(user)
	require.NoError(t, err)

	got, err := svc.User(token)
	require.NoError(t, err)
	assert.Equal(t, user, got)
}

func TestDecodeRejectsWrongKey(t *testing.T) {
	token, err := New("key-a", time.Hour).NewToken(domain.User{Id: "u1", Email: "a@b.c"})
	require.NoError(t, err)

	_, err = New("key-b", time.Hour).User(token)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, internal_errors.StatusCode(err))
}

func TestUnverifiedMode(t *testing.T) {
	signed := func(claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-only"))
		require.NoError(t, err)
		return s
	}
	svc := New("", time.Hour)

	got, err := svc.User(signed(jwt.MapClaims{"uid": float64(42), "email": "x@uni.edu", "exp": time.Now().Add(time.Hour).Unix()}))
	require.NoError(t, err)
	assert.Equal(t, "42", got.Id)

	got, err = svc.User(signed(jwt.MapClaims{"sub": "u7", "email": "y@uni.edu"}))
	require.NoError(t, err)
	assert.Equal(t, "u7", got.Id)

	_, err = svc.User(signed(jwt.MapClaims{"uid": "u1", "email": "x@uni.edu", "exp": time.Now().Add(-time.Hour).Unix()}))
	assert.Error(t, err, "expired")

	_, err = svc.User(signed(jwt.MapClaims{"uid": "u1"}))
	assert.ErrorIs(t, err, ErrInvalidClaims)

	_, err = svc.User("not-a-token")
	assert.Error(t, err)

	_, err = svc.NewToken(domain.User{Id: "u1"})
	assert.Error(t, err)
}
