package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/studcollab/looped/shared/domain"
	jwt_internal "github.com/studcollab/looped/shared/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth(t *testing.T) {
	jwtService := jwt_internal.New("test_secret", time.Hour)
	user := &domain.User{Id: "u1", Email: "test@example.com", Name: "Test"}
	token, err := jwtService.NewToken(*user)
	require.NoError(t, err)

	tests := []struct {
		name           string
		cookie         *http.Cookie
		header         string
		expectedStatus int
		expectedUser   *domain.User
	}{
		{
			name:           "Valid token in cookie",
			cookie:         &http.Cookie{Name: "accessToken", Value: token},
			expectedStatus: http.StatusOK,
			expectedUser:   user,
		},
		{
			name:           "Valid token in header",
			header:         "Bearer " + token,
			expectedStatus: http.StatusOK,
			expectedUser:   user,
		},
		{
			name:           "No token",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid token",
			cookie:         &http.Cookie{Name: "accessToken", Value: "invalid_token"},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "http://example.com", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler := NewAuth(jwtService, false).NeedAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got := GetUserFromContext(r)
				require.NotNil(t, got, "Auth should always propagate user thru context")
				assert.Equal(t, *tt.expectedUser, *got)
				assert.Equal(t, token, GetTokenFromContext(r))
				w.WriteHeader(http.StatusOK)
			}))
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code, "handler returned wrong status code")
		})
	}
}

func TestInvalidTokenClearsCookie(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: "garbage"})
	rr := httptest.NewRecorder()

	NewAuth(jwt_internal.New("k", time.Hour), true).NeedAuth()(http.NotFoundHandler()).ServeHTTP(rr, req)

	var cleared *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == "accessToken" {
			cleared = c
		}
	}
	require.NotNil(t, cleared)
	assert.Equal(t, "", cleared.Value)
	assert.True(t, cleared.Secure)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestGetUserFromContext(t *testing.T) {
	t.Run("no user in context", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		assert.Nil(t, GetUserFromContext(req))
		assert.Equal(t, "", GetTokenFromContext(req))
	})

	t.Run("user in context", func(t *testing.T) {
		user := &domain.User{Id: "u1", Email: "test@example.com"}
		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(WithUser(context.Background(), user, "tok"))

		assert.Equal(t, user, GetUserFromContext(req))
		assert.Equal(t, "tok", GetTokenFromContext(req))
	})
}
