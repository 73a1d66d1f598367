package middleware

import (
	"context"
	"net/http"

	"github.com/studcollab/looped/shared/domain"
	jwt_internal "github.com/studcollab/looped/shared/jwt"
	"github.com/studcollab/looped/shared/logger"
	"github.com/studcollab/looped/shared/utils"
)

const AccessTokenCookie = "accessToken"

// Key to store the user claims in the request context
type key int

const (
	UserClaimsKey key = iota
	AccessTokenKey
)

// Auth resolves the signed-in user from the session token. The raw token is
// kept in the context so handlers can forward it to the backend.
type Auth struct {
	jwtService    jwt_internal.JwtService
	secureCookies bool
}

func NewAuth(jwtService jwt_internal.JwtService, secureCookies bool) *Auth {
	return &Auth{
		jwtService:    jwtService,
		secureCookies: secureCookies,
	}
}

// NeedAuth returns middleware that requires authentication
func (a *Auth) NeedAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				http.Error(w, "Please sign-in", http.StatusUnauthorized)
				return
			}
			user, err := a.jwtService.User(token)
			if err != nil {
				logger.Log.Debug("session token rejected", "error", err)
				a.ClearCookie(w)
				utils.WriteErrorAndStatusCode(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), &user, token)))
		})
	}
}

// SetCookie stores token for browser clients.
func (a *Auth) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     AccessTokenCookie,
		Value:    token,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *Auth) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     AccessTokenCookie,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *Auth) Decode(token string) (domain.User, error) {
	return a.jwtService.User(token)
}

// TokenFromRequest prefers the cookie (browser clients) over the
// Authorization header (API clients).
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return utils.BearerToken(r)
}

func WithUser(ctx context.Context, user *domain.User, token string) context.Context {
	ctx = context.WithValue(ctx, UserClaimsKey, user)
	return context.WithValue(ctx, AccessTokenKey, token)
}

// GetUserFromContext retrieves the user from the context
func GetUserFromContext(r *http.Request) *domain.User {
	user, ok := r.Context().Value(UserClaimsKey).(*domain.User)
	if !ok {
		return nil
	}
	return user
}

func GetTokenFromContext(r *http.Request) string {
	token, _ := r.Context().Value(AccessTokenKey).(string)
	return token
}
