package jwt

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/studcollab/looped/shared/domain"
	internal_errors "github.com/studcollab/looped/shared/errors"
	"github.com/studcollab/looped/shared/logger"
)

type JwtService interface {
	NewToken(user domain.User) (string, error)
	DecodeToken(jwtStr string) (*jwt.Token, error)
	User(jwtStr string) (domain.User, error)
}

// Jwt decodes session tokens issued by the backend. With an empty secret the
// signature is not checked: the backend stays the authority and rejects
// forged tokens on the first forwarded call.
type Jwt struct {
	secretKey string
	ttl       time.Duration
}

func New(secretKey string, ttl time.Duration) JwtService {
	return &Jwt{secretKey, ttl}
}

func (j *Jwt) NewToken(user domain.User) (string, error) {
	if j.secretKey == "" {
		return "", errors.New("Can't create token without a key")
	}
	claims := jwt.MapClaims{}
	claims["uid"] = user.Id
	claims["email"] = user.Email
	claims["name"] = user.Name
	claims["exp"] = time.Now().Add(j.ttl).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		logger.Log.Error("failed to sign token", "error", err)
		return "", errors.New("Can't create token")
	}

	return tokenString, nil
}

func (j *Jwt) DecodeToken(jwtStr string) (*jwt.Token, error) {
	if j.secretKey == "" {
		token, _, err := jwt.NewParser().ParseUnverified(jwtStr, jwt.MapClaims{})
		if err != nil {
			return nil, &internal_errors.ErrorWithStatusCode{Message: "Malformed token", StatusCode: http.StatusUnauthorized}
		}
		if exp, err := token.Claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(time.Now()) {
			return nil, &internal_errors.ErrorWithStatusCode{Message: "Token expired", StatusCode: http.StatusUnauthorized}
		}
		return token, nil
	}

	token, err := jwt.Parse(jwtStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, &internal_errors.ErrorWithStatusCode{Message: fmt.Sprintf("Unexpected signing method: %v", token.Header["alg"]), StatusCode: http.StatusUnauthorized}
		}
		return []byte(j.secretKey), nil
	})
	if err != nil {
		logger.Log.Debug("token rejected", "error", err)
		return nil, &internal_errors.ErrorWithStatusCode{Message: "Invalid token signature", StatusCode: http.StatusUnauthorized}
	}

	if !token.Valid {
		return nil, &internal_errors.ErrorWithStatusCode{Message: "Invalid access token", StatusCode: http.StatusUnauthorized}
	}

	return token, nil
}

// User decodes the token and maps its claims to the session identity.
// uid may be numeric or a string depending on the backend version.
func (j *Jwt) User(jwtStr string) (domain.User, error) {
	token, err := j.DecodeToken(jwtStr)
	if err != nil {
		return domain.User{}, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.User{}, ErrInvalidClaims
	}

	var user domain.User
	switch uid := claims["uid"].(type) {
	case string:
		user.Id = uid
	case float64:
		user.Id = fmt.Sprintf("%.0f", uid)
	}
	if user.Id == "" {
		if sub, err := claims.GetSubject(); err == nil {
			user.Id = sub
		}
	}
	user.Email, _ = claims["email"].(string)
	user.Name, _ = claims["name"].(string)
	if user.Id == "" || user.Email == "" {
		return domain.User{}, ErrInvalidClaims
	}
	return user, nil
}

var ErrInvalidClaims = &internal_errors.ErrorWithStatusCode{Message: "Invalid token claims", StatusCode: http.StatusUnauthorized}
