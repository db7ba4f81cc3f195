package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"user-auth-service/internal/model"
)

// AccessTokenCodec signs and verifies the short-lived stateless access
// tokens. A token carries only the user id; role and profile are looked
// up fresh on every authenticated request. There is no revocation list,
// so an issued token stays valid until its expiry even after logout.
type AccessTokenCodec struct {
	secret []byte
	ttl    time.Duration
}

func NewAccessTokenCodec(secret string, ttl time.Duration) *AccessTokenCodec {
	return &AccessTokenCodec{secret: []byte(secret), ttl: ttl}
}

func (c *AccessTokenCodec) Issue(userID string) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(c.ttl).Unix(),
	})

	return token.SignedString(c.secret)
}

// Verify returns the user id encoded in the token. Expired tokens fail
// with model.ErrTokenExpired, anything else with model.ErrInvalidToken.
func (c *AccessTokenCodec) Verify(tokenString string) (string, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, model.ErrInvalidToken
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", model.ErrTokenExpired
		}
		return "", model.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", model.ErrInvalidToken
	}

	userID, _ := claims["sub"].(string)
	if userID == "" {
		return "", model.ErrInvalidToken
	}

	return userID, nil
}
