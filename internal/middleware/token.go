package middleware

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RelayToken is a signed bearer token for the notification route along
// with its expiry.
type RelayToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewRelayToken signs an HS256 JWT that JWTAuth and RequireRole(RelayRole)
// accept.  The token carries sub, role, exp and iat claims.
func NewRelayToken(secret, subject string, ttl time.Duration) (RelayToken, error) {
	if secret == "" {
		return RelayToken{}, errors.New("relay token: empty secret")
	}
	if ttl <= 0 {
		return RelayToken{}, errors.New("relay token: ttl must be positive")
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": RelayRole,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return RelayToken{}, err
	}
	return RelayToken{Token: signed, Exp: exp}, nil
}
