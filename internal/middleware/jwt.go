// Package middleware holds the echo middleware of the payment callback
// listener: bearer authentication for relayed notifications, role checks
// and a token bucket rate limiter.
package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	SubjectKey = "subject"
	RoleKey    = "role"
)

// JWTAuth returns a middleware that accepts only requests carrying an HS256
// bearer token signed with secret.  The token's "sub" and "role" claims are
// stored in the context under SubjectKey and RoleKey.  An empty secret
// rejects every request so that an unconfigured listener never trusts a
// relayed notification.
func JWTAuth(secret string) echo.MiddlewareFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "notifications are not accepted"})
			}
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims := jwt.MapClaims{}
			tok, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			sub, _ := claims.GetSubject()
			role, _ := claims["role"].(string)
			c.Set(SubjectKey, sub)
			c.Set(RoleKey, role)
			return next(c)
		}
	}
}
