package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/hotelops/console/internal/core/domain"
)

// HeaderDemoRole carries the client-asserted role of an unauthenticated demo session.
const HeaderDemoRole = "X-Demo-Role"

// Context keys set by this package.
const (
	KeySession   = "session"
	KeyResolver  = "resolver"
	KeyRoleState = "role_state"
)

// Auth resolves the caller's session. A request without an Authorization
// header is anonymous, or a demo session when it carries HeaderDemoRole. A
// bearer token always wins over the demo header; a bad token is rejected.
// Role claims inside the token are ignored, roles come from the account store.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var session domain.SessionContext

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				session.DemoRole = strings.TrimSpace(c.Request().Header.Get(HeaderDemoRole))
			} else {
				identity, err := identityFromHeader(authHeader, jwtSecret)
				if err != nil {
					return err
				}
				session.Identity = identity
				req := c.Request()
				c.SetRequest(req.WithContext(domain.ContextWithIdentity(req.Context(), identity)))
			}

			c.Set(KeySession, session)
			return next(c)
		}
	}
}

func identityFromHeader(authHeader, jwtSecret string) (string, error) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}
	if jwtSecret == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "token authentication is not configured")
	}

	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !tkn.Valid {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	identity, _ := claims["email"].(string)
	if identity == "" {
		identity, _ = claims.GetSubject()
	}
	identity = strings.ToLower(strings.TrimSpace(identity))
	if identity == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "token missing identity")
	}
	return identity, nil
}

// SessionFrom returns the session set by Auth.
func SessionFrom(c echo.Context) domain.SessionContext {
	s, _ := c.Get(KeySession).(domain.SessionContext)
	return s
}

// Authenticated rejects demo and anonymous sessions. A demo role is a client
// claim and never authorises writes to the account store.
func Authenticated() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !SessionFrom(c).Authenticated() {
				return fmt.Errorf("%s %s: %w", c.Request().Method, c.Path(), domain.ErrUnauthenticated)
			}
			return next(c)
		}
	}
}
