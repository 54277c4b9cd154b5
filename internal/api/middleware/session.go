package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hotelops/console/internal/api/metrics"
	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/service"
)

// Session attaches the session's role resolver and waits up to timeout for
// its state to load. A state still pending after timeout is passed on as is,
// which denies every permission check.
func Session(reg *service.SessionRegistry, timeout time.Duration, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			resolver := reg.Acquire(SessionFrom(c))
			metrics.ActiveSessions.Set(float64(reg.Len()))

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			state, err := resolver.WaitLoaded(ctx)
			cancel()
			if err != nil {
				log.Warn().Err(err).Str("session", resolver.Session().Key()).Msg("role state not loaded")
			}

			c.Set(KeyResolver, resolver)
			c.Set(KeyRoleState, state)
			return next(c)
		}
	}
}

// ResolverFrom returns the resolver set by Session.
func ResolverFrom(c echo.Context) *service.RoleResolver {
	r, _ := c.Get(KeyResolver).(*service.RoleResolver)
	return r
}

// RoleStateFrom returns the role state captured by Session.
func RoleStateFrom(c echo.Context) domain.EffectiveRoleState {
	s, _ := c.Get(KeyRoleState).(domain.EffectiveRoleState)
	return s
}
