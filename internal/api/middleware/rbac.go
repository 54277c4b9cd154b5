package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/hotelops/console/internal/api/metrics"
	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/policy"
)

// ResourceFunc names the permission resource a request touches.
type ResourceFunc func(c echo.Context) (string, error)

// Resource returns a ResourceFunc for a fixed resource.
func Resource(name string) ResourceFunc {
	return func(echo.Context) (string, error) { return name, nil }
}

// Permit lets the request through only if the session role may perform
// action on the resource. It must run after Session.
func Permit(action domain.Action, resource ResourceFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			name, err := resource(c)
			if err != nil {
				return err
			}
			role := RoleStateFrom(c).Role
			if !policy.Can(role, action, name) {
				metrics.PermissionDecisionsTotal.WithLabelValues(string(action), "deny").Inc()
				return fmt.Errorf("%s %s as %q: %w", action, name, role, domain.ErrPermissionDenied)
			}
			metrics.PermissionDecisionsTotal.WithLabelValues(string(action), "allow").Inc()
			return next(c)
		}
	}
}
