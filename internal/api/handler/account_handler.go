package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hotelops/console/internal/api/metrics"
	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/ports"
)

// AccountHandler assigns authoritative roles to accounts.
type AccountHandler struct {
	accounts ports.RoleWriter
	notifier ports.RoleChangePublisher
	log      zerolog.Logger
}

// NewAccountHandler returns a handler. accounts is nil when no account store
// is configured, in which case every assignment is refused.
func NewAccountHandler(accounts ports.RoleWriter, notifier ports.RoleChangePublisher, log zerolog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, notifier: notifier, log: log}
}

// --- Request / Response types ---

type setRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type setRoleResponse struct {
	Identity string      `json:"identity"`
	Role     domain.Role `json:"role"`
}

// SetRole handles PUT /v1/accounts/:identity/role.
//
// @Summary      Assign the role of an account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        identity  path      string          true  "Account identity (email)"
// @Param        body      body      setRoleRequest  true  "New role"
// @Success      200       {object}  setRoleResponse
// @Failure      401       {object}  ErrorBody
// @Failure      403       {object}  ErrorBody
// @Failure      422       {object}  ErrorBody
// @Failure      503       {object}  ErrorBody
// @Router       /v1/accounts/{identity}/role [put]
func (h *AccountHandler) SetRole(c echo.Context) error {
	if h.accounts == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "account store is not configured")
	}

	var req setRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	role, ok := domain.ParseRole(req.Role)
	if !ok {
		return &domain.ValidationError{Fields: []string{"role"}}
	}

	identity := strings.ToLower(strings.TrimSpace(c.Param("identity")))
	ctx := c.Request().Context()
	if err := h.accounts.SetRole(ctx, identity, role); err != nil {
		return err
	}
	metrics.RoleChangesTotal.WithLabelValues(string(role)).Inc()

	// The role is stored; a failed notification only delays live sessions
	// until their next lookup.
	if h.notifier != nil {
		if err := h.notifier.PublishRoleChange(ctx, identity); err != nil {
			h.log.Warn().Err(err).Str("identity", identity).Msg("role change notification failed")
		}
	}

	h.log.Info().Str("identity", identity).Str("role", string(role)).Msg("account role assigned")
	return c.JSON(http.StatusOK, setRoleResponse{Identity: identity, Role: role})
}
