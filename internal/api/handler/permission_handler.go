package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hotelops/console/internal/api/metrics"
	"github.com/hotelops/console/internal/api/middleware"
	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/policy"
)

// PermissionHandler answers permission questions for the caller's role.
type PermissionHandler struct{}

func NewPermissionHandler() *PermissionHandler {
	return &PermissionHandler{}
}

// --- Request / Response types ---

type permissionCheckRequest struct {
	Action   string `query:"action"   validate:"required,oneof=read create update delete"`
	Resource string `query:"resource" validate:"required"`
}

type permissionCheckResponse struct {
	Role     domain.Role `json:"role,omitempty"`
	Action   string      `json:"action"`
	Resource string      `json:"resource"`
	Allowed  bool        `json:"allowed"`
}

type columnResponse struct {
	Name     string            `json:"name"`
	Label    string            `json:"label"`
	Type     domain.ColumnType `json:"type"`
	Required bool              `json:"required,omitempty"`
	Options  []string          `json:"options,omitempty"`
}

type moduleResponse struct {
	Title       string           `json:"title"`
	Collection  string           `json:"collection"`
	Resource    string           `json:"resource"`
	OwnerScoped bool             `json:"owner_scoped,omitempty"`
	Columns     []columnResponse `json:"columns"`
	Actions     []domain.Action  `json:"actions"`
}

// Check handles GET /v1/permissions/check.
//
// @Summary      Check a permission for the session role
// @Tags         permissions
// @Produce      json
// @Security     BearerAuth
// @Param        action    query     string  true  "read, create, update or delete"
// @Param        resource  query     string  true  "Resource name (e.g. rooms)"
// @Success      200       {object}  permissionCheckResponse
// @Failure      422       {object}  ErrorBody
// @Router       /v1/permissions/check [get]
func (h *PermissionHandler) Check(c echo.Context) error {
	var req permissionCheckRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	role := middleware.RoleStateFrom(c).Role
	allowed := policy.Can(role, domain.Action(req.Action), req.Resource)
	result := "deny"
	if allowed {
		result = "allow"
	}
	metrics.PermissionDecisionsTotal.WithLabelValues(req.Action, result).Inc()

	return c.JSON(http.StatusOK, permissionCheckResponse{
		Role:     role,
		Action:   req.Action,
		Resource: req.Resource,
		Allowed:  allowed,
	})
}

// Modules handles GET /v1/modules. Only modules the role may read are listed.
//
// @Summary      Modules visible to the session role
// @Tags         permissions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  moduleResponse
// @Router       /v1/modules [get]
func (h *PermissionHandler) Modules(c echo.Context) error {
	role := middleware.RoleStateFrom(c).Role
	out := []moduleResponse{}
	for _, m := range domain.Modules() {
		if !policy.Can(role, domain.ActionRead, m.Resource) {
			continue
		}
		out = append(out, toModuleResponse(role, m))
	}
	return c.JSON(http.StatusOK, out)
}

func toModuleResponse(role domain.Role, m domain.Module) moduleResponse {
	cols := make([]columnResponse, 0, len(m.Columns))
	for _, col := range m.Columns {
		cols = append(cols, columnResponse{
			Name:     col.Name,
			Label:    col.Label,
			Type:     col.Type,
			Required: col.Required,
			Options:  col.Options,
		})
	}
	actions := []domain.Action{}
	for _, a := range []domain.Action{domain.ActionRead, domain.ActionCreate, domain.ActionUpdate, domain.ActionDelete} {
		if policy.Can(role, a, m.Resource) {
			actions = append(actions, a)
		}
	}
	return moduleResponse{
		Title:       m.Title,
		Collection:  m.Key(),
		Resource:    m.Resource,
		OwnerScoped: m.OwnerScoped,
		Columns:     cols,
		Actions:     actions,
	}
}
