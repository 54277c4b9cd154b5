package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hotelops/console/internal/api/metrics"
	"github.com/hotelops/console/internal/api/middleware"
	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/policy"
	"github.com/hotelops/console/internal/core/service"
)

const keepAliveInterval = 25 * time.Second

// SessionHandler exposes the effective role state of the caller's session.
type SessionHandler struct {
	log zerolog.Logger
}

func NewSessionHandler(log zerolog.Logger) *SessionHandler {
	return &SessionHandler{log: log}
}

// --- Request / Response types ---

type sessionResponse struct {
	Role       domain.Role              `json:"role,omitempty"`
	Loaded     bool                     `json:"loaded"`
	Phase      domain.Phase             `json:"phase"`
	Demo       bool                     `json:"demo"`
	Home       string                   `json:"home,omitempty"`
	Navigation []policy.NavigationEntry `json:"navigation"`
}

type guardRequest struct {
	Path string `query:"path" validate:"required,startswith=/"`
}

func newSessionResponse(session domain.SessionContext, st domain.EffectiveRoleState) sessionResponse {
	home, _ := policy.Home(st.Role)
	return sessionResponse{
		Role:       st.Role,
		Loaded:     st.Loaded,
		Phase:      st.Phase,
		Demo:       session.Demo(),
		Home:       home,
		Navigation: policy.NavigationFor(st.Role),
	}
}

// Get handles GET /v1/session.
//
// @Summary      Current session role state
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Param        X-Demo-Role  header    string  false  "Demo role for unauthenticated sessions"
// @Success      200          {object}  sessionResponse
// @Failure      401          {object}  ErrorBody
// @Router       /v1/session [get]
func (h *SessionHandler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, newSessionResponse(middleware.SessionFrom(c), middleware.RoleStateFrom(c)))
}

// Guard handles GET /v1/session/guard.
//
// @Summary      Evaluate the route guard for a path
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Param        path  query     string  true  "Current client path"
// @Success      200   {object}  policy.Decision
// @Failure      422   {object}  ErrorBody
// @Router       /v1/session/guard [get]
func (h *SessionHandler) Guard(c echo.Context) error {
	var req guardRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	d := service.Decide(middleware.RoleStateFrom(c), req.Path)
	if d.Redirect != "" {
		metrics.GuardRedirectsTotal.Inc()
	}
	return c.JSON(http.StatusOK, d)
}

// Events handles GET /v1/session/events as a server-sent event stream. The
// current state is sent first, then every change until the client leaves.
//
// @Summary      Stream role state changes
// @Tags         session
// @Produce      text/event-stream
// @Security     BearerAuth
// @Success      200  {object}  sessionResponse
// @Router       /v1/session/events [get]
func (h *SessionHandler) Events(c echo.Context) error {
	resolver := middleware.ResolverFrom(c)
	if resolver == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session not attached")
	}
	session := middleware.SessionFrom(c)

	states := make(chan domain.EffectiveRoleState, 8)
	unwatch := resolver.Watch(func(st domain.EffectiveRoleState) {
		select {
		case states <- st:
		default:
			// Slow client: drop the oldest pending state.
			select {
			case <-states:
			default:
			}
			states <- st
		}
	})
	defer unwatch()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, newSessionResponse(session, resolver.State())); err != nil {
		return nil
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case st := <-states:
			if err := writeEvent(w, newSessionResponse(session, st)); err != nil {
				h.log.Debug().Err(err).Msg("session stream closed")
				return nil
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func writeEvent(w *echo.Response, body sessionResponse) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: role\ndata: %s\n\n", data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
