package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hotelops/console/internal/api/handler"
	"github.com/hotelops/console/internal/core/domain"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps every domain failure kind to a deterministic HTTP status code.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "kind": "<kind>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, handler.ErrorBody) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, handler.ErrorBody{Error: fmt.Sprintf("%v", he.Message)}
	}

	kind := domain.Classify(err)
	switch kind {
	case domain.KindValidation:
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			return http.StatusUnprocessableEntity, handler.ErrorBody{Error: domain.UserMessage(err), Kind: string(kind)}
		}
		return http.StatusUnprocessableEntity, handler.ErrorBody{Error: err.Error(), Kind: string(kind)}
	case domain.KindNotFound:
		return http.StatusNotFound, handler.ErrorBody{Error: domain.UserMessage(err), Kind: string(kind)}
	case domain.KindPermissionDenied:
		return http.StatusForbidden, handler.ErrorBody{Error: domain.UserMessage(err), Kind: string(kind)}
	case domain.KindSchemaMissing:
		return http.StatusFailedDependency, handler.ErrorBody{Error: domain.UserMessage(err), Kind: string(kind)}
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized, handler.ErrorBody{Error: domain.UserMessage(err), Kind: string(kind)}
	case domain.KindTransport:
		log.Warn().Err(err).Str("method", c.Request().Method).Str("path", c.Path()).Msg("backend unavailable")
		return http.StatusBadGateway, handler.ErrorBody{Error: domain.UserMessage(err), Kind: string(kind)}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, handler.ErrorBody{Error: "internal server error", Kind: string(domain.KindUnknown)}
}
