package handler

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/hotelops/console/internal/core/domain"
)

// moduleFromPath resolves the :collection path parameter against the module
// registry.
func moduleFromPath(c echo.Context) (domain.Module, error) {
	key := c.Param("collection")
	m, ok := domain.ModuleByKey(key)
	if !ok {
		return domain.Module{}, fmt.Errorf("collection %q: %w", key, domain.ErrUnknownCollection)
	}
	return m, nil
}

// CollectionResource names the permission resource of the :collection path parameter.
func CollectionResource(c echo.Context) (string, error) {
	m, err := moduleFromPath(c)
	if err != nil {
		return "", err
	}
	return m.Resource, nil
}

// ErrorBody is the canonical error envelope of every API error.
type ErrorBody struct {
	Error string `json:"error"`
	// Kind is the failure category, omitted for transport-level HTTP errors.
	Kind string `json:"kind,omitempty"`
}
