package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hotelops/console/internal/api/metrics"
	"github.com/hotelops/console/internal/api/middleware"
	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/service"
)

// CollectionHandler serves module records through the store bound to the
// caller's session.
type CollectionHandler struct {
	stores *service.StoreFactory
	log    zerolog.Logger
}

func NewCollectionHandler(stores *service.StoreFactory, log zerolog.Logger) *CollectionHandler {
	return &CollectionHandler{stores: stores, log: log}
}

// --- Request / Response types ---

type listResponse struct {
	Collection string          `json:"collection"`
	Backend    string          `json:"backend"`
	Records    []domain.Record `json:"records"`
}

type recordResponse struct {
	Backend string        `json:"backend"`
	Record  domain.Record `json:"record"`
}

// List handles GET /v1/collections/:collection.
//
// @Summary      List the records of a collection
// @Tags         collections
// @Produce      json
// @Security     BearerAuth
// @Param        collection  path      string  true  "Collection key (e.g. rooms)"
// @Success      200         {object}  listResponse
// @Failure      403         {object}  ErrorBody
// @Failure      404         {object}  ErrorBody
// @Failure      424         {object}  ErrorBody
// @Failure      502         {object}  ErrorBody
// @Router       /v1/collections/{collection} [get]
func (h *CollectionHandler) List(c echo.Context) error {
	store, err := h.store(c)
	if err != nil {
		return err
	}

	var records []domain.Record
	err = h.observe(c, store, "list", func(ctx context.Context) error {
		var err error
		records, err = store.List(ctx)
		return err
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse{
		Collection: store.Collection,
		Backend:    store.Backend.String(),
		Records:    records,
	})
}

// Create handles POST /v1/collections/:collection.
//
// @Summary      Create a record
// @Tags         collections
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        collection  path      string          true  "Collection key"
// @Param        body        body      map[string]any  true  "Record fields"
// @Success      201         {object}  recordResponse
// @Failure      403         {object}  ErrorBody
// @Failure      422         {object}  ErrorBody
// @Router       /v1/collections/{collection} [post]
func (h *CollectionHandler) Create(c echo.Context) error {
	m, err := moduleFromPath(c)
	if err != nil {
		return err
	}
	body, err := bindRecord(c)
	if err != nil {
		return err
	}
	if err := service.CheckRequired(m, body); err != nil {
		return err
	}
	store, err := h.store(c)
	if err != nil {
		return err
	}

	var created domain.Record
	err = h.observe(c, store, "create", func(ctx context.Context) error {
		var err error
		created, err = store.Create(ctx, body)
		return err
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, recordResponse{Backend: store.Backend.String(), Record: created})
}

// Update handles PATCH /v1/collections/:collection/:id.
//
// @Summary      Merge fields into a record
// @Tags         collections
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        collection  path      string          true  "Collection key"
// @Param        id          path      string          true  "Record id"
// @Param        body        body      map[string]any  true  "Fields to change"
// @Success      200         {object}  recordResponse
// @Failure      403         {object}  ErrorBody
// @Failure      404         {object}  ErrorBody
// @Router       /v1/collections/{collection}/{id} [patch]
func (h *CollectionHandler) Update(c echo.Context) error {
	body, err := bindRecord(c)
	if err != nil {
		return err
	}
	store, err := h.store(c)
	if err != nil {
		return err
	}

	var updated domain.Record
	err = h.observe(c, store, "update", func(ctx context.Context) error {
		var err error
		updated, err = store.Update(ctx, c.Param("id"), body)
		return err
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recordResponse{Backend: store.Backend.String(), Record: updated})
}

// Delete handles DELETE /v1/collections/:collection/:id.
//
// @Summary      Delete a record
// @Tags         collections
// @Security     BearerAuth
// @Param        collection  path  string  true  "Collection key"
// @Param        id          path  string  true  "Record id"
// @Success      204
// @Failure      403  {object}  ErrorBody
// @Failure      404  {object}  ErrorBody
// @Router       /v1/collections/{collection}/{id} [delete]
func (h *CollectionHandler) Delete(c echo.Context) error {
	store, err := h.store(c)
	if err != nil {
		return err
	}
	err = h.observe(c, store, "delete", func(ctx context.Context) error {
		return store.Delete(ctx, c.Param("id"))
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CollectionHandler) store(c echo.Context) (service.StoreHandle, error) {
	m, err := moduleFromPath(c)
	if err != nil {
		return service.StoreHandle{}, err
	}
	return h.stores.ForModule(m, middleware.SessionFrom(c).Demo())
}

// observe runs op with the request context and records its outcome.
func (h *CollectionHandler) observe(c echo.Context, store service.StoreHandle, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := fn(c.Request().Context())
	backend := store.Backend.String()

	metrics.StoreOperationDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = string(domain.Classify(err))
	}
	metrics.StoreOperationsTotal.WithLabelValues(store.Collection, backend, op, result).Inc()

	if err != nil {
		h.log.Debug().Err(err).Str("collection", store.Collection).Str("backend", backend).Str("op", op).Msg("store operation failed")
	}
	return err
}

func bindRecord(c echo.Context) (domain.Record, error) {
	body := domain.Record{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &body); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return body, nil
}
