package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Merger executes contact merges
type Merger interface {
	Merge(ctx context.Context, tenantID string, primaryID, secondaryID uuid.UUID, strategy *models.MergeStrategy) (*models.MergeResult, error)
	MergeBatch(ctx context.Context, tenantID string, primaryID uuid.UUID, secondaryIDs []uuid.UUID, strategy *models.MergeStrategy) (*models.BatchMergeResult, error)
}

// RecordCounter returns per-table counts of the records a contact owns
type RecordCounter interface {
	CountByContact(ctx context.Context, tenantID string, contactID uuid.UUID) (models.RecordCounts, error)
}

// MergeHandler handles merge requests
type MergeHandler struct {
	merger  Merger
	records RecordCounter
}

// NewMergeHandler creates a new merge handler
func NewMergeHandler(merger Merger, records RecordCounter) *MergeHandler {
	return &MergeHandler{
		merger:  merger,
		records: records,
	}
}

// RegisterRoutes registers the merge routes
func (h *MergeHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/contacts/:id/merge", h.Merge)
	g.POST("/contacts/:id/merge/batch", h.MergeBatch)
	g.GET("/contacts/:id/records/counts", h.RecordCounts)
}

// Merge handles POST /contacts/:id/merge. The path id is the primary; the
// body names the secondary to fold into it.
func (h *MergeHandler) Merge(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handlers.MergeHandler.Merge")
	defer span.End()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	primaryID, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	var req models.MergeRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return BadRequest(err.Error())
	}

	result, err := h.merger.Merge(ctx, tenantID, primaryID, req.SecondaryID, req.Strategy)
	if err != nil {
		return err
	}

	return SuccessResponse(c, result)
}

// MergeBatch handles POST /contacts/:id/merge/batch. Secondaries merge in
// order; the response reports partial success if a step fails.
func (h *MergeHandler) MergeBatch(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handlers.MergeHandler.MergeBatch")
	defer span.End()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	primaryID, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	var req models.BatchMergeRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return BadRequest(err.Error())
	}

	result, err := h.merger.MergeBatch(ctx, tenantID, primaryID, req.SecondaryIDs, req.Strategy)
	if err != nil {
		return err
	}

	return SuccessResponse(c, result)
}

// RecordCounts handles GET /contacts/:id/records/counts
func (h *MergeHandler) RecordCounts(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handlers.MergeHandler.RecordCounts")
	defer span.End()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	contactID, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	counts, err := h.records.CountByContact(ctx, tenantID, contactID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, counts)
}
