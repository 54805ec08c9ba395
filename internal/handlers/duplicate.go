package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Finder locates duplicate candidates for a subject contact
type Finder interface {
	FindDuplicates(ctx context.Context, tenantID string, subject *models.Contact, excludeID *uuid.UUID) ([]models.DuplicateCandidate, error)
}

// DuplicateHandler handles duplicate detection requests
type DuplicateHandler struct {
	finder    Finder
	threshold float64
}

// NewDuplicateHandler creates a new duplicate handler
func NewDuplicateHandler(finder Finder, threshold float64) *DuplicateHandler {
	return &DuplicateHandler{
		finder:    finder,
		threshold: threshold,
	}
}

// RegisterRoutes registers the duplicate detection routes
func (h *DuplicateHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/contacts/duplicates/find", h.Find)
}

// Find handles POST /contacts/duplicates/find. The request body carries the
// fields of a real or prospective contact; the response lists qualified
// duplicate candidates in match order.
func (h *DuplicateHandler) Find(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handlers.DuplicateHandler.Find")
	defer span.End()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	var req models.FindDuplicatesRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return BadRequest(err.Error())
	}
	if req.Email == "" && req.Phone == "" && req.FirstName == "" && req.LastName == "" {
		return BadRequest("at least one of email, phone, or name is required")
	}

	subject := models.Contact{
		TenantID:  tenantID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Company:   req.Company,
	}

	candidates, err := h.finder.FindDuplicates(ctx, tenantID, &subject, req.ExcludeContactID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, models.FindDuplicatesResponse{
		Candidates: candidates,
		Threshold:  h.threshold,
	})
}
