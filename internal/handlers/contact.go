package handlers

import (
	"context"
	"strconv"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var validate = validator.New()

// ContactRepo is the contact persistence the handlers need
type ContactRepo interface {
	Create(ctx context.Context, tenantID string, req models.CreateContactRequest) (*models.Contact, error)
	Get(ctx context.Context, tenantID string, id uuid.UUID) (*models.Contact, error)
	List(ctx context.Context, tenantID string, page, pageSize int) ([]models.Contact, int, error)
	Update(ctx context.Context, tenantID string, id uuid.UUID, req models.UpdateContactRequest) (*models.Contact, error)
}

// ContactEmitter publishes contact lifecycle events. May be nil when event
// publishing is disabled.
type ContactEmitter interface {
	ContactCreated(ctx context.Context, contact *models.Contact, source string) error
	ContactUpdated(ctx context.Context, contact *models.Contact, source string) error
}

// ContactHandler handles contact CRUD requests
type ContactHandler struct {
	repo    ContactRepo
	emitter ContactEmitter
	logger  ectologger.Logger
}

// NewContactHandler creates a new contact handler
func NewContactHandler(repo ContactRepo, emitter ContactEmitter, logger ectologger.Logger) *ContactHandler {
	return &ContactHandler{
		repo:    repo,
		emitter: emitter,
		logger:  logger,
	}
}

// RegisterRoutes registers the contact routes
func (h *ContactHandler) RegisterRoutes(g *echo.Group) {
	contacts := g.Group("/contacts")
	contacts.POST("", h.Create)
	contacts.GET("", h.List)
	contacts.GET("/:id", h.Get)
	contacts.PUT("/:id", h.Update)
}

// Create handles POST /contacts
func (h *ContactHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handlers.ContactHandler.Create")
	defer span.End()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	var req models.CreateContactRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return BadRequest(err.Error())
	}

	contact, err := h.repo.Create(ctx, tenantID, req)
	if err != nil {
		return err
	}

	if h.emitter != nil {
		if err := h.emitter.ContactCreated(ctx, contact, "api"); err != nil {
			h.logger.WithContext(ctx).WithError(err).Error("Failed to emit created event")
		}
	}

	return CreatedResponse(c, contact)
}

// List handles GET /contacts
func (h *ContactHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handlers.ContactHandler.List")
	defer span.End()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	items, total, err := h.repo.List(ctx, tenantID, page, pageSize)
	if err != nil {
		return err
	}

	return SuccessResponse(c, models.ContactListResponse{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Get handles GET /contacts/:id
func (h *ContactHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handlers.ContactHandler.Get")
	defer span.End()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	contact, err := h.repo.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, contact)
}

// Update handles PUT /contacts/:id
func (h *ContactHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "handlers.ContactHandler.Update")
	defer span.End()

	tenantID, err := GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	var req models.UpdateContactRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return BadRequest(err.Error())
	}

	contact, err := h.repo.Update(ctx, tenantID, id, req)
	if err != nil {
		return err
	}

	if h.emitter != nil {
		if err := h.emitter.ContactUpdated(ctx, contact, "api"); err != nil {
			h.logger.WithContext(ctx).WithError(err).Error("Failed to emit updated event")
		}
	}

	return SuccessResponse(c, contact)
}
