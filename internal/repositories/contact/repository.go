// Package contact persists contacts and the indexed lookups duplicate
// detection is built on.
package contact

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Repository handles contact persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new contact repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new contact. The normalized email/phone columns are derived
// on write; duplicates are allowed and surfaced through duplicate detection.
func (r *Repository) Create(ctx context.Context, tenantID string, req models.CreateContactRequest) (*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Create")
	defer span.End()

	status := req.Status
	if status == "" {
		status = models.ContactStatusLead
	}
	if !status.IsValid() {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid contact status: %s", status)
	}

	now := time.Now().UTC()
	contact := models.Contact{
		ID:              uuid.New(),
		TenantID:        tenantID,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Phone:           req.Phone,
		Whatsapp:        req.Whatsapp,
		Company:         req.Company,
		JobTitle:        req.JobTitle,
		Status:          status,
		Tags:            req.Tags,
		CustomFields:    req.CustomFields,
		LastContactedAt: req.LastContactedAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	ib := contactStruct.InsertInto(contactTable, FromContact(&contact))
	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID}).Error("Failed to create contact")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create contact")
	}

	return &contact, nil
}

// Get retrieves a contact by id
func (r *Repository) Get(ctx context.Context, tenantID string, id uuid.UUID) (*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Get")
	defer span.End()

	sb := contactStruct.SelectFrom(contactTable)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("id", id.String()),
	)

	query, args := sb.Build()
	var row Row
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "contact %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "contact_id": id}).Error("Failed to get contact")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get contact")
	}

	contact := ToContact(&row)
	return &contact, nil
}

// List returns a page of the tenant's contacts, newest first, with the total count
func (r *Repository) List(ctx context.Context, tenantID string, page, pageSize int) ([]models.Contact, int, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	cb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	cb.Select("COUNT(*)")
	cb.From(contactTable)
	cb.Where(cb.Equal("tenant_id", tenantID))

	query, args := cb.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID}).Error("Failed to count contacts")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list contacts")
	}

	sb := contactStruct.SelectFrom(contactTable)
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("created_at DESC", "id ASC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args = sb.Build()
	var rows []Row
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID}).Error("Failed to list contacts")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list contacts")
	}

	return ToContacts(rows), total, nil
}

// Update applies the non-nil fields of the request to an existing contact
func (r *Repository) Update(ctx context.Context, tenantID string, id uuid.UUID, req models.UpdateContactRequest) (*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Update")
	defer span.End()

	contact, err := r.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	applyPatch(contact, req)
	if !contact.Status.IsValid() {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid contact status: %s", contact.Status)
	}
	contact.UpdatedAt = time.Now().UTC()

	if err := r.save(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// ApplyMerge writes the merged contact's full field set. Called inside the
// merge transaction; the write routes through the transaction on the context.
func (r *Repository) ApplyMerge(ctx context.Context, contact *models.Contact) error {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.ApplyMerge")
	defer span.End()

	contact.UpdatedAt = time.Now().UTC()
	return r.save(ctx, contact)
}

func (r *Repository) save(ctx context.Context, contact *models.Contact) error {
	ub := contactStruct.Update(contactTable, FromContact(contact))
	ub.Where(
		ub.Equal("tenant_id", contact.TenantID),
		ub.Equal("id", contact.ID.String()),
	)

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": contact.TenantID, "contact_id": contact.ID}).Error("Failed to update contact")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update contact")
	}
	return nil
}

// FindByEmail returns contacts whose normalized email matches. The email
// argument must already be normalized.
func (r *Repository) FindByEmail(ctx context.Context, tenantID, email string) ([]models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.FindByEmail")
	defer span.End()

	return r.findByNormalized(ctx, tenantID, "email_normalized", email)
}

// FindByPhone returns contacts whose normalized phone matches. The phone
// argument must already be normalized.
func (r *Repository) FindByPhone(ctx context.Context, tenantID, phone string) ([]models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.FindByPhone")
	defer span.End()

	return r.findByNormalized(ctx, tenantID, "phone_normalized", phone)
}

func (r *Repository) findByNormalized(ctx context.Context, tenantID, column, value string) ([]models.Contact, error) {
	sb := contactStruct.SelectFrom(contactTable)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal(column, value),
	)
	sb.OrderBy("created_at ASC", "id ASC")
	sb.Limit(50)

	query, args := sb.Build()
	var rows []Row
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "column": column}).Error("Failed to find contacts by normalized value")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find contacts")
	}
	return ToContacts(rows), nil
}

// ListRecent returns a bounded sample of the tenant's contacts for fuzzy name
// comparison, most recently contacted first.
func (r *Repository) ListRecent(ctx context.Context, tenantID string, limit int) ([]models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.ListRecent")
	defer span.End()

	sb := contactStruct.SelectFrom(contactTable)
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("last_contacted_at DESC NULLS LAST", "created_at DESC", "id ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	var rows []Row
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "limit": limit}).Error("Failed to list recent contacts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list contacts")
	}
	return ToContacts(rows), nil
}

// GetLocked selects the given contacts FOR UPDATE, in ascending id order so
// concurrent merges over the same pair acquire locks in the same order.
func (r *Repository) GetLocked(ctx context.Context, tenantID string, ids []uuid.UUID) ([]models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.GetLocked")
	defer span.End()

	idStrings := make([]string, 0, len(ids))
	for _, id := range ids {
		idStrings = append(idStrings, id.String())
	}

	sb := contactStruct.SelectFrom(contactTable)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.In("id", sqlbuilder.Flatten(idStrings)...),
	)
	sb.OrderBy("id ASC")
	sb.SQL("FOR UPDATE")

	query, args := sb.Build()
	var rows []Row
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "contact_ids": idStrings}).Error("Failed to lock contacts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to lock contacts")
	}
	return ToContacts(rows), nil
}

// DeleteReturning deletes the contact and reports whether the row existed.
// A false return means a concurrent merge already consumed it.
func (r *Repository) DeleteReturning(ctx context.Context, tenantID string, id uuid.UUID) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.DeleteReturning")
	defer span.End()

	query := `DELETE FROM contacts WHERE tenant_id = $1 AND id = $2 RETURNING id`
	var deletedID string
	if err := r.db.GetContext(ctx, &deletedID, query, tenantID, id.String()); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return false, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "contact_id": id}).Error("Failed to delete contact")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete contact")
	}
	return true, nil
}

func applyPatch(contact *models.Contact, req models.UpdateContactRequest) {
	if req.FirstName != nil {
		contact.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		contact.LastName = *req.LastName
	}
	if req.Email != nil {
		contact.Email = *req.Email
	}
	if req.Phone != nil {
		contact.Phone = *req.Phone
	}
	if req.Whatsapp != nil {
		contact.Whatsapp = *req.Whatsapp
	}
	if req.Company != nil {
		contact.Company = *req.Company
	}
	if req.JobTitle != nil {
		contact.JobTitle = *req.JobTitle
	}
	if req.Status != nil {
		contact.Status = *req.Status
	}
	if req.Tags != nil {
		contact.Tags = *req.Tags
	}
	if req.CustomFields != nil {
		contact.CustomFields = *req.CustomFields
	}
	if req.LastContactedAt != nil {
		contact.LastContactedAt = req.LastContactedAt
	}
}
