// Package contactrecord manages the records owned by contacts: messages,
// notes, scheduled messages, and analytics events. Merges re-point them in
// bulk rather than row by row.
package contactrecord

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// The contact-owned record tables, in migration order
var recordTables = []string{
	"messages",
	"notes",
	"scheduled_messages",
	"analytics_events",
}

// Repository handles contact-owned record persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new contact record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ReassignAll re-points every record owned by fromID to toID with one bulk
// update per table, returning how many rows moved in each. Runs inside the
// caller's transaction when one is on the context.
func (r *Repository) ReassignAll(ctx context.Context, tenantID string, fromID, toID uuid.UUID) (models.RecordCounts, error) {
	ctx, span := tracing.StartSpan(ctx, "contactrecord.Repository.ReassignAll")
	defer span.End()

	var counts models.RecordCounts
	for _, table := range recordTables {
		moved, err := r.reassignTable(ctx, table, tenantID, fromID, toID)
		if err != nil {
			return models.RecordCounts{}, err
		}

		switch table {
		case "messages":
			counts.Messages = moved
		case "notes":
			counts.Notes = moved
		case "scheduled_messages":
			counts.ScheduledMessages = moved
		case "analytics_events":
			counts.AnalyticsEvents = moved
		}
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"from_id":   fromID,
		"to_id":     toID,
		"moved":     counts.Total(),
	}).Info("Reassigned contact records")

	return counts, nil
}

func (r *Repository) reassignTable(ctx context.Context, table, tenantID string, fromID, toID uuid.UUID) (int64, error) {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(ub.Assign("contact_id", toID.String()))
	ub.Where(
		ub.Equal("tenant_id", tenantID),
		ub.Equal("contact_id", fromID.String()),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "table": table, "from_id": fromID, "to_id": toID}).Error("Failed to reassign contact records")
		return 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to reassign %s", table)
	}

	moved, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "table": table}).Error("Failed to read reassigned row count")
		return 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to reassign %s", table)
	}
	return moved, nil
}

// CountByContact returns per-table counts of the records a contact owns
func (r *Repository) CountByContact(ctx context.Context, tenantID string, contactID uuid.UUID) (models.RecordCounts, error) {
	ctx, span := tracing.StartSpan(ctx, "contactrecord.Repository.CountByContact")
	defer span.End()

	var counts models.RecordCounts
	for _, table := range recordTables {
		sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
		sb.Select("COUNT(*)")
		sb.From(table)
		sb.Where(
			sb.Equal("tenant_id", tenantID),
			sb.Equal("contact_id", contactID.String()),
		)

		query, args := sb.Build()
		var count int64
		if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "table": table, "contact_id": contactID}).Error("Failed to count contact records")
			return models.RecordCounts{}, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to count %s", table)
		}

		switch table {
		case "messages":
			counts.Messages = count
		case "notes":
			counts.Notes = count
		case "scheduled_messages":
			counts.ScheduledMessages = count
		case "analytics_events":
			counts.AnalyticsEvents = count
		}
	}

	return counts, nil
}
