package merging

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ContactStore is the contact persistence the executor needs. GetLocked must
// acquire row locks in ascending id order so concurrent merges over the same
// pair cannot deadlock. DeleteReturning reports whether the row still existed;
// a false return means another merge already consumed the contact.
type ContactStore interface {
	GetLocked(ctx context.Context, tenantID string, ids []uuid.UUID) ([]models.Contact, error)
	ApplyMerge(ctx context.Context, contact *models.Contact) error
	DeleteReturning(ctx context.Context, tenantID string, id uuid.UUID) (bool, error)
}

// RecordStore re-points records owned by one contact to another
type RecordStore interface {
	ReassignAll(ctx context.Context, tenantID string, fromID, toID uuid.UUID) (models.RecordCounts, error)
}

// MergeEmitter publishes the merged event after the transaction commits
type MergeEmitter interface {
	ContactMerged(ctx context.Context, tenantID string, primary *models.Contact, secondaryID uuid.UUID, migrated models.RecordCounts) error
}

// Executor runs contact merges. Each merge is a single database transaction:
// either the secondary's records are all re-pointed, the primary updated, and
// the secondary deleted, or nothing changes.
type Executor struct {
	db       database.DB
	contacts ContactStore
	records  RecordStore
	emitter  MergeEmitter
	logger   ectologger.Logger
}

// NewExecutor creates a merge executor. The emitter may be nil when event
// publishing is disabled.
func NewExecutor(db database.DB, contacts ContactStore, records RecordStore, emitter MergeEmitter, logger ectologger.Logger) *Executor {
	return &Executor{
		db:       db,
		contacts: contacts,
		records:  records,
		emitter:  emitter,
		logger:   logger,
	}
}

// Merge merges the secondary contact into the primary. The secondary's owned
// records are re-pointed, its fields folded into the primary per the strategy,
// and the secondary row deleted, all in one transaction.
func (e *Executor) Merge(ctx context.Context, tenantID string, primaryID, secondaryID uuid.UUID, strategy *models.MergeStrategy) (*models.MergeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Executor.Merge")
	defer span.End()

	state := models.MergeStateRequested

	if primaryID == secondaryID {
		return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, "a contact cannot be merged into itself")
	}

	if strategy == nil {
		defaultStrategy := models.DefaultMergeStrategy()
		strategy = &defaultStrategy
	}

	ctx, tx, err := e.db.GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to begin merge transaction")
	}
	defer tx.Rollback(ctx)

	result, err := e.mergeInTx(ctx, tenantID, primaryID, secondaryID, *strategy, &state)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":    tenantID,
			"primary_id":   primaryID,
			"secondary_id": secondaryID,
			"merge_state":  string(state),
		}).Error("Merge failed")
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit merge transaction")
	}
	state = models.MergeStateCompleted
	result.State = state

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":      tenantID,
		"primary_id":     primaryID,
		"secondary_id":   secondaryID,
		"migrated_total": result.Migrated.Total(),
	}).Info("Merge completed")

	// events are best-effort once the merge is durable
	if e.emitter != nil {
		if err := e.emitter.ContactMerged(ctx, tenantID, result.Primary, secondaryID, result.Migrated); err != nil {
			e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"tenant_id":    tenantID,
				"primary_id":   primaryID,
				"secondary_id": secondaryID,
			}).Error("Failed to publish merged event")
		}
	}

	return result, nil
}

func (e *Executor) mergeInTx(ctx context.Context, tenantID string, primaryID, secondaryID uuid.UUID, strategy models.MergeStrategy, state *models.MergeState) (*models.MergeResult, error) {
	locked, err := e.contacts.GetLocked(ctx, tenantID, []uuid.UUID{primaryID, secondaryID})
	if err != nil {
		return nil, err
	}

	var primary, secondary *models.Contact
	for i := range locked {
		switch locked[i].ID {
		case primaryID:
			primary = &locked[i]
		case secondaryID:
			secondary = &locked[i]
		}
	}
	if primary == nil {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "contact %s not found", primaryID)
	}
	if secondary == nil {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "contact %s not found", secondaryID)
	}
	*state = models.MergeStateValidated

	*state = models.MergeStateMigrating
	migrated, err := e.records.ReassignAll(ctx, tenantID, secondaryID, primaryID)
	if err != nil {
		return nil, err
	}

	*state = models.MergeStateFinalizing
	merged := ResolveFields(primary, secondary, strategy)
	if err := e.contacts.ApplyMerge(ctx, &merged); err != nil {
		return nil, err
	}

	deleted, err := e.contacts.DeleteReturning(ctx, tenantID, secondaryID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		// another merge consumed the secondary between our read and delete
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "contact %s was merged by a concurrent request", secondaryID)
	}

	return &models.MergeResult{
		Primary:     &merged,
		SecondaryID: secondaryID,
		Migrated:    migrated,
		State:       *state,
	}, nil
}

// MergeBatch merges each secondary into the primary in order, stopping at the
// first failure. Completed merges stay committed; the result reports how far
// the batch got and why it stopped.
func (e *Executor) MergeBatch(ctx context.Context, tenantID string, primaryID uuid.UUID, secondaryIDs []uuid.UUID, strategy *models.MergeStrategy) (*models.BatchMergeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Executor.MergeBatch")
	defer span.End()

	result := &models.BatchMergeResult{}

	for _, secondaryID := range secondaryIDs {
		mergeResult, err := e.Merge(ctx, tenantID, primaryID, secondaryID, strategy)
		if err != nil {
			failedID := secondaryID
			result.FailedID = &failedID
			result.FailureReason = err.Error()

			// nothing merged yet means the whole batch failed
			if result.MergedCount == 0 {
				return result, err
			}

			e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"tenant_id":    tenantID,
				"primary_id":   primaryID,
				"secondary_id": secondaryID,
				"merged_count": result.MergedCount,
			}).Warn("Batch merge stopped on failure")
			return result, nil
		}

		result.Primary = mergeResult.Primary
		result.MergedCount++
		result.Migrated = result.Migrated.Add(mergeResult.Migrated)
	}

	return result, nil
}
