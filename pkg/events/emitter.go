// Package events handles event emission for contact lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter handles event emission for Clover
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// ContactCreated emits a contact.created event
func (e *Emitter) ContactCreated(ctx context.Context, contact *models.Contact, source string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.ContactCreated")
	defer span.End()

	event := ContactCreatedEvent{
		BaseEvent: NewBaseEvent(EventTypeContactCreated, contact.TenantID),
		Contact:   contact,
		Source:    source,
	}

	return e.publish(ctx, event.BaseEvent, contact.ID.String(), event)
}

// ContactUpdated emits a contact.updated event
func (e *Emitter) ContactUpdated(ctx context.Context, contact *models.Contact, source string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.ContactUpdated")
	defer span.End()

	event := ContactUpdatedEvent{
		BaseEvent: NewBaseEvent(EventTypeContactUpdated, contact.TenantID),
		Contact:   contact,
		Source:    source,
	}

	return e.publish(ctx, event.BaseEvent, contact.ID.String(), event)
}

// ContactMerged emits a contact.merged event
func (e *Emitter) ContactMerged(ctx context.Context, tenantID string, primary *models.Contact, secondaryID uuid.UUID, migrated models.RecordCounts) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.ContactMerged")
	defer span.End()

	event := ContactMergedEvent{
		BaseEvent:   NewBaseEvent(EventTypeContactMerged, tenantID),
		Primary:     primary,
		SecondaryID: secondaryID.String(),
		Migrated:    migrated,
	}

	return e.publish(ctx, event.BaseEvent, primary.ID.String(), event)
}

// ContactDuplicates emits a contact.duplicates event for candidates that
// were detected on intake but not auto-merged
func (e *Emitter) ContactDuplicates(ctx context.Context, tenantID string, contactID uuid.UUID, candidates []models.DuplicateCandidate) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.ContactDuplicates")
	defer span.End()

	eventCandidates := make([]DuplicateCandidate, 0, len(candidates))
	for _, c := range candidates {
		eventCandidates = append(eventCandidates, DuplicateCandidate{
			ContactID: c.Contact.ID.String(),
			Score:     c.Score,
			Reasons:   c.Reasons,
		})
	}

	event := ContactDuplicatesEvent{
		BaseEvent:  NewBaseEvent(EventTypeContactDuplicates, tenantID),
		ContactID:  contactID.String(),
		Candidates: eventCandidates,
	}

	return e.publish(ctx, event.BaseEvent, contactID.String(), event)
}

func (e *Emitter) publish(ctx context.Context, base BaseEvent, contactID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	kafkaEvent := &kafka.ContactEvent{
		EventType: string(base.EventType),
		TenantID:  base.TenantID,
		ContactID: contactID,
		Data:      data,
		Timestamp: base.Timestamp,
	}

	if err := e.producer.PublishContactEvent(ctx, kafkaEvent); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": base.EventType,
			"contact_id": contactID,
		}).Error("Failed to emit contact event")
		return err
	}

	return nil
}
