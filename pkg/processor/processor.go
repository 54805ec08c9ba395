// Package processor handles incoming contact intake messages. It upserts the
// contact, runs duplicate detection, and either auto-merges high-confidence
// matches or surfaces the candidates as an event for review.
package processor

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ContactStore is the contact persistence the processor needs
type ContactStore interface {
	Create(ctx context.Context, tenantID string, req models.CreateContactRequest) (*models.Contact, error)
	Update(ctx context.Context, tenantID string, id uuid.UUID, req models.UpdateContactRequest) (*models.Contact, error)
	FindByEmail(ctx context.Context, tenantID, email string) ([]models.Contact, error)
	FindByPhone(ctx context.Context, tenantID, phone string) ([]models.Contact, error)
}

// DuplicateFinder locates duplicate candidates for a subject contact
type DuplicateFinder interface {
	FindDuplicates(ctx context.Context, tenantID string, subject *models.Contact, excludeID *uuid.UUID) ([]models.DuplicateCandidate, error)
}

// Merger executes contact merges
type Merger interface {
	Merge(ctx context.Context, tenantID string, primaryID, secondaryID uuid.UUID, strategy *models.MergeStrategy) (*models.MergeResult, error)
}

// EventEmitter publishes contact lifecycle events
type EventEmitter interface {
	ContactCreated(ctx context.Context, contact *models.Contact, source string) error
	ContactUpdated(ctx context.Context, contact *models.Contact, source string) error
	ContactDuplicates(ctx context.Context, tenantID string, contactID uuid.UUID, candidates []models.DuplicateCandidate) error
}

// Config tunes intake-time duplicate handling
type Config struct {
	AutoMergeEnabled   bool
	AutoMergeThreshold float64
}

// Processor handles contact intake messages
type Processor struct {
	logger   ectologger.Logger
	contacts ContactStore
	finder   DuplicateFinder
	merger   Merger
	emitter  EventEmitter
	config   Config
}

// NewProcessor creates a new intake processor
func NewProcessor(logger ectologger.Logger, contacts ContactStore, finder DuplicateFinder, merger Merger, emitter EventEmitter, config Config) *Processor {
	return &Processor{
		logger:   logger,
		contacts: contacts,
		finder:   finder,
		merger:   merger,
		emitter:  emitter,
		config:   config,
	}
}

// ProcessMessage handles one intake message end to end
func (p *Processor) ProcessMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.ProcessMessage")
	defer span.End()

	payload := msg.Contact
	if payload == nil || !payload.HasIdentity() {
		p.logger.WithContext(ctx).WithFields(map[string]any{
			"topic":  msg.Topic,
			"offset": msg.Offset,
		}).Warn("Skipping intake message with no identifying fields")
		return nil
	}

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": payload.TenantID,
		"source":    msg.Source(),
	})

	contact, created, err := p.upsert(ctx, payload)
	if err != nil {
		return err
	}

	if created {
		if err := p.emitter.ContactCreated(ctx, contact, msg.Source()); err != nil {
			log.WithError(err).Error("Failed to emit created event")
		}
	} else {
		if err := p.emitter.ContactUpdated(ctx, contact, msg.Source()); err != nil {
			log.WithError(err).Error("Failed to emit updated event")
		}
	}

	candidates, err := p.finder.FindDuplicates(ctx, payload.TenantID, contact, nil)
	if err != nil {
		log.WithError(err).Error("Duplicate detection failed on intake")
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	if p.config.AutoMergeEnabled && candidates[0].Score >= p.config.AutoMergeThreshold {
		return p.autoMerge(ctx, contact, &candidates[0])
	}

	if err := p.emitter.ContactDuplicates(ctx, payload.TenantID, contact.ID, candidates); err != nil {
		log.WithError(err).Error("Failed to emit duplicates event")
	}
	return nil
}

// upsert finds an existing contact by normalized email or phone and backfills
// it, or creates a new one. Returns whether a contact was created.
func (p *Processor) upsert(ctx context.Context, payload *models.ContactIngestPayload) (*models.Contact, bool, error) {
	existing, err := p.findExisting(ctx, payload)
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		contact, err := p.contacts.Create(ctx, payload.TenantID, models.CreateContactRequest{
			FirstName:       payload.FirstName,
			LastName:        payload.LastName,
			Email:           payload.Email,
			Phone:           payload.Phone,
			Whatsapp:        payload.Whatsapp,
			Company:         payload.Company,
			JobTitle:        payload.JobTitle,
			Tags:            payload.Tags,
			CustomFields:    payload.CustomFields,
			LastContactedAt: payload.LastContactedAt,
		})
		if err != nil {
			return nil, false, err
		}
		return contact, true, nil
	}

	update := backfillRequest(existing, payload)
	contact, err := p.contacts.Update(ctx, payload.TenantID, existing.ID, update)
	if err != nil {
		return nil, false, err
	}
	return contact, false, nil
}

func (p *Processor) findExisting(ctx context.Context, payload *models.ContactIngestPayload) (*models.Contact, error) {
	if email := normalizers.NormalizeEmail(payload.Email); email != "" {
		matches, err := p.contacts.FindByEmail(ctx, payload.TenantID, email)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			return &matches[0], nil
		}
	}

	if phone := normalizers.NormalizePhone(payload.Phone); phone != "" {
		matches, err := p.contacts.FindByPhone(ctx, payload.TenantID, phone)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			return &matches[0], nil
		}
	}

	return nil, nil
}

// autoMerge merges the subject and its top candidate, keeping the older
// contact as the primary so references converge on the longest-lived record.
func (p *Processor) autoMerge(ctx context.Context, subject *models.Contact, candidate *models.DuplicateCandidate) error {
	primary, secondary := candidate.Contact, subject
	if subject.CreatedAt.Before(candidate.Contact.CreatedAt) {
		primary, secondary = subject, candidate.Contact
	}

	result, err := p.merger.Merge(ctx, subject.TenantID, primary.ID, secondary.ID, nil)
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":    subject.TenantID,
			"primary_id":   primary.ID,
			"secondary_id": secondary.ID,
			"score":        candidate.Score,
		}).Error("Auto-merge failed")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":    subject.TenantID,
		"primary_id":   result.Primary.ID,
		"secondary_id": result.SecondaryID,
		"score":        candidate.Score,
		"migrated":     result.Migrated.Total(),
	}).Info("Auto-merged duplicate contact")
	return nil
}

// backfillRequest builds an update that fills the existing contact's empty
// fields from the payload without overwriting populated ones.
func backfillRequest(existing *models.Contact, payload *models.ContactIngestPayload) models.UpdateContactRequest {
	var update models.UpdateContactRequest

	if existing.FirstName == "" && payload.FirstName != "" {
		update.FirstName = &payload.FirstName
	}
	if existing.LastName == "" && payload.LastName != "" {
		update.LastName = &payload.LastName
	}
	if existing.Email == "" && payload.Email != "" {
		update.Email = &payload.Email
	}
	if existing.Phone == "" && payload.Phone != "" {
		update.Phone = &payload.Phone
	}
	if existing.Whatsapp == "" && payload.Whatsapp != "" {
		update.Whatsapp = &payload.Whatsapp
	}
	if existing.Company == "" && payload.Company != "" {
		update.Company = &payload.Company
	}
	if existing.JobTitle == "" && payload.JobTitle != "" {
		update.JobTitle = &payload.JobTitle
	}
	if len(payload.Tags) > 0 {
		tags := unionTags(existing.Tags, payload.Tags)
		update.Tags = &tags
	}
	if len(payload.CustomFields) > 0 {
		merged := make(map[string]any, len(existing.CustomFields)+len(payload.CustomFields))
		for k, v := range payload.CustomFields {
			merged[k] = v
		}
		for k, v := range existing.CustomFields {
			merged[k] = v
		}
		update.CustomFields = &merged
	}
	if payload.LastContactedAt != nil {
		if existing.LastContactedAt == nil || payload.LastContactedAt.After(*existing.LastContactedAt) {
			update.LastContactedAt = payload.LastContactedAt
		}
	}

	return update
}

func unionTags(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	union := make([]string, 0, len(a)+len(b))
	for _, tags := range [][]string{a, b} {
		for _, tag := range tags {
			if tag != "" && !seen[tag] {
				seen[tag] = true
				union = append(union, tag)
			}
		}
	}
	return union
}
