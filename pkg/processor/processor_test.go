package processor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
)

type fakeContacts struct {
	byEmail map[string][]models.Contact
	byPhone map[string][]models.Contact

	created []models.Contact
	updated []uuid.UUID
}

func (f *fakeContacts) Create(ctx context.Context, tenantID string, req models.CreateContactRequest) (*models.Contact, error) {
	contact := models.Contact{
		ID:        uuid.New(),
		TenantID:  tenantID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Company:   req.Company,
		Tags:      req.Tags,
		Status:    models.ContactStatusLead,
		CreatedAt: time.Now().UTC(),
	}
	f.created = append(f.created, contact)
	return &contact, nil
}

func (f *fakeContacts) Update(ctx context.Context, tenantID string, id uuid.UUID, req models.UpdateContactRequest) (*models.Contact, error) {
	f.updated = append(f.updated, id)
	contact := models.Contact{ID: id, TenantID: tenantID}
	if req.FirstName != nil {
		contact.FirstName = *req.FirstName
	}
	return &contact, nil
}

func (f *fakeContacts) FindByEmail(ctx context.Context, tenantID, email string) ([]models.Contact, error) {
	return f.byEmail[email], nil
}

func (f *fakeContacts) FindByPhone(ctx context.Context, tenantID, phone string) ([]models.Contact, error) {
	return f.byPhone[phone], nil
}

type fakeFinder struct {
	candidates []models.DuplicateCandidate
}

func (f *fakeFinder) FindDuplicates(ctx context.Context, tenantID string, subject *models.Contact, excludeID *uuid.UUID) ([]models.DuplicateCandidate, error) {
	return f.candidates, nil
}

type fakeMerger struct {
	calls [][2]uuid.UUID
}

func (f *fakeMerger) Merge(ctx context.Context, tenantID string, primaryID, secondaryID uuid.UUID, strategy *models.MergeStrategy) (*models.MergeResult, error) {
	f.calls = append(f.calls, [2]uuid.UUID{primaryID, secondaryID})
	return &models.MergeResult{
		Primary:     &models.Contact{ID: primaryID, TenantID: tenantID},
		SecondaryID: secondaryID,
		State:       models.MergeStateCompleted,
	}, nil
}

type fakeEvents struct {
	created    int
	updated    int
	duplicates int
}

func (f *fakeEvents) ContactCreated(ctx context.Context, contact *models.Contact, source string) error {
	f.created++
	return nil
}

func (f *fakeEvents) ContactUpdated(ctx context.Context, contact *models.Contact, source string) error {
	f.updated++
	return nil
}

func (f *fakeEvents) ContactDuplicates(ctx context.Context, tenantID string, contactID uuid.UUID, candidates []models.DuplicateCandidate) error {
	f.duplicates++
	return nil
}

type processorHarness struct {
	processor *Processor
	contacts  *fakeContacts
	finder    *fakeFinder
	merger    *fakeMerger
	events    *fakeEvents
}

func newProcessorHarness(cfg Config) *processorHarness {
	zapLogger, _ := zap.NewDevelopment()
	logger := zapadapter.NewZapEctoLogger(zapLogger, nil)

	contacts := &fakeContacts{
		byEmail: map[string][]models.Contact{},
		byPhone: map[string][]models.Contact{},
	}
	finder := &fakeFinder{}
	merger := &fakeMerger{}
	events := &fakeEvents{}

	return &processorHarness{
		processor: NewProcessor(logger, contacts, finder, merger, events, cfg),
		contacts:  contacts,
		finder:    finder,
		merger:    merger,
		events:    events,
	}
}

func intakeMessage(t *testing.T, payload models.ContactIngestPayload) *kafka.IncomingMessage {
	t.Helper()
	value, err := json.Marshal(payload)
	require.NoError(t, err)

	msg := &kafka.IncomingMessage{
		Value:   value,
		Headers: map[string]string{},
		Topic:   "contact-intake",
	}
	require.NoError(t, msg.ParseContact())
	return msg
}

func TestProcessMessage_CreatesNewContact(t *testing.T) {
	h := newProcessorHarness(Config{})

	msg := intakeMessage(t, models.ContactIngestPayload{
		TenantID:  "tenant-a",
		FirstName: "Jane",
		Email:     "jane@example.com",
		Source:    "webchat",
	})

	err := h.processor.ProcessMessage(context.Background(), msg)
	require.NoError(t, err)

	require.Len(t, h.contacts.created, 1)
	assert.Equal(t, "jane@example.com", h.contacts.created[0].Email)
	assert.Equal(t, 1, h.events.created)
	assert.Equal(t, 0, h.events.updated)
}

func TestProcessMessage_BackfillsExistingByEmail(t *testing.T) {
	h := newProcessorHarness(Config{})

	existing := models.Contact{ID: uuid.New(), TenantID: "tenant-a", Email: "jane@example.com"}
	h.contacts.byEmail["jane@example.com"] = []models.Contact{existing}

	msg := intakeMessage(t, models.ContactIngestPayload{
		TenantID:  "tenant-a",
		FirstName: "Jane",
		Email:     "Jane@Example.com", // matches after normalization
	})

	err := h.processor.ProcessMessage(context.Background(), msg)
	require.NoError(t, err)

	assert.Empty(t, h.contacts.created)
	assert.Equal(t, []uuid.UUID{existing.ID}, h.contacts.updated)
	assert.Equal(t, 1, h.events.updated)
}

func TestProcessMessage_SkipsPayloadWithoutIdentity(t *testing.T) {
	h := newProcessorHarness(Config{})

	msg := intakeMessage(t, models.ContactIngestPayload{
		TenantID: "tenant-a",
		Company:  "Acme",
	})

	err := h.processor.ProcessMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.Empty(t, h.contacts.created)
	assert.Empty(t, h.contacts.updated)
}

func TestProcessMessage_AutoMergeAboveThreshold(t *testing.T) {
	h := newProcessorHarness(Config{AutoMergeEnabled: true, AutoMergeThreshold: 0.95})

	older := models.Contact{
		ID:        uuid.New(),
		TenantID:  "tenant-a",
		CreatedAt: time.Now().UTC().Add(-24 * time.Hour),
	}
	h.finder.candidates = []models.DuplicateCandidate{
		{Contact: &older, Score: 1.0, Reasons: []string{models.MatchReasonExactEmail, models.MatchReasonExactPhone}},
	}

	msg := intakeMessage(t, models.ContactIngestPayload{
		TenantID:  "tenant-a",
		FirstName: "Jane",
		Email:     "jane@example.com",
		Phone:     "5551234567",
	})

	err := h.processor.ProcessMessage(context.Background(), msg)
	require.NoError(t, err)

	// the older contact is kept as the primary
	require.Len(t, h.merger.calls, 1)
	assert.Equal(t, older.ID, h.merger.calls[0][0])
	assert.Equal(t, h.contacts.created[0].ID, h.merger.calls[0][1])
	assert.Equal(t, 0, h.events.duplicates)
}

func TestProcessMessage_BelowAutoMergeEmitsDuplicates(t *testing.T) {
	h := newProcessorHarness(Config{AutoMergeEnabled: true, AutoMergeThreshold: 0.95})

	candidate := models.Contact{ID: uuid.New(), TenantID: "tenant-a", CreatedAt: time.Now().UTC()}
	h.finder.candidates = []models.DuplicateCandidate{
		{Contact: &candidate, Score: 0.8, Reasons: []string{models.MatchReasonExactPhone}},
	}

	msg := intakeMessage(t, models.ContactIngestPayload{
		TenantID:  "tenant-a",
		FirstName: "Jane",
		Phone:     "5551234567",
	})

	err := h.processor.ProcessMessage(context.Background(), msg)
	require.NoError(t, err)

	assert.Empty(t, h.merger.calls)
	assert.Equal(t, 1, h.events.duplicates)
}

func TestProcessMessage_AutoMergeDisabled(t *testing.T) {
	h := newProcessorHarness(Config{AutoMergeEnabled: false, AutoMergeThreshold: 0.95})

	candidate := models.Contact{ID: uuid.New(), TenantID: "tenant-a"}
	h.finder.candidates = []models.DuplicateCandidate{
		{Contact: &candidate, Score: 1.0, Reasons: []string{models.MatchReasonExactEmail}},
	}

	msg := intakeMessage(t, models.ContactIngestPayload{
		TenantID:  "tenant-a",
		FirstName: "Jane",
		Email:     "jane@example.com",
	})

	err := h.processor.ProcessMessage(context.Background(), msg)
	require.NoError(t, err)

	assert.Empty(t, h.merger.calls)
	assert.Equal(t, 1, h.events.duplicates)
}
