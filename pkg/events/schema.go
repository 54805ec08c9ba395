package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/models"
)

// EventType defines the type of event
type EventType string

const (
	EventTypeContactCreated    EventType = "contact.created"
	EventTypeContactUpdated    EventType = "contact.updated"
	EventTypeContactMerged     EventType = "contact.merged"
	EventTypeContactDuplicates EventType = "contact.duplicates"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	TenantID      string    `json:"tenant_id"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// ContactCreatedEvent is emitted when a new contact is created
type ContactCreatedEvent struct {
	BaseEvent
	Contact *models.Contact `json:"contact"`
	Source  string          `json:"source,omitempty"`
}

// ContactUpdatedEvent is emitted when a contact is updated
type ContactUpdatedEvent struct {
	BaseEvent
	Contact *models.Contact `json:"contact"`
	Source  string          `json:"source,omitempty"`
}

// ContactMergedEvent is emitted after a merge commits. The secondary contact
// no longer exists when this event is published.
type ContactMergedEvent struct {
	BaseEvent
	Primary     *models.Contact     `json:"primary"`
	SecondaryID string              `json:"secondary_id"`
	Migrated    models.RecordCounts `json:"migrated"`
}

// ContactDuplicatesEvent is emitted when intake finds duplicate candidates
// that were not auto-merged
type ContactDuplicatesEvent struct {
	BaseEvent
	ContactID  string               `json:"contact_id"`
	Candidates []DuplicateCandidate `json:"candidates"`
}

// DuplicateCandidate is the event-side view of a duplicate candidate
type DuplicateCandidate struct {
	ContactID string   `json:"contact_id"`
	Score     float64  `json:"score"`
	Reasons   []string `json:"reasons"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType, tenantID string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		TenantID:      tenantID,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}
