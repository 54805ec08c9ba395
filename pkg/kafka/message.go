package kafka

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/Ramsey-B/clover/pkg/models"
)

// IncomingMessage wraps a raw Kafka message from the intake topic
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Contact is populated by ParseContact
	Contact *models.ContactIngestPayload
}

// ParseContact parses the message body as a contact intake payload. The
// tenant id may come from either the body or the tenant_id header.
func (m *IncomingMessage) ParseContact() error {
	var payload models.ContactIngestPayload
	if err := json.Unmarshal(m.Value, &payload); err != nil {
		return errors.Wrap(err, "failed to parse contact intake payload")
	}

	if payload.TenantID == "" {
		payload.TenantID = m.Headers["tenant_id"]
	}
	if payload.TenantID == "" {
		return errors.New("contact intake payload has no tenant_id")
	}

	m.Contact = &payload
	return nil
}

// Source returns the originating channel, falling back to the source header
func (m *IncomingMessage) Source() string {
	if m.Contact != nil && m.Contact.Source != "" {
		return m.Contact.Source
	}
	return m.Headers["source"]
}
