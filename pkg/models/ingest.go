package models

import "time"

// ContactIngestPayload is the normalized contact message that channel
// integrations publish to the intake topic.
type ContactIngestPayload struct {
	TenantID        string         `json:"tenant_id"`
	FirstName       string         `json:"first_name"`
	LastName        string         `json:"last_name"`
	Email           string         `json:"email,omitempty"`
	Phone           string         `json:"phone,omitempty"`
	Whatsapp        string         `json:"whatsapp,omitempty"`
	Company         string         `json:"company,omitempty"`
	JobTitle        string         `json:"job_title,omitempty"`
	Tags            []string       `json:"tags,omitempty"`
	CustomFields    map[string]any `json:"custom_fields,omitempty"`
	Source          string         `json:"source,omitempty"`
	LastContactedAt *time.Time     `json:"last_contacted_at,omitempty"`
}

// HasIdentity reports whether the payload carries at least one identifying
// field worth staging as a contact
func (p *ContactIngestPayload) HasIdentity() bool {
	return p.Email != "" || p.Phone != "" || p.FirstName != "" || p.LastName != ""
}
