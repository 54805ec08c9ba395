package models

import (
	"time"

	"github.com/google/uuid"
)

// ContactStatus is the lifecycle status of a contact
type ContactStatus string

const (
	ContactStatusLead         ContactStatus = "LEAD"
	ContactStatusActive       ContactStatus = "ACTIVE"
	ContactStatusInactive     ContactStatus = "INACTIVE"
	ContactStatusBlocked      ContactStatus = "BLOCKED"
	ContactStatusUnsubscribed ContactStatus = "UNSUBSCRIBED"
)

// IsValid reports whether the status is one of the known lifecycle states
func (s ContactStatus) IsValid() bool {
	switch s {
	case ContactStatusLead, ContactStatusActive, ContactStatusInactive, ContactStatusBlocked, ContactStatusUnsubscribed:
		return true
	}
	return false
}

// Contact is a person record owned by a tenant. Email and phone are stored
// normalized (lowercase email, E.164 phone) and are soft-unique: duplicates
// are allowed to exist and are resolved through merging.
type Contact struct {
	ID              uuid.UUID      `json:"id"`
	TenantID        string         `json:"tenant_id"`
	FirstName       string         `json:"first_name"`
	LastName        string         `json:"last_name"`
	Email           string         `json:"email,omitempty"`
	Phone           string         `json:"phone,omitempty"`
	Whatsapp        string         `json:"whatsapp,omitempty"`
	Company         string         `json:"company,omitempty"`
	JobTitle        string         `json:"job_title,omitempty"`
	Status          ContactStatus  `json:"status"`
	Tags            []string       `json:"tags"`
	CustomFields    map[string]any `json:"custom_fields"`
	LastContactedAt *time.Time     `json:"last_contacted_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// FullName returns "first last" with empty parts dropped
func (c *Contact) FullName() string {
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// CreateContactRequest is the request to create a contact
type CreateContactRequest struct {
	FirstName       string         `json:"first_name" validate:"required"`
	LastName        string         `json:"last_name"`
	Email           string         `json:"email,omitempty" validate:"omitempty,email"`
	Phone           string         `json:"phone,omitempty"`
	Whatsapp        string         `json:"whatsapp,omitempty"`
	Company         string         `json:"company,omitempty"`
	JobTitle        string         `json:"job_title,omitempty"`
	Status          ContactStatus  `json:"status,omitempty"`
	Tags            []string       `json:"tags,omitempty"`
	CustomFields    map[string]any `json:"custom_fields,omitempty"`
	LastContactedAt *time.Time     `json:"last_contacted_at,omitempty"`
}

// UpdateContactRequest is the request to update a contact. Nil fields are left unchanged.
type UpdateContactRequest struct {
	FirstName       *string         `json:"first_name,omitempty"`
	LastName        *string         `json:"last_name,omitempty"`
	Email           *string         `json:"email,omitempty" validate:"omitempty,email"`
	Phone           *string         `json:"phone,omitempty"`
	Whatsapp        *string         `json:"whatsapp,omitempty"`
	Company         *string         `json:"company,omitempty"`
	JobTitle        *string         `json:"job_title,omitempty"`
	Status          *ContactStatus  `json:"status,omitempty"`
	Tags            *[]string       `json:"tags,omitempty"`
	CustomFields    *map[string]any `json:"custom_fields,omitempty"`
	LastContactedAt *time.Time      `json:"last_contacted_at,omitempty"`
}

// ContactListResponse is a paginated list of contacts
type ContactListResponse struct {
	Items      []Contact `json:"items"`
	TotalCount int       `json:"total_count"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
}
