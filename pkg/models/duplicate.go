package models

import "github.com/google/uuid"

// Match reason codes reported by the similarity scorer
const (
	MatchReasonExactEmail   = "exact-email"
	MatchReasonExactPhone   = "exact-phone"
	MatchReasonFuzzyName    = "fuzzy-name"
	MatchReasonCompanyMatch = "company-match"
)

// DuplicateCandidate is an ephemeral pairing of a contact with its similarity
// score against a subject contact. Candidates are never persisted; they are
// recomputed on every lookup and re-validated by the merge executor.
type DuplicateCandidate struct {
	Contact *Contact `json:"contact"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// FindDuplicatesRequest is the identity tuple to search duplicates for.
// ExcludeContactID removes a known contact (usually the subject itself)
// from the results.
type FindDuplicatesRequest struct {
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	Email            string     `json:"email,omitempty" validate:"omitempty,email"`
	Phone            string     `json:"phone,omitempty"`
	Company          string     `json:"company,omitempty"`
	ExcludeContactID *uuid.UUID `json:"exclude_contact_id,omitempty"`
}

// FindDuplicatesResponse is the ordered candidate list for a lookup
type FindDuplicatesResponse struct {
	Candidates []DuplicateCandidate `json:"candidates"`
	Threshold  float64              `json:"threshold"`
}
