package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// MergeSide selects which contact a field override takes its value from
type MergeSide string

const (
	MergeSidePrimary   MergeSide = "primary"
	MergeSideSecondary MergeSide = "secondary"
)

// MergeStrategy controls field-level conflict resolution during a merge.
// With PreferPrimary set, a populated primary field wins and empty primary
// fields are backfilled from the secondary. FieldOverrides force a side for
// individual fields regardless of the default.
type MergeStrategy struct {
	PreferPrimary  bool                 `json:"prefer_primary"`
	FieldOverrides map[string]MergeSide `json:"field_overrides,omitempty"`
}

// UnmarshalJSON defaults prefer_primary to true when the key is omitted, so a
// strategy carrying only field overrides keeps the backfill semantics.
func (s *MergeStrategy) UnmarshalJSON(data []byte) error {
	type alias MergeStrategy
	decoded := alias(DefaultMergeStrategy())
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*s = MergeStrategy(decoded)
	return nil
}

// DefaultMergeStrategy is the strategy used when a merge request carries none
func DefaultMergeStrategy() MergeStrategy {
	return MergeStrategy{PreferPrimary: true}
}

// MergeState tracks the merge state machine. State transitions are
// REQUESTED -> VALIDATED -> MIGRATING -> FINALIZING -> COMPLETED, with FAILED
// reachable from any non-terminal state.
type MergeState string

const (
	MergeStateRequested  MergeState = "REQUESTED"
	MergeStateValidated  MergeState = "VALIDATED"
	MergeStateMigrating  MergeState = "MIGRATING"
	MergeStateFinalizing MergeState = "FINALIZING"
	MergeStateCompleted  MergeState = "COMPLETED"
	MergeStateFailed     MergeState = "FAILED"
)

// RecordCounts holds per-table counts of records owned by a contact
type RecordCounts struct {
	Messages          int64 `json:"messages" db:"messages"`
	Notes             int64 `json:"notes" db:"notes"`
	ScheduledMessages int64 `json:"scheduled_messages" db:"scheduled_messages"`
	AnalyticsEvents   int64 `json:"analytics_events" db:"analytics_events"`
}

// Total returns the sum across all owned-record tables
func (c RecordCounts) Total() int64 {
	return c.Messages + c.Notes + c.ScheduledMessages + c.AnalyticsEvents
}

// Add accumulates counts from another result
func (c RecordCounts) Add(other RecordCounts) RecordCounts {
	return RecordCounts{
		Messages:          c.Messages + other.Messages,
		Notes:             c.Notes + other.Notes,
		ScheduledMessages: c.ScheduledMessages + other.ScheduledMessages,
		AnalyticsEvents:   c.AnalyticsEvents + other.AnalyticsEvents,
	}
}

// MergeRequest is the request body for merging one contact into another
type MergeRequest struct {
	SecondaryID uuid.UUID      `json:"secondary_id" validate:"required"`
	Strategy    *MergeStrategy `json:"strategy,omitempty"`
}

// BatchMergeRequest merges several secondaries into the same primary, in order
type BatchMergeRequest struct {
	SecondaryIDs []uuid.UUID    `json:"secondary_ids" validate:"required,min=1"`
	Strategy     *MergeStrategy `json:"strategy,omitempty"`
}

// MergeResult is the outcome of a completed merge
type MergeResult struct {
	Primary     *Contact     `json:"primary"`
	SecondaryID uuid.UUID    `json:"secondary_id"`
	Migrated    RecordCounts `json:"migrated"`
	State       MergeState   `json:"state"`
}

// BatchMergeResult reports a batch merge, including partial success when a
// step fails. Merges completed before the failure are not rolled back.
type BatchMergeResult struct {
	Primary       *Contact     `json:"primary"`
	MergedCount   int          `json:"merged_count"`
	Migrated      RecordCounts `json:"migrated"`
	FailedID      *uuid.UUID   `json:"failed_id,omitempty"`
	FailureReason string       `json:"failure_reason,omitempty"`
}
