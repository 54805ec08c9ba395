// Package merging implements contact field resolution and the merge executor
package merging

import (
	"sort"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Mergeable scalar field names accepted in strategy overrides
const (
	FieldFirstName       = "first_name"
	FieldLastName        = "last_name"
	FieldEmail           = "email"
	FieldPhone           = "phone"
	FieldWhatsapp        = "whatsapp"
	FieldCompany         = "company"
	FieldJobTitle        = "job_title"
	FieldStatus          = "status"
	FieldLastContactedAt = "last_contacted_at"
)

// ResolveFields merges the secondary contact's fields into a copy of the
// primary, per the strategy. It is pure: neither input is mutated and no I/O
// happens. Identity (id, tenant, created_at) always comes from the primary.
//
// Scalars follow prefer-primary with backfill: a populated primary value wins,
// an empty one is filled from the secondary. Field overrides force a side.
// Tags are a set union, customFields merge key-wise with primary winning
// collisions, and last_contacted_at keeps the most recent of the two.
func ResolveFields(primary, secondary *models.Contact, strategy models.MergeStrategy) models.Contact {
	merged := *primary

	merged.FirstName = resolveScalar(FieldFirstName, primary.FirstName, secondary.FirstName, strategy)
	merged.LastName = resolveScalar(FieldLastName, primary.LastName, secondary.LastName, strategy)
	merged.Email = resolveScalar(FieldEmail, primary.Email, secondary.Email, strategy)
	merged.Phone = resolveScalar(FieldPhone, primary.Phone, secondary.Phone, strategy)
	merged.Whatsapp = resolveScalar(FieldWhatsapp, primary.Whatsapp, secondary.Whatsapp, strategy)
	merged.Company = resolveScalar(FieldCompany, primary.Company, secondary.Company, strategy)
	merged.JobTitle = resolveScalar(FieldJobTitle, primary.JobTitle, secondary.JobTitle, strategy)
	merged.Status = models.ContactStatus(resolveScalar(FieldStatus, string(primary.Status), string(secondary.Status), strategy))
	merged.LastContactedAt = resolveLastContacted(primary, secondary, strategy)
	merged.Tags = unionTags(primary.Tags, secondary.Tags)
	merged.CustomFields = mergeCustomFields(primary.CustomFields, secondary.CustomFields)

	return merged
}

func resolveScalar(field, primaryVal, secondaryVal string, strategy models.MergeStrategy) string {
	if side, ok := strategy.FieldOverrides[field]; ok {
		if side == models.MergeSideSecondary {
			return secondaryVal
		}
		return primaryVal
	}

	if !strategy.PreferPrimary {
		if secondaryVal != "" {
			return secondaryVal
		}
		return primaryVal
	}

	if primaryVal != "" {
		return primaryVal
	}
	return secondaryVal
}

// resolveLastContacted keeps the most recent contact time across both sides,
// unless an override pins a side. Merging activity histories means the merged
// contact was last reached at the later of the two timestamps.
func resolveLastContacted(primary, secondary *models.Contact, strategy models.MergeStrategy) *time.Time {
	if side, ok := strategy.FieldOverrides[FieldLastContactedAt]; ok {
		if side == models.MergeSideSecondary {
			return secondary.LastContactedAt
		}
		return primary.LastContactedAt
	}

	switch {
	case primary.LastContactedAt == nil:
		return secondary.LastContactedAt
	case secondary.LastContactedAt == nil:
		return primary.LastContactedAt
	case secondary.LastContactedAt.After(*primary.LastContactedAt):
		return secondary.LastContactedAt
	default:
		return primary.LastContactedAt
	}
}

// unionTags returns the sorted set union of both tag lists
func unionTags(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(a)+len(b))
	union := make([]string, 0, len(a)+len(b))
	for _, tag := range a {
		if tag != "" && !seen[tag] {
			seen[tag] = true
			union = append(union, tag)
		}
	}
	for _, tag := range b {
		if tag != "" && !seen[tag] {
			seen[tag] = true
			union = append(union, tag)
		}
	}

	sort.Strings(union)
	return union
}

// mergeCustomFields merges key-wise, primary winning on collisions. Values
// are copied shallowly; nested structures are treated as opaque.
func mergeCustomFields(primary, secondary map[string]any) map[string]any {
	if len(primary) == 0 && len(secondary) == 0 {
		return nil
	}

	merged := make(map[string]any, len(primary)+len(secondary))
	for k, v := range secondary {
		merged[k] = v
	}
	for k, v := range primary {
		merged[k] = v
	}
	return merged
}
