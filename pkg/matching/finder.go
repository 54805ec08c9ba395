package matching

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// CandidateLookup is the indexed candidate pre-filter the finder draws from.
// Implementations must use indexed lookups; the finder never scans the full
// contact population.
type CandidateLookup interface {
	FindByEmail(ctx context.Context, tenantID, email string) ([]models.Contact, error)
	FindByPhone(ctx context.Context, tenantID, phone string) ([]models.Contact, error)
	ListRecent(ctx context.Context, tenantID string, limit int) ([]models.Contact, error)
}

// FinderConfig tunes candidate qualification and the fuzzy-name scan bound
type FinderConfig struct {
	Threshold     float64
	NameScanLimit int
}

// Finder locates duplicate candidates for a subject contact. Results are a
// point-in-time read and may be stale by the time a merge runs; the merge
// executor re-validates both sides.
type Finder struct {
	lookup CandidateLookup
	scorer *Scorer
	config FinderConfig
	logger ectologger.Logger
}

// NewFinder creates a new duplicate candidate finder
func NewFinder(lookup CandidateLookup, config FinderConfig, logger ectologger.Logger) *Finder {
	if config.Threshold <= 0 {
		config.Threshold = DefaultThreshold
	}
	if config.NameScanLimit <= 0 {
		config.NameScanLimit = 200
	}
	return &Finder{
		lookup: lookup,
		scorer: NewScorer(),
		config: config,
		logger: logger,
	}
}

// FindDuplicates returns all qualified duplicate candidates for the subject,
// ordered by score descending with deterministic tie-breaks (most recently
// contacted first, then oldest created, then id). The subject itself and
// excludeID are never returned.
func (f *Finder) FindDuplicates(ctx context.Context, tenantID string, subject *models.Contact, excludeID *uuid.UUID) ([]models.DuplicateCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Finder.FindDuplicates")
	defer span.End()

	pool, err := f.gatherCandidates(ctx, tenantID, subject)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.DuplicateCandidate, 0, len(pool))
	for i := range pool {
		candidate := pool[i]
		if candidate.ID == subject.ID {
			continue
		}
		if excludeID != nil && candidate.ID == *excludeID {
			continue
		}

		match := f.scorer.ScoreContacts(subject, &candidate)
		if !f.scorer.Qualifies(match, f.config.Threshold) {
			continue
		}

		candidates = append(candidates, models.DuplicateCandidate{
			Contact: &pool[i],
			Score:   match.Score,
			Reasons: match.Reasons,
		})
	}

	sortCandidates(candidates)

	f.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":       tenantID,
		"pool_size":       len(pool),
		"candidate_count": len(candidates),
	}).Debug("Duplicate candidate lookup complete")

	return candidates, nil
}

// gatherCandidates collects the candidate pool from the indexed lookups and
// a bounded recent-contact sample for fuzzy name comparison, deduplicated by id.
func (f *Finder) gatherCandidates(ctx context.Context, tenantID string, subject *models.Contact) ([]models.Contact, error) {
	seen := make(map[uuid.UUID]bool)
	var pool []models.Contact

	add := func(contacts []models.Contact) {
		for _, c := range contacts {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			pool = append(pool, c)
		}
	}

	if email := normalizers.NormalizeEmail(subject.Email); email != "" {
		matches, err := f.lookup.FindByEmail(ctx, tenantID, email)
		if err != nil {
			return nil, err
		}
		add(matches)
	}

	if phone := normalizers.NormalizePhone(subject.Phone); phone != "" {
		matches, err := f.lookup.FindByPhone(ctx, tenantID, phone)
		if err != nil {
			return nil, err
		}
		add(matches)
	}

	if normalizers.NormalizeName(subject.FullName()) != "" {
		sample, err := f.lookup.ListRecent(ctx, tenantID, f.config.NameScanLimit)
		if err != nil {
			return nil, err
		}
		add(sample)
	}

	return pool, nil
}

// sortCandidates orders candidates into a deterministic total order:
// score desc, last_contacted_at desc (nulls last), created_at asc, id asc.
func sortCandidates(candidates []models.DuplicateCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}

		switch {
		case a.Contact.LastContactedAt != nil && b.Contact.LastContactedAt == nil:
			return true
		case a.Contact.LastContactedAt == nil && b.Contact.LastContactedAt != nil:
			return false
		case a.Contact.LastContactedAt != nil && b.Contact.LastContactedAt != nil:
			if !a.Contact.LastContactedAt.Equal(*b.Contact.LastContactedAt) {
				return a.Contact.LastContactedAt.After(*b.Contact.LastContactedAt)
			}
		}

		if !a.Contact.CreatedAt.Equal(b.Contact.CreatedAt) {
			return a.Contact.CreatedAt.Before(b.Contact.CreatedAt)
		}
		return a.Contact.ID.String() < b.Contact.ID.String()
	})
}
