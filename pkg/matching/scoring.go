// Package matching implements contact similarity scoring and duplicate lookup
package matching

import (
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
)

// Weights for each similarity signal. Email and phone are strong identity
// signals; company alone can never qualify a pair.
const (
	WeightExactEmail = 0.9
	WeightExactPhone = 0.8
	WeightFuzzyName  = 0.3
	WeightCompany    = 0.1
)

// NameSimilarityFloor is the minimum normalized Levenshtein similarity for
// two names to count as a fuzzy match.
const NameSimilarityFloor = 0.85

// DefaultThreshold is the default qualification threshold for candidates.
const DefaultThreshold = 0.5

// MatchScore is the scored comparison of two contacts
type MatchScore struct {
	Score   float64
	Reasons []string
}

// HasExactIdentifier reports whether the pair matched on email or phone
func (m MatchScore) HasExactIdentifier() bool {
	for _, r := range m.Reasons {
		if r == models.MatchReasonExactEmail || r == models.MatchReasonExactPhone {
			return true
		}
	}
	return false
}

// Scorer computes similarity scores between contacts. It is pure and
// performs no I/O.
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// ScoreContacts compares two contacts and returns the additive score, capped
// at 1.0, plus the reasons that contributed. Fields that are empty on either
// side contribute nothing.
func (s *Scorer) ScoreContacts(a, b *models.Contact) MatchScore {
	var score float64
	var reasons []string

	emailA := normalizers.NormalizeEmail(a.Email)
	emailB := normalizers.NormalizeEmail(b.Email)
	if emailA != "" && emailA == emailB {
		score += WeightExactEmail
		reasons = append(reasons, models.MatchReasonExactEmail)
	}

	phoneA := normalizers.NormalizePhone(a.Phone)
	phoneB := normalizers.NormalizePhone(b.Phone)
	if phoneA != "" && phoneA == phoneB {
		score += WeightExactPhone
		reasons = append(reasons, models.MatchReasonExactPhone)
	}

	nameA := normalizers.NormalizeName(a.FullName())
	nameB := normalizers.NormalizeName(b.FullName())
	if nameA != "" && nameB != "" && s.Levenshtein(nameA, nameB) > NameSimilarityFloor {
		score += WeightFuzzyName
		reasons = append(reasons, models.MatchReasonFuzzyName)
	}

	companyA := normalizers.NormalizeCompany(a.Company)
	companyB := normalizers.NormalizeCompany(b.Company)
	if companyA != "" && companyA == companyB {
		score += WeightCompany
		reasons = append(reasons, models.MatchReasonCompanyMatch)
	}

	if score > 1.0 {
		score = 1.0
	}

	return MatchScore{Score: score, Reasons: reasons}
}

// Qualifies reports whether a scored pair clears the threshold. An exact
// email or phone match always qualifies, regardless of threshold.
func (s *Scorer) Qualifies(m MatchScore, threshold float64) bool {
	if m.HasExactIdentifier() {
		return true
	}
	return m.Score >= threshold
}

// Levenshtein returns a similarity score between 0.0 and 1.0 derived from
// the edit distance relative to the longer string.
func (s *Scorer) Levenshtein(a, b string) float64 {
	distance := s.LevenshteinDistance(a, b)
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(distance)/float64(maxLen)
}

// LevenshteinDistance calculates the edit distance between two strings
func (s *Scorer) LevenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Two-row dynamic programming
	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(min(row[j-1]+1, prevRow[j]+1), prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}
