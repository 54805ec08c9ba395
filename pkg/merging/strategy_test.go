package merging

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestResolveFields_BackfillNeverOverwrites(t *testing.T) {
	primary := &models.Contact{
		ID:        uuid.New(),
		FirstName: "Jane",
		Email:     "jane@work.com",
		Status:    models.ContactStatusActive,
	}
	secondary := &models.Contact{
		ID:        uuid.New(),
		FirstName: "Janey",
		LastName:  "Doe",
		Email:     "jane@personal.com",
		Phone:     "+15551234567",
		Company:   "Acme",
	}

	merged := ResolveFields(primary, secondary, models.DefaultMergeStrategy())

	// populated primary fields win
	assert.Equal(t, "Jane", merged.FirstName)
	assert.Equal(t, "jane@work.com", merged.Email)
	// empty primary fields are backfilled from the secondary
	assert.Equal(t, "Doe", merged.LastName)
	assert.Equal(t, "+15551234567", merged.Phone)
	assert.Equal(t, "Acme", merged.Company)
	// identity stays with the primary
	assert.Equal(t, primary.ID, merged.ID)
}

func TestResolveFields_DecodedStrategyOmittingPreferPrimaryBackfills(t *testing.T) {
	// a caller sending only field overrides still gets prefer-primary defaults
	body := `{"secondary_id":"b6f8f3a0-8c55-4a2f-9d3e-0f1f46a1b2c3","strategy":{"field_overrides":{"email":"secondary"}}}`
	var req models.MergeRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	require.NotNil(t, req.Strategy)
	assert.True(t, req.Strategy.PreferPrimary)

	primary := &models.Contact{FirstName: "Jane", Email: "jane@work.com"}
	secondary := &models.Contact{FirstName: "Janey", Email: "jane@personal.com"}

	merged := ResolveFields(primary, secondary, *req.Strategy)
	assert.Equal(t, "Jane", merged.FirstName)
	assert.Equal(t, "jane@personal.com", merged.Email)
}

func TestResolveFields_FieldOverrideBeatsPreferPrimary(t *testing.T) {
	primary := &models.Contact{Email: "old@work.com", Phone: "+15550000000"}
	secondary := &models.Contact{Email: "new@work.com", Phone: "+15551111111"}

	strategy := models.MergeStrategy{
		PreferPrimary: true,
		FieldOverrides: map[string]models.MergeSide{
			FieldEmail: models.MergeSideSecondary,
		},
	}

	merged := ResolveFields(primary, secondary, strategy)
	assert.Equal(t, "new@work.com", merged.Email)
	assert.Equal(t, "+15550000000", merged.Phone)
}

func TestResolveFields_OverrideCanPickEmptySide(t *testing.T) {
	primary := &models.Contact{JobTitle: "Engineer"}
	secondary := &models.Contact{}

	strategy := models.MergeStrategy{
		PreferPrimary: true,
		FieldOverrides: map[string]models.MergeSide{
			FieldJobTitle: models.MergeSideSecondary,
		},
	}

	merged := ResolveFields(primary, secondary, strategy)
	assert.Equal(t, "", merged.JobTitle)
}

func TestResolveFields_PreferSecondary(t *testing.T) {
	primary := &models.Contact{FirstName: "Jane", Company: "Acme"}
	secondary := &models.Contact{FirstName: "Janet"}

	merged := ResolveFields(primary, secondary, models.MergeStrategy{PreferPrimary: false})
	assert.Equal(t, "Janet", merged.FirstName)
	// empty secondary falls back to primary
	assert.Equal(t, "Acme", merged.Company)
}

func TestResolveFields_TagUnion(t *testing.T) {
	primary := &models.Contact{Tags: []string{"vip", "newsletter"}}
	secondary := &models.Contact{Tags: []string{"newsletter", "webinar"}}

	merged := ResolveFields(primary, secondary, models.DefaultMergeStrategy())
	assert.Equal(t, []string{"newsletter", "vip", "webinar"}, merged.Tags)

	// union is commutative
	flipped := ResolveFields(secondary, primary, models.DefaultMergeStrategy())
	assert.Equal(t, merged.Tags, flipped.Tags)
}

func TestResolveFields_CustomFieldsPrimaryWins(t *testing.T) {
	primary := &models.Contact{CustomFields: map[string]any{"plan": "pro", "seats": 5}}
	secondary := &models.Contact{CustomFields: map[string]any{"plan": "free", "region": "emea"}}

	merged := ResolveFields(primary, secondary, models.DefaultMergeStrategy())
	assert.Equal(t, map[string]any{"plan": "pro", "seats": 5, "region": "emea"}, merged.CustomFields)
}

func TestResolveFields_LastContactedMostRecent(t *testing.T) {
	now := time.Now().UTC()
	earlier := now.Add(-24 * time.Hour)

	primary := &models.Contact{LastContactedAt: &earlier}
	secondary := &models.Contact{LastContactedAt: &now}

	merged := ResolveFields(primary, secondary, models.DefaultMergeStrategy())
	assert.Equal(t, &now, merged.LastContactedAt)

	// nil side never wins
	primary = &models.Contact{}
	merged = ResolveFields(primary, secondary, models.DefaultMergeStrategy())
	assert.Equal(t, &now, merged.LastContactedAt)

	merged = ResolveFields(secondary, &models.Contact{}, models.DefaultMergeStrategy())
	assert.Equal(t, &now, merged.LastContactedAt)
}

func TestResolveFields_InputsNotMutated(t *testing.T) {
	primary := &models.Contact{Tags: []string{"vip"}, CustomFields: map[string]any{"a": 1}}
	secondary := &models.Contact{Tags: []string{"webinar"}, CustomFields: map[string]any{"b": 2}}

	_ = ResolveFields(primary, secondary, models.DefaultMergeStrategy())

	assert.Equal(t, []string{"vip"}, primary.Tags)
	assert.Equal(t, map[string]any{"a": 1}, primary.CustomFields)
	assert.Equal(t, []string{"webinar"}, secondary.Tags)
	assert.Equal(t, map[string]any{"b": 2}, secondary.CustomFields)
}
