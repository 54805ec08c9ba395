package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

type fakeFinder struct {
	candidates []models.DuplicateCandidate
	err        error

	lastSubject *models.Contact
}

func (f *fakeFinder) FindDuplicates(ctx context.Context, tenantID string, subject *models.Contact, excludeID *uuid.UUID) ([]models.DuplicateCandidate, error) {
	f.lastSubject = subject
	return f.candidates, f.err
}

func TestDuplicateHandler_Find(t *testing.T) {
	finder := &fakeFinder{
		candidates: []models.DuplicateCandidate{
			{Contact: &models.Contact{ID: uuid.New()}, Score: 0.9, Reasons: []string{models.MatchReasonExactEmail}},
		},
	}
	handler := NewDuplicateHandler(finder, 0.5)

	c, rec := newMergeContext(t, "tenant-a", uuid.New().String(), `{"email":"jane@work.com"}`)

	require.NoError(t, handler.Find(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jane@work.com", finder.lastSubject.Email)

	var resp models.FindDuplicatesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, 0.5, resp.Threshold)
}

func TestDuplicateHandler_FindRejectsMalformedEmail(t *testing.T) {
	handler := NewDuplicateHandler(&fakeFinder{}, 0.5)

	c, _ := newMergeContext(t, "tenant-a", uuid.New().String(), `{"email":"not-an-email"}`)
	err := handler.Find(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}

func TestDuplicateHandler_FindRequiresIdentityField(t *testing.T) {
	handler := NewDuplicateHandler(&fakeFinder{}, 0.5)

	c, _ := newMergeContext(t, "tenant-a", uuid.New().String(), `{"company":"Acme"}`)
	err := handler.Find(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}
