package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/models"
)

type fakeMerger struct {
	result      *models.MergeResult
	batchResult *models.BatchMergeResult
	err         error

	lastPrimary     uuid.UUID
	lastSecondaries []uuid.UUID
}

func (f *fakeMerger) Merge(ctx context.Context, tenantID string, primaryID, secondaryID uuid.UUID, strategy *models.MergeStrategy) (*models.MergeResult, error) {
	f.lastPrimary = primaryID
	f.lastSecondaries = []uuid.UUID{secondaryID}
	return f.result, f.err
}

func (f *fakeMerger) MergeBatch(ctx context.Context, tenantID string, primaryID uuid.UUID, secondaryIDs []uuid.UUID, strategy *models.MergeStrategy) (*models.BatchMergeResult, error) {
	f.lastPrimary = primaryID
	f.lastSecondaries = secondaryIDs
	return f.batchResult, f.err
}

type fakeCounter struct {
	counts models.RecordCounts
}

func (f *fakeCounter) CountByContact(ctx context.Context, tenantID string, contactID uuid.UUID) (models.RecordCounts, error) {
	return f.counts, nil
}

func newMergeContext(t *testing.T, tenantID, contactID, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if tenantID != "" {
		req = req.WithContext(appctx.SetTenantID(req.Context(), tenantID))
	}
	rec := httptest.NewRecorder()

	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(contactID)
	return c, rec
}

func TestMergeHandler_Merge(t *testing.T) {
	primaryID := uuid.New()
	secondaryID := uuid.New()

	merger := &fakeMerger{
		result: &models.MergeResult{
			Primary:     &models.Contact{ID: primaryID},
			SecondaryID: secondaryID,
			State:       models.MergeStateCompleted,
		},
	}
	handler := NewMergeHandler(merger, &fakeCounter{})

	body, _ := json.Marshal(models.MergeRequest{SecondaryID: secondaryID})
	c, rec := newMergeContext(t, "tenant-a", primaryID.String(), string(body))

	require.NoError(t, handler.Merge(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, primaryID, merger.lastPrimary)

	var result models.MergeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, models.MergeStateCompleted, result.State)
}

func TestMergeHandler_MergeRequiresTenant(t *testing.T) {
	handler := NewMergeHandler(&fakeMerger{}, &fakeCounter{})

	c, _ := newMergeContext(t, "", uuid.New().String(), `{}`)
	err := handler.Merge(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, httperror.GetStatusCode(err))
}

func TestMergeHandler_MergeRejectsInvalidID(t *testing.T) {
	handler := NewMergeHandler(&fakeMerger{}, &fakeCounter{})

	c, _ := newMergeContext(t, "tenant-a", "not-a-uuid", `{}`)
	err := handler.Merge(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}

func TestMergeHandler_MergeRequiresSecondaryID(t *testing.T) {
	handler := NewMergeHandler(&fakeMerger{}, &fakeCounter{})

	c, _ := newMergeContext(t, "tenant-a", uuid.New().String(), `{}`)
	err := handler.Merge(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}

func TestMergeHandler_MergeBatch(t *testing.T) {
	primaryID := uuid.New()
	secondaries := []uuid.UUID{uuid.New(), uuid.New()}

	merger := &fakeMerger{
		batchResult: &models.BatchMergeResult{
			Primary:     &models.Contact{ID: primaryID},
			MergedCount: 2,
		},
	}
	handler := NewMergeHandler(merger, &fakeCounter{})

	body, _ := json.Marshal(models.BatchMergeRequest{SecondaryIDs: secondaries})
	c, rec := newMergeContext(t, "tenant-a", primaryID.String(), string(body))

	require.NoError(t, handler.MergeBatch(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, secondaries, merger.lastSecondaries)
}

func TestMergeHandler_MergeBatchRequiresSecondaries(t *testing.T) {
	handler := NewMergeHandler(&fakeMerger{}, &fakeCounter{})

	c, _ := newMergeContext(t, "tenant-a", uuid.New().String(), `{"secondary_ids": []}`)
	err := handler.MergeBatch(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}

func TestMergeHandler_RecordCounts(t *testing.T) {
	handler := NewMergeHandler(&fakeMerger{}, &fakeCounter{
		counts: models.RecordCounts{Messages: 3, Notes: 1},
	})

	c, rec := newMergeContext(t, "tenant-a", uuid.New().String(), "")

	require.NoError(t, handler.RecordCounts(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var counts models.RecordCounts
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	assert.Equal(t, int64(4), counts.Total())
}
