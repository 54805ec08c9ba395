package merging

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

type fakeTx struct {
	database.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) IsOpen() bool { return !t.committed && !t.rolledBack }

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.IsOpen() {
		t.committed = true
	}
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.IsOpen() {
		t.rolledBack = true
	}
	return nil
}

type fakeDB struct {
	database.DB
	txs []*fakeTx
}

func (f *fakeDB) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error) {
	tx := &fakeTx{}
	f.txs = append(f.txs, tx)
	return ctx, tx, nil
}

type fakeContactStore struct {
	contacts map[uuid.UUID]models.Contact

	applied      []models.Contact
	deleted      []uuid.UUID
	lockRequests [][]uuid.UUID

	secondaryGone bool
	lockErr       error
}

func (f *fakeContactStore) GetLocked(ctx context.Context, tenantID string, ids []uuid.UUID) ([]models.Contact, error) {
	f.lockRequests = append(f.lockRequests, ids)
	if f.lockErr != nil {
		return nil, f.lockErr
	}

	var found []models.Contact
	for _, id := range ids {
		if c, ok := f.contacts[id]; ok {
			found = append(found, c)
		}
	}
	return found, nil
}

func (f *fakeContactStore) ApplyMerge(ctx context.Context, contact *models.Contact) error {
	f.applied = append(f.applied, *contact)
	f.contacts[contact.ID] = *contact
	return nil
}

func (f *fakeContactStore) DeleteReturning(ctx context.Context, tenantID string, id uuid.UUID) (bool, error) {
	if f.secondaryGone {
		return false, nil
	}
	if _, ok := f.contacts[id]; !ok {
		return false, nil
	}
	delete(f.contacts, id)
	f.deleted = append(f.deleted, id)
	return true, nil
}

type fakeRecordStore struct {
	counts     map[uuid.UUID]models.RecordCounts
	reassigned []uuid.UUID
}

func (f *fakeRecordStore) ReassignAll(ctx context.Context, tenantID string, fromID, toID uuid.UUID) (models.RecordCounts, error) {
	f.reassigned = append(f.reassigned, fromID)
	return f.counts[fromID], nil
}

type fakeEmitter struct {
	merged []uuid.UUID
	err    error
}

func (f *fakeEmitter) ContactMerged(ctx context.Context, tenantID string, primary *models.Contact, secondaryID uuid.UUID, migrated models.RecordCounts) error {
	f.merged = append(f.merged, secondaryID)
	return f.err
}

type executorHarness struct {
	executor *Executor
	db       *fakeDB
	contacts *fakeContactStore
	records  *fakeRecordStore
	emitter  *fakeEmitter
}

func newExecutorHarness(contacts ...models.Contact) *executorHarness {
	zapLogger, _ := zap.NewDevelopment()
	logger := zapadapter.NewZapEctoLogger(zapLogger, nil)

	store := &fakeContactStore{contacts: map[uuid.UUID]models.Contact{}}
	for _, c := range contacts {
		store.contacts[c.ID] = c
	}

	db := &fakeDB{}
	records := &fakeRecordStore{counts: map[uuid.UUID]models.RecordCounts{}}
	emitter := &fakeEmitter{}

	return &executorHarness{
		executor: NewExecutor(db, store, records, emitter, logger),
		db:       db,
		contacts: store,
		records:  records,
		emitter:  emitter,
	}
}

func TestMerge_HappyPath(t *testing.T) {
	primary := models.Contact{ID: uuid.New(), TenantID: "tenant-a", FirstName: "Jane", Email: "jane@work.com"}
	secondary := models.Contact{ID: uuid.New(), TenantID: "tenant-a", FirstName: "Janey", Phone: "+15551234567"}

	h := newExecutorHarness(primary, secondary)
	h.records.counts[secondary.ID] = models.RecordCounts{Messages: 3, Notes: 2}

	result, err := h.executor.Merge(context.Background(), "tenant-a", primary.ID, secondary.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.MergeStateCompleted, result.State)
	assert.Equal(t, secondary.ID, result.SecondaryID)
	assert.Equal(t, int64(5), result.Migrated.Total())

	// default strategy backfills the primary's empty phone
	assert.Equal(t, "Jane", result.Primary.FirstName)
	assert.Equal(t, "+15551234567", result.Primary.Phone)

	// secondary row is gone and the transaction committed
	assert.Equal(t, []uuid.UUID{secondary.ID}, h.contacts.deleted)
	require.Len(t, h.db.txs, 1)
	assert.True(t, h.db.txs[0].committed)
	assert.False(t, h.db.txs[0].rolledBack)

	assert.Equal(t, []uuid.UUID{secondary.ID}, h.emitter.merged)
}

func TestMerge_SelfMerge(t *testing.T) {
	contact := models.Contact{ID: uuid.New(), TenantID: "tenant-a"}
	h := newExecutorHarness(contact)

	_, err := h.executor.Merge(context.Background(), "tenant-a", contact.ID, contact.ID, nil)
	require.Error(t, err)
	assert.True(t, httperror.IsHTTPError(err))
	assert.Equal(t, http.StatusUnprocessableEntity, httperror.GetStatusCode(err))

	// rejected before any transaction or lock is taken
	assert.Empty(t, h.db.txs)
	assert.Empty(t, h.contacts.lockRequests)
}

func TestMerge_SecondaryNotFound(t *testing.T) {
	primary := models.Contact{ID: uuid.New(), TenantID: "tenant-a"}
	h := newExecutorHarness(primary)

	missing := uuid.New()
	_, err := h.executor.Merge(context.Background(), "tenant-a", primary.ID, missing, nil)
	require.Error(t, err)
	assert.True(t, httperror.IsHTTPError(err))
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))

	// nothing migrated, transaction rolled back
	assert.Empty(t, h.records.reassigned)
	require.Len(t, h.db.txs, 1)
	assert.True(t, h.db.txs[0].rolledBack)
	assert.Empty(t, h.emitter.merged)
}

func TestMerge_ConcurrentDeleteConflicts(t *testing.T) {
	primary := models.Contact{ID: uuid.New(), TenantID: "tenant-a"}
	secondary := models.Contact{ID: uuid.New(), TenantID: "tenant-a"}

	h := newExecutorHarness(primary, secondary)
	h.contacts.secondaryGone = true

	_, err := h.executor.Merge(context.Background(), "tenant-a", primary.ID, secondary.ID, nil)
	require.Error(t, err)
	assert.True(t, httperror.IsHTTPError(err))
	assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))

	require.Len(t, h.db.txs, 1)
	assert.True(t, h.db.txs[0].rolledBack)
	assert.False(t, h.db.txs[0].committed)
	assert.Empty(t, h.emitter.merged)
}

func TestMerge_EmitterFailureDoesNotFailMerge(t *testing.T) {
	primary := models.Contact{ID: uuid.New(), TenantID: "tenant-a"}
	secondary := models.Contact{ID: uuid.New(), TenantID: "tenant-a"}

	h := newExecutorHarness(primary, secondary)
	h.emitter.err = assert.AnError

	result, err := h.executor.Merge(context.Background(), "tenant-a", primary.ID, secondary.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MergeStateCompleted, result.State)
}

func TestMergeBatch_SequentialPartialSuccess(t *testing.T) {
	primary := models.Contact{ID: uuid.New(), TenantID: "tenant-a"}
	first := models.Contact{ID: uuid.New(), TenantID: "tenant-a", Phone: "+15551234567"}
	second := models.Contact{ID: uuid.New(), TenantID: "tenant-a"}

	h := newExecutorHarness(primary, first)
	h.records.counts[first.ID] = models.RecordCounts{Messages: 2}

	// second is never in the store, so its merge fails after the first succeeds
	result, err := h.executor.MergeBatch(context.Background(), "tenant-a", primary.ID, []uuid.UUID{first.ID, second.ID}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.MergedCount)
	assert.Equal(t, int64(2), result.Migrated.Total())
	require.NotNil(t, result.FailedID)
	assert.Equal(t, second.ID, *result.FailedID)
	assert.NotEmpty(t, result.FailureReason)

	// the successful merge stays committed
	assert.Equal(t, []uuid.UUID{first.ID}, h.contacts.deleted)
	assert.Equal(t, "+15551234567", result.Primary.Phone)
}

func TestMergeBatch_FirstFailureReturnsError(t *testing.T) {
	primary := models.Contact{ID: uuid.New(), TenantID: "tenant-a"}
	h := newExecutorHarness(primary)

	missing := uuid.New()
	result, err := h.executor.MergeBatch(context.Background(), "tenant-a", primary.ID, []uuid.UUID{missing}, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	assert.Equal(t, 0, result.MergedCount)
}

func TestMergeBatch_AllSucceed(t *testing.T) {
	primary := models.Contact{ID: uuid.New(), TenantID: "tenant-a"}
	first := models.Contact{ID: uuid.New(), TenantID: "tenant-a"}
	second := models.Contact{ID: uuid.New(), TenantID: "tenant-a"}

	h := newExecutorHarness(primary, first, second)
	h.records.counts[first.ID] = models.RecordCounts{Notes: 1}
	h.records.counts[second.ID] = models.RecordCounts{Messages: 4}

	result, err := h.executor.MergeBatch(context.Background(), "tenant-a", primary.ID, []uuid.UUID{first.ID, second.ID}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.MergedCount)
	assert.Equal(t, int64(5), result.Migrated.Total())
	assert.Nil(t, result.FailedID)
	assert.Len(t, h.db.txs, 2)
}
