package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/daybook/internal/domain/entities"
	"github.com/taskmaster/daybook/internal/infrastructure/crypto"
	"github.com/taskmaster/daybook/internal/infrastructure/logger"
	"github.com/taskmaster/daybook/internal/ports"
)

// fakeRowStore is an in-memory TaskRowStore
type fakeRowStore struct {
	mu        sync.Mutex
	rows      []ports.TaskRow
	batches   []int
	failAfter int // fail the insert call with this index; -1 never fails
	calls     int
}

func newFakeRowStore() *fakeRowStore {
	return &fakeRowStore{failAfter: -1}
}

func (f *fakeRowStore) ListByUser(_ context.Context, userID string) ([]ports.TaskRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ports.TaskRow
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (f *fakeRowStore) DeleteByUser(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rows[:0]
	var n int64
	for _, r := range f.rows {
		if r.UserID == userID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return n, nil
}

func (f *fakeRowStore) InsertBatch(_ context.Context, rows []ports.TaskRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == f.failAfter {
		f.calls++
		return errors.New("connection reset")
	}
	f.calls++
	f.batches = append(f.batches, len(rows))
	f.rows = append(f.rows, rows...)
	return nil
}

func newTestRemote(t *testing.T, store ports.TaskRowStore, batch int) (*RemoteTaskRepositoryImpl, *crypto.Codec) {
	t.Helper()
	codec, err := crypto.NewCodec("remote-test-secret", logger.Nop())
	require.NoError(t, err)
	return NewRemoteTaskRepository(store, codec, batch, logger.Nop()), codec
}

func TestRemotePersistAndFetch(t *testing.T) {
	ctx := context.Background()
	store := newFakeRowStore()
	repo, _ := newTestRemote(t, store, 50)

	created := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	done := created.Add(time.Hour)
	c := entities.Collection{
		"2024-01-01": {
			{ID: entities.NewID(), Content: "first", CreatedAt: created, Priority: entities.PriorityHigh, Date: "2024-01-01"},
			{ID: entities.NewID(), Content: "second", CreatedAt: created, Priority: entities.PriorityMedium, Date: "2024-01-01", IsCompleted: true, CompletedAt: &done},
		},
		"2024-01-02": {
			{ID: entities.NewID(), Content: "third", CreatedAt: created, Priority: entities.PriorityLow, Date: "2024-01-02", HasReminder: true},
		},
	}

	require.NoError(t, repo.Persist(ctx, c, "user-1"))

	require.Len(t, store.rows, 3)
	for _, row := range store.rows {
		assert.True(t, row.IsEncrypted)
		assert.True(t, crypto.IsEncrypted(row.Content))
		assert.Equal(t, "user-1", row.UserID)
	}

	got, err := repo.Fetch(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, got.Equal(c))
}

func TestRemotePersistReplacesPreviousRows(t *testing.T) {
	ctx := context.Background()
	store := newFakeRowStore()
	repo, _ := newTestRemote(t, store, 50)

	first := entities.Collection{"2024-01-01": {{ID: entities.NewID(), Content: "a", Date: "2024-01-01", Priority: entities.PriorityMedium}}}
	second := entities.Collection{"2024-01-02": {{ID: entities.NewID(), Content: "b", Date: "2024-01-02", Priority: entities.PriorityMedium}}}

	require.NoError(t, repo.Persist(ctx, first, "user-1"))
	require.NoError(t, repo.Persist(ctx, second, "user-1"))

	got, err := repo.Fetch(ctx, "user-1")
	require.NoError(t, err)
	assert.NotContains(t, got, "2024-01-01")
	assert.Len(t, got["2024-01-02"], 1)
}

func TestRemotePersistBatches(t *testing.T) {
	store := newFakeRowStore()
	repo, _ := newTestRemote(t, store, 50)

	var tasks []entities.Task
	for i := 0; i < 120; i++ {
		tasks = append(tasks, entities.Task{ID: entities.NewID(), Content: "t", Date: "2024-01-01", Priority: entities.PriorityMedium})
	}

	require.NoError(t, repo.Persist(context.Background(), entities.Collection{"2024-01-01": tasks}, "user-1"))

	assert.Equal(t, []int{50, 50, 20}, store.batches)
	for i, row := range store.rows {
		assert.Equal(t, i, row.Position)
	}
}

func TestRemotePersistDedupAndCanonicalIDs(t *testing.T) {
	store := newFakeRowStore()
	repo, _ := newTestRemote(t, store, 50)

	dup := entities.NewID()
	c := entities.Collection{
		"2024-01-01": {
			{ID: dup, Content: "kept", Date: "2024-01-01"},
			{ID: "1717232400000", Content: "legacy", Date: "2024-01-01"},
		},
		"2024-01-02": {
			{ID: dup, Content: "dropped", Date: "2024-01-02"},
		},
	}

	require.NoError(t, repo.Persist(context.Background(), c, "user-1"))

	require.Len(t, store.rows, 2)
	assert.Equal(t, dup, store.rows[0].ID)
	assert.True(t, entities.IsCanonicalID(store.rows[1].ID))
	assert.Equal(t, string(entities.DefaultPriority), store.rows[0].Priority)
}

func TestRemotePersistPartialFailure(t *testing.T) {
	store := newFakeRowStore()
	store.failAfter = 1
	repo, _ := newTestRemote(t, store, 2)

	var tasks []entities.Task
	for i := 0; i < 5; i++ {
		tasks = append(tasks, entities.Task{ID: entities.NewID(), Content: "t", Date: "2024-01-01"})
	}

	err := repo.Persist(context.Background(), entities.Collection{"2024-01-01": tasks}, "user-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrPartialPersist)
	var partial *PartialPersistError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 2, partial.Written)
	assert.Equal(t, 5, partial.Total)
	assert.Len(t, store.rows, 2)
}

func TestRemoteFetchTolerance(t *testing.T) {
	store := newFakeRowStore()
	repo, codec := newTestRemote(t, store, 50)
	created := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	sealed, err := codec.EncryptText("secret", "user-1")
	require.NoError(t, err)

	store.rows = []ports.TaskRow{
		{ID: entities.NewID(), UserID: "user-1", Content: "plain", Date: "2024-01-01", Priority: "weird", CreatedAt: created},
		{ID: entities.NewID(), UserID: "user-1", Content: sealed, Date: "2024-01-01", Position: 1, IsEncrypted: true, CreatedAt: created},
		{ID: entities.NewID(), UserID: "user-1", Content: "bad", Date: "January", CreatedAt: created},
		{ID: entities.NewID(), UserID: "user-2", Content: "other user", Date: "2024-01-01", CreatedAt: created},
		{ID: entities.NewID(), UserID: "user-1", Content: "open", Date: "2024-01-02", CompletedAt: &created, CreatedAt: created},
	}

	got, err := repo.Fetch(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, got["2024-01-01"], 2)
	assert.Equal(t, "plain", got["2024-01-01"][0].Content)
	assert.Equal(t, entities.PriorityMedium, got["2024-01-01"][0].Priority)
	assert.Equal(t, "secret", got["2024-01-01"][1].Content)
	assert.Nil(t, got["2024-01-02"][0].CompletedAt, "completion time without completion is dropped")
	assert.Len(t, got, 2)
}

func TestRemoteDeleteAll(t *testing.T) {
	store := newFakeRowStore()
	repo, _ := newTestRemote(t, store, 50)

	c := entities.Collection{"2024-01-01": {
		{ID: entities.NewID(), Content: "a", Date: "2024-01-01"},
		{ID: entities.NewID(), Content: "b", Date: "2024-01-01"},
	}}
	require.NoError(t, repo.Persist(context.Background(), c, "user-1"))

	n, err := repo.DeleteAll(context.Background(), "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Empty(t, store.rows)
}
