package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/daybook/internal/domain/entities"
	"github.com/taskmaster/daybook/internal/infrastructure/metrics"
	"github.com/taskmaster/daybook/internal/ports"
)

func TestLoadCarriesForwardOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	stale := openTask("water plants", yesterday, testNow.Add(-24*time.Hour))
	done := openTask("pay rent", yesterday, testNow.Add(-24*time.Hour))
	done.Complete(testNow.Add(-20 * time.Hour))
	require.NoError(t, h.store.Save(ctx, entities.Collection{yesterday: {stale, done}}, ""))

	require.NoError(t, h.sync.Load(ctx, today))

	tasks, err := h.tasks.List(today)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "water plants", tasks[0].Content)
	assert.NotEqual(t, stale.ID, tasks[0].ID, "carried tasks get a fresh identifier")
	assert.Equal(t, today, tasks[0].Date)
	assert.Equal(t, today, h.tasks.ActiveDate())
	assert.Equal(t, uint64(1), h.sync.Status().LocalRevision)
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.CarryForwardTasks))

	// the carried state was persisted, so a second load changes nothing
	again := newHarnessWithStore(t, h.store, nil)
	require.NoError(t, again.sync.Load(ctx, today))
	assert.Equal(t, uint64(0), again.session.Revision())
	assert.Len(t, again.session.Tasks(today), 1)
}

func TestLoadRejectsInvalidDate(t *testing.T) {
	h := newHarness(t, nil)
	assert.ErrorIs(t, h.sync.Load(context.Background(), "06/01/2024"), entities.ErrInvalidDate)
}

func TestSaveSkipsPersistedRevision(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	require.NoError(t, h.sync.Load(ctx, today))

	_, err := h.tasks.CreateTask(ctx, ports.CreateTaskRequest{Content: "write report"})
	require.NoError(t, err)
	before := testutil.ToFloat64(h.metrics.LocalSaveTotal.WithLabelValues(metrics.ResultSuccess))

	require.NoError(t, h.sync.Save(ctx))
	require.NoError(t, h.sync.Save(ctx))

	assert.Equal(t, before, testutil.ToFloat64(h.metrics.LocalSaveTotal.WithLabelValues(metrics.ResultSuccess)))
	status := h.sync.Status()
	assert.Equal(t, status.Revision, status.LocalRevision)
	assert.False(t, status.RemoteEnabled)
}

func TestSignInMergesAndPushes(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	fromRemote := openTask("from phone", today, testNow.Add(-time.Hour))
	remote.data["user-1"] = entities.Collection{today: {fromRemote}}

	h := newHarness(t, remote)
	require.NoError(t, h.sync.Load(ctx, today))
	local, err := h.tasks.CreateTask(ctx, ports.CreateTaskRequest{Content: "from laptop"})
	require.NoError(t, err)

	require.NoError(t, h.sync.SignIn(ctx, "user-1", "token"))
	h.flush(t)

	tasks := h.session.Tasks(today)
	require.Len(t, tasks, 2)
	assert.Equal(t, fromRemote.ID, tasks[0].ID, "remote order comes first")
	assert.Equal(t, local.ID, tasks[1].ID)

	assert.True(t, remote.stored("user-1").Equal(entities.Collection{today: tasks}))

	status := h.sync.Status()
	assert.True(t, status.SignedIn)
	assert.Equal(t, "user-1", status.UserID)
	assert.Equal(t, status.Revision, status.RemoteRevision)
	assert.NotNil(t, status.LastRemoteSyncedAt)
	assert.Empty(t, status.LastRemoteError)

	// the cache is now sealed for the user
	assert.Equal(t, "user-1", h.store.LoadSession(ctx))
	assert.Len(t, h.store.Load(ctx, "user-1")[today], 2)
	assert.Empty(t, h.store.Load(ctx, ""))
}

func TestSignInFetchFailureKeepsLocalAndHoldsPushes(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.fetchErr = errors.New("network unreachable")

	h := newHarness(t, remote)
	require.NoError(t, h.sync.Load(ctx, today))
	_, err := h.tasks.CreateTask(ctx, ports.CreateTaskRequest{Content: "offline task"})
	require.NoError(t, err)

	require.NoError(t, h.sync.SignIn(ctx, "user-1", "token"))
	_, err = h.tasks.CreateTask(ctx, ports.CreateTaskRequest{Content: "another"})
	require.NoError(t, err)
	h.flush(t)

	calls, _ := remote.counts()
	assert.Zero(t, calls, "an unread remote copy must not be overwritten")
	assert.Len(t, h.session.Tasks(today), 2)
	assert.Contains(t, h.sync.Status().LastRemoteError, "network unreachable")

	remote.mu.Lock()
	remote.fetchErr = nil
	remote.mu.Unlock()

	require.NoError(t, h.sync.Resync(ctx))
	h.flush(t)

	assert.Len(t, remote.stored("user-1")[today], 2)
	status := h.sync.Status()
	assert.Equal(t, status.Revision, status.RemoteRevision)
	assert.Empty(t, status.LastRemoteError)
}

func TestResyncRequirements(t *testing.T) {
	ctx := context.Background()

	h := newHarness(t, newFakeRemote())
	assert.ErrorIs(t, h.sync.Resync(ctx), entities.ErrNotAuthenticated)

	local := newHarness(t, nil)
	require.NoError(t, local.sync.SignIn(ctx, "user-1", "token"))
	assert.ErrorIs(t, local.sync.Resync(ctx), ErrRemoteDisabled)
}

func TestPushesAreCoalesced(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.gate = make(chan struct{})

	h := newHarness(t, remote)
	require.NoError(t, h.sync.Load(ctx, today))
	require.NoError(t, h.sync.SignIn(ctx, "user-1", "token"))

	for _, content := range []string{"one", "two", "three"} {
		_, err := h.tasks.CreateTask(ctx, ports.CreateTaskRequest{Content: content})
		require.NoError(t, err)
	}
	assert.True(t, h.sync.Status().PushInFlight)

	close(remote.gate)
	h.flush(t)

	_, successes := remote.counts()
	assert.Equal(t, 1, successes, "only the newest snapshot reaches the remote store")

	stored := remote.stored("user-1")[today]
	require.Len(t, stored, 3)
	assert.Equal(t, "three", stored[2].Content)

	status := h.sync.Status()
	assert.False(t, status.PushInFlight)
	assert.Equal(t, status.Revision, status.RemoteRevision)
	assert.Empty(t, status.LastRemoteError)
}

func TestPushTimeoutIsRetriedOnNextSave(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.gate = make(chan struct{})

	h := newHarness(t, remote)
	require.NoError(t, h.sync.Load(ctx, today))
	require.NoError(t, h.sync.SignIn(ctx, "user-1", "token"))
	h.flush(t)

	status := h.sync.Status()
	assert.Contains(t, status.LastRemoteError, context.DeadlineExceeded.Error())
	assert.Zero(t, status.RemoteRevision)
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.RemotePersistTotal.WithLabelValues(metrics.ResultTimeout)))

	close(remote.gate)
	require.NoError(t, h.sync.Save(ctx))
	h.flush(t)

	status = h.sync.Status()
	assert.Equal(t, status.Revision, status.RemoteRevision)
	assert.Empty(t, status.LastRemoteError)
}

func TestPersistFailureIsReported(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.persistErr = errors.New("disk full")

	h := newHarness(t, remote)
	require.NoError(t, h.sync.SignIn(ctx, "user-1", "token"))
	h.flush(t)

	assert.Equal(t, "disk full", h.sync.Status().LastRemoteError)
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.RemotePersistTotal.WithLabelValues(metrics.ResultFailure)))
}

func TestSignOutResealsAnonymously(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newFakeRemote())
	require.NoError(t, h.sync.Load(ctx, today))
	require.NoError(t, h.sync.SignIn(ctx, "user-1", "token"))
	_, err := h.tasks.CreateTask(ctx, ports.CreateTaskRequest{Content: "keep me"})
	require.NoError(t, err)

	require.NoError(t, h.sync.SignOut(ctx))

	assert.False(t, h.session.SignedIn())
	assert.Equal(t, "", h.store.LoadSession(ctx))
	assert.Len(t, h.store.Load(ctx, "")[today], 1)
	assert.False(t, h.sync.Status().SignedIn)
}

func TestSignInSaveFailureKeepsLocalTasks(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	h := newHarnessWithStore(t, newStoreOn(t, kv), nil)
	require.NoError(t, h.sync.Load(ctx, today))
	_, err := h.tasks.CreateTask(ctx, ports.CreateTaskRequest{Content: "only on this device"})
	require.NoError(t, err)

	kv.failSets(true)
	assert.Error(t, h.sync.SignIn(ctx, "user-1", "token"))
	assert.NotEmpty(t, h.sync.Status().LastLocalError)

	// restart: the session record was not written, so the anonymous copy loads
	kv.failSets(false)
	restarted := newHarnessWithStore(t, newStoreOn(t, kv), nil)
	require.NoError(t, restarted.sync.Load(ctx, today))

	assert.False(t, restarted.session.SignedIn())
	tasks := restarted.session.Tasks(today)
	require.Len(t, tasks, 1)
	assert.Equal(t, "only on this device", tasks[0].Content)
}

func TestSignOutSaveFailureKeepsSessionRecord(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	h := newHarnessWithStore(t, newStoreOn(t, kv), nil)
	require.NoError(t, h.sync.Load(ctx, today))
	require.NoError(t, h.sync.SignIn(ctx, "user-1", "token"))
	_, err := h.tasks.CreateTask(ctx, ports.CreateTaskRequest{Content: "sealed for user-1"})
	require.NoError(t, err)

	kv.failSets(true)
	assert.Error(t, h.sync.SignOut(ctx))
	kv.failSets(false)

	restarted := newHarnessWithStore(t, newStoreOn(t, kv), nil)
	require.NoError(t, restarted.sync.Load(ctx, today))

	userID, _ := restarted.session.Identity()
	assert.Equal(t, "user-1", userID)
	assert.Len(t, restarted.session.Tasks(today), 1)
}

func TestLoadRestoresRememberedUser(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	first := newHarness(t, remote)
	require.NoError(t, first.sync.Load(ctx, today))
	require.NoError(t, first.sync.SignIn(ctx, "user-1", "token"))
	_, err := first.tasks.CreateTask(ctx, ports.CreateTaskRequest{Content: "survives restart"})
	require.NoError(t, err)
	first.flush(t)

	second := newHarnessWithStore(t, first.store, remote)
	require.NoError(t, second.sync.Load(ctx, today))

	userID, _ := second.session.Identity()
	assert.Equal(t, "user-1", userID)
	tasks := second.session.Tasks(today)
	require.Len(t, tasks, 1)
	assert.Equal(t, "survives restart", tasks[0].Content)
}

func TestCloseStopsNewPushes(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	h := newHarness(t, remote)
	require.NoError(t, h.sync.SignIn(ctx, "user-1", "token"))
	require.NoError(t, h.sync.Close(ctx))

	_, before := remote.counts()
	_, err := h.tasks.CreateTask(ctx, ports.CreateTaskRequest{Content: "late", Date: today})
	require.NoError(t, err)
	h.flush(t)

	_, after := remote.counts()
	assert.Equal(t, before, after)
}

func TestPersistResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, metrics.ResultSuccess},
		{context.DeadlineExceeded, metrics.ResultTimeout},
		{context.Canceled, metrics.ResultCancelled},
		{ports.ErrPartialPersist, metrics.ResultPartial},
		{errors.New("boom"), metrics.ResultFailure},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, persistResult(tt.err))
	}
}
