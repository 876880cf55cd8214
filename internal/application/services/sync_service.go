package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/taskmaster/daybook/internal/domain/entities"
	"github.com/taskmaster/daybook/internal/domain/tasklist"
	"github.com/taskmaster/daybook/internal/infrastructure/logger"
	"github.com/taskmaster/daybook/internal/infrastructure/metrics"
	"github.com/taskmaster/daybook/internal/ports"
)

// DefaultRemoteTimeout bounds a single remote push
const DefaultRemoteTimeout = 800 * time.Millisecond

// ErrRemoteDisabled is returned by operations that need a remote store when none is configured
var ErrRemoteDisabled = errors.New("remote sync is not configured")

// pushJob is one snapshot queued for the remote store
type pushJob struct {
	tasks    entities.Collection
	revision uint64
	userID   string
	epoch    uint64
}

// SyncService keeps the session persisted: always on the device, and in the
// remote store while a user is signed in. Remote pushes run in the
// background; a newer push cancels the one in flight and runs after it.
type SyncService struct {
	session *Session
	local   ports.LocalTaskStore
	remote  ports.RemoteTaskRepository
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *logger.Logger
	now     func() time.Time

	saveMu        sync.Mutex
	savedRevision uint64
	savedIdentity string
	localErr      error

	pushMu         sync.Mutex
	pushCtx        context.Context
	stopPushes     context.CancelFunc
	pushes         sync.WaitGroup
	closed         bool
	epoch          uint64 // bumped whenever the signed-in identity changes
	remoteReady    bool   // a fetch succeeded for the current identity
	cancelPush     context.CancelFunc
	pushDone       chan struct{}
	inFlight       int
	queuedRevision uint64
	pushedRevision uint64
	remoteErr      error
	remoteSyncedAt *time.Time
}

// NewSyncService creates a sync service. remote may be nil, in which case the
// app only persists locally.
func NewSyncService(session *Session, local ports.LocalTaskStore, remote ports.RemoteTaskRepository, timeout time.Duration, m *metrics.Metrics, log *logger.Logger) *SyncService {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SyncService{
		session:    session,
		local:      local,
		remote:     remote,
		timeout:    timeout,
		metrics:    m,
		logger:     log.WithComponent("sync"),
		now:        time.Now,
		pushCtx:    ctx,
		stopPushes: cancel,
	}
}

// RemoteEnabled reports whether a remote store is configured
func (s *SyncService) RemoteEnabled() bool {
	return s.remote != nil
}

// Load restores the session from the device, merges the remote copy when a
// remembered user is signed in, and carries unfinished past tasks to today.
func (s *SyncService) Load(ctx context.Context, today string) error {
	if !entities.IsValidDate(today) {
		return entities.ErrInvalidDate
	}

	userID := s.local.LoadSession(ctx)
	if userID != "" {
		s.session.signIn(userID, "")
	}
	s.session.Reset(s.local.Load(ctx, userID), today)

	s.saveMu.Lock()
	s.savedRevision = s.session.Revision()
	s.savedIdentity = userID
	s.saveMu.Unlock()

	if userID != "" && s.remote != nil {
		if err := s.pull(ctx, userID); err != nil {
			s.logger.Warnw("Starting with the local copy only", "user_id", userID, "error", err.Error())
		}
	}

	moved := 0
	if _, err := s.session.Mutate(func(c entities.Collection) (entities.Collection, error) {
		next, changed := tasklist.CarryForward(c, today)
		if !changed {
			return nil, errUnchanged
		}
		moved = len(next[today]) - len(c[today])
		return next, nil
	}); err != nil {
		return fmt.Errorf("carry forward: %w", err)
	}
	if moved > 0 {
		s.metrics.ObserveCarryForward(moved)
		s.logger.Infow("Carried unfinished tasks forward", "date", today, "tasks", moved)
	}

	s.logger.Infow("Session loaded", "date", today, "tasks", len(s.session.Tasks(today)), "signed_in", userID != "")
	return s.Save(ctx)
}

// SignIn switches the session to userID. The remote copy is merged into the
// local one; if it cannot be fetched the session keeps the local copy and
// does not push until a later Resync succeeds.
func (s *SyncService) SignIn(ctx context.Context, userID, token string) error {
	if userID == "" {
		return entities.ErrNotAuthenticated
	}

	_ = s.haltRemote(ctx, false)
	s.session.signIn(userID, token)

	if s.remote != nil {
		if err := s.pull(ctx, userID); err != nil {
			s.logger.Errorw("Failed to fetch remote tasks, continuing with local copy", "user_id", userID, "error", err.Error())
		}
	}

	s.logger.Infow("Signed in", "user_id", userID)

	// the session record must never name a user the local record is not sealed for
	if err := s.save(ctx, true); err != nil {
		return err
	}
	if err := s.local.SaveSession(ctx, userID); err != nil {
		s.logger.Warnw("Failed to remember signed-in user", "user_id", userID, "error", err.Error())
	}
	return nil
}

// SignOut drops the identity and re-seals the local copy with the anonymous key
func (s *SyncService) SignOut(ctx context.Context) error {
	userID, _ := s.session.Identity()
	_ = s.haltRemote(ctx, false)
	s.session.signOut()
	s.logger.Infow("Signed out", "user_id", userID)

	if err := s.save(ctx, true); err != nil {
		return err
	}
	if err := s.local.ClearSession(ctx); err != nil {
		s.logger.Warnw("Failed to forget signed-in user", "error", err.Error())
	}
	return nil
}

// Resync fetches the remote copy again, merges it and pushes the result
func (s *SyncService) Resync(ctx context.Context) error {
	userID, _ := s.session.Identity()
	if userID == "" {
		return entities.ErrNotAuthenticated
	}
	if s.remote == nil {
		return ErrRemoteDisabled
	}
	if err := s.pull(ctx, userID); err != nil {
		return err
	}
	return s.Save(ctx)
}

// Save persists the current revision locally and queues a remote push when
// the revision has not been sent yet. Only the local error is returned; remote
// outcomes are reported through Status.
func (s *SyncService) Save(ctx context.Context) error {
	return s.save(ctx, false)
}

func (s *SyncService) save(ctx context.Context, force bool) error {
	s.saveMu.Lock()
	c, revision := s.session.Snapshot()
	userID, _ := s.session.Identity()

	var err error
	if force || revision != s.savedRevision || userID != s.savedIdentity {
		start := time.Now()
		err = s.local.Save(ctx, c, userID)
		s.metrics.ObserveLocalSave(err)
		s.logger.LogSyncEvent("local", revision, millisSince(start), err)
		if err == nil {
			s.savedRevision = revision
			s.savedIdentity = userID
		}
		s.localErr = err
	}
	s.saveMu.Unlock()

	s.schedulePush(c, revision, userID)

	if err != nil {
		return fmt.Errorf("save locally: %w", err)
	}
	return nil
}

// Flush waits until the most recently queued push has finished
func (s *SyncService) Flush(ctx context.Context) error {
	s.pushMu.Lock()
	done := s.pushDone
	s.pushMu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close waits for pending pushes and then stops accepting new ones
func (s *SyncService) Close(ctx context.Context) error {
	err := s.Flush(ctx)

	s.pushMu.Lock()
	s.closed = true
	s.pushMu.Unlock()

	s.stopPushes()
	s.pushes.Wait()
	return err
}

// Status reports what has been persisted where
func (s *SyncService) Status() ports.SyncStatus {
	userID, _ := s.session.Identity()
	status := ports.SyncStatus{
		Revision:      s.session.Revision(),
		SignedIn:      userID != "",
		UserID:        userID,
		RemoteEnabled: s.remote != nil,
	}

	s.saveMu.Lock()
	status.LocalRevision = s.savedRevision
	if s.localErr != nil {
		status.LastLocalError = s.localErr.Error()
	}
	s.saveMu.Unlock()

	s.pushMu.Lock()
	status.RemoteRevision = s.pushedRevision
	status.PushInFlight = s.inFlight > 0
	if s.remoteErr != nil {
		status.LastRemoteError = s.remoteErr.Error()
	}
	if s.remoteSyncedAt != nil {
		at := *s.remoteSyncedAt
		status.LastRemoteSyncedAt = &at
	}
	s.pushMu.Unlock()

	return status
}

// DeleteRemote stops pushing for userID, waits for the push in flight and
// removes every remote row of the user.
func (s *SyncService) DeleteRemote(ctx context.Context, userID string) (int64, error) {
	if s.remote == nil {
		return 0, nil
	}
	if current, _ := s.session.Identity(); current == userID {
		if err := s.haltRemote(ctx, true); err != nil {
			return 0, err
		}
	}
	return s.remote.DeleteAll(ctx, userID)
}

// Wipe signs out and forgets every task, in memory and on the device
func (s *SyncService) Wipe(ctx context.Context) error {
	_ = s.haltRemote(ctx, true)
	s.session.signOut()

	revision, _ := s.session.Mutate(func(c entities.Collection) (entities.Collection, error) {
		if len(c) == 0 {
			return nil, errUnchanged
		}
		return entities.Collection{}, nil
	})

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if err := s.local.Clear(ctx); err != nil {
		s.localErr = err
		return err
	}
	s.savedRevision = revision
	s.savedIdentity = ""
	s.localErr = nil
	return nil
}

// pull fetches the user's remote rows and merges them into the session
func (s *SyncService) pull(ctx context.Context, userID string) error {
	remote, err := s.remote.Fetch(ctx, userID)
	if err != nil {
		s.pushMu.Lock()
		s.remoteReady = false
		s.remoteErr = err
		s.pushMu.Unlock()
		return err
	}

	stale := false
	if _, err := s.session.Mutate(func(c entities.Collection) (entities.Collection, error) {
		// the identity may have changed while the fetch was running
		if s.session.userID != userID {
			stale = true
			return nil, errUnchanged
		}
		return tasklist.Merge(c, remote), nil
	}); err != nil {
		return err
	}
	if stale {
		return entities.ErrNotAuthenticated
	}
	s.metrics.ObserveMerge(metrics.MergeRemote)

	s.pushMu.Lock()
	s.remoteReady = true
	s.remoteErr = nil
	s.pushMu.Unlock()

	s.logger.Debugw("Merged remote tasks", "user_id", userID, "remote_tasks", remote.Len())
	return nil
}

// haltRemote blocks new pushes, optionally cancels the one in flight, and
// waits for it to finish. State left by pushes of the previous identity is
// discarded.
func (s *SyncService) haltRemote(ctx context.Context, cancel bool) error {
	s.pushMu.Lock()
	s.epoch++
	s.remoteReady = false
	s.queuedRevision = 0
	s.pushedRevision = 0
	s.remoteErr = nil
	s.remoteSyncedAt = nil
	if cancel && s.cancelPush != nil {
		s.cancelPush()
	}
	s.pushMu.Unlock()

	if err := s.Flush(ctx); err != nil {
		s.logger.Warnw("Gave up waiting for remote push", "error", err.Error())
		return err
	}
	return nil
}

func (s *SyncService) schedulePush(c entities.Collection, revision uint64, userID string) {
	if s.remote == nil || userID == "" {
		return
	}

	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	if s.closed || !s.remoteReady || revision <= s.queuedRevision {
		return
	}
	s.queuedRevision = revision

	if s.cancelPush != nil {
		s.cancelPush()
	}
	ctx, cancel := context.WithCancel(s.pushCtx)
	prev := s.pushDone
	done := make(chan struct{})
	s.cancelPush = cancel
	s.pushDone = done
	s.inFlight++

	job := pushJob{tasks: c, revision: revision, userID: userID, epoch: s.epoch}
	s.pushes.Add(1)
	go s.push(ctx, cancel, prev, done, job)
}

// push runs after the previous push has returned, so two persists for the
// same user never interleave.
func (s *SyncService) push(ctx context.Context, cancel context.CancelFunc, prev <-chan struct{}, done chan struct{}, job pushJob) {
	defer s.pushes.Done()
	defer close(done)
	defer cancel()

	if prev != nil {
		<-prev
	}

	start := time.Now()
	result := metrics.ResultCancelled
	var err error
	if ctx.Err() == nil {
		pctx, pcancel := context.WithTimeout(ctx, s.timeout)
		err = s.remote.Persist(pctx, job.tasks, job.userID)
		pcancel()
		result = persistResult(err)
		s.metrics.ObserveRemotePersist(result, time.Since(start).Seconds())
	}

	s.finishPush(job, result, err, millisSince(start))
}

func (s *SyncService) finishPush(job pushJob, result string, err error, elapsed float64) {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	s.inFlight--
	if job.epoch != s.epoch {
		return
	}

	switch result {
	case metrics.ResultSuccess:
		if job.revision > s.pushedRevision {
			s.pushedRevision = job.revision
		}
		s.remoteErr = nil
		at := s.now().UTC()
		s.remoteSyncedAt = &at
		s.logger.LogSyncEvent("remote", job.revision, elapsed, nil)
	case metrics.ResultCancelled:
		s.logger.Debugw("Remote push superseded", "revision", job.revision)
	default:
		s.remoteErr = err
		// let the next save queue this revision again
		if s.queuedRevision == job.revision {
			s.queuedRevision = s.pushedRevision
		}
		s.logger.LogSyncEvent("remote", job.revision, elapsed, err)
	}
}

func persistResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, context.DeadlineExceeded):
		return metrics.ResultTimeout
	case errors.Is(err, context.Canceled):
		return metrics.ResultCancelled
	case errors.Is(err, ports.ErrPartialPersist):
		return metrics.ResultPartial
	default:
		return metrics.ResultFailure
	}
}

func millisSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
