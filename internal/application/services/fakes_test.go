package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/daybook/internal/adapters/local"
	"github.com/taskmaster/daybook/internal/adapters/markdown"
	"github.com/taskmaster/daybook/internal/domain/entities"
	"github.com/taskmaster/daybook/internal/infrastructure/crypto"
	"github.com/taskmaster/daybook/internal/infrastructure/logger"
	"github.com/taskmaster/daybook/internal/infrastructure/metrics"
	"github.com/taskmaster/daybook/internal/ports"
)

var testNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

const (
	today     = "2024-06-01"
	yesterday = "2024-05-31"
)

// fakeRemote keeps one collection per user. When gate is set, Persist blocks
// until the gate is closed or its context ends.
type fakeRemote struct {
	mu         sync.Mutex
	data       map[string]entities.Collection
	fetchErr   error
	persistErr error
	deleteErr  error
	gate       chan struct{}
	calls      int
	successes  int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{data: map[string]entities.Collection{}}
}

func (f *fakeRemote) Fetch(_ context.Context, userID string) (entities.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.data[userID].Clone(), nil
}

func (f *fakeRemote) Persist(ctx context.Context, c entities.Collection, userID string) error {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.persistErr != nil {
		return f.persistErr
	}
	f.data[userID] = c.Clone()
	f.successes++
	return nil
}

func (f *fakeRemote) DeleteAll(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	n := int64(f.data[userID].Len())
	delete(f.data, userID)
	return n, nil
}

func (f *fakeRemote) stored(userID string) entities.Collection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[userID].Clone()
}

func (f *fakeRemote) counts() (calls, successes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, f.successes
}

// fakeProfiles is an in-memory ProfileRepository
type fakeProfiles struct {
	mu        sync.Mutex
	profiles  map[uuid.UUID]*entities.Profile
	createErr error
	deleteErr error
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: map[uuid.UUID]*entities.Profile{}}
}

func (f *fakeProfiles) Create(_ context.Context, p *entities.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	p.CreatedAt, p.UpdatedAt = testNow, testNow
	cp := *p
	f.profiles[p.ID] = &cp
	return nil
}

func (f *fakeProfiles) GetByID(_ context.Context, id uuid.UUID) (*entities.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.profiles, id)
	return nil
}

// fakeIdentities is an in-memory IdentityRepository
type fakeIdentities struct {
	mu         sync.Mutex
	identities map[string]*entities.Identity
	tokens     map[string]*ports.RefreshToken
	deleteErr  error
}

func newFakeIdentities() *fakeIdentities {
	return &fakeIdentities{
		identities: map[string]*entities.Identity{},
		tokens:     map[string]*ports.RefreshToken{},
	}
}

func (f *fakeIdentities) Create(_ context.Context, identity *entities.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	email := strings.ToLower(identity.Email)
	if _, ok := f.identities[email]; ok {
		return entities.ErrUserAlreadyExists
	}
	cp := *identity
	cp.Email = email
	f.identities[email] = &cp
	return nil
}

func (f *fakeIdentities) GetByEmail(_ context.Context, email string) (*entities.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	identity, ok := f.identities[strings.ToLower(email)]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	cp := *identity
	return &cp, nil
}

func (f *fakeIdentities) UpdateLastLogin(_ context.Context, userID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, identity := range f.identities {
		if identity.UserID == userID {
			identity.LastLoginAt = &at
		}
	}
	return nil
}

func (f *fakeIdentities) Delete(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for email, identity := range f.identities {
		if identity.UserID == userID {
			delete(f.identities, email)
		}
	}
	for hash, token := range f.tokens {
		if token.UserID == userID {
			delete(f.tokens, hash)
		}
	}
	return nil
}

func (f *fakeIdentities) CreateRefreshToken(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[tokenHash] = &ports.RefreshToken{UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	return nil
}

func (f *fakeIdentities) GetRefreshToken(_ context.Context, tokenHash string) (*ports.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[tokenHash]
	if !ok {
		return nil, errors.New("refresh token not found")
	}
	cp := *token
	return &cp, nil
}

func (f *fakeIdentities) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token, ok := f.tokens[tokenHash]; ok {
		now := time.Now()
		token.RevokedAt = &now
	}
	return nil
}

func (f *fakeIdentities) RevokeAllUserTokens(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for _, token := range f.tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			token.RevokedAt = &now
		}
	}
	return nil
}

func (f *fakeIdentities) has(email string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.identities[email]
	return ok
}

// harness wires the services the way the server does, on in-memory backends
type harness struct {
	session  *Session
	store    *local.Store
	remote   *fakeRemote
	sync     *SyncService
	tasks    *TaskService
	transfer *TransferService
	metrics  *metrics.Metrics
}

func newHarness(t *testing.T, remote *fakeRemote) *harness {
	t.Helper()
	codec, err := crypto.NewCodec("services-test-secret", logger.Nop())
	require.NoError(t, err)
	store := local.NewStore(local.NewMemoryKV(), codec, logger.Nop())
	return newHarnessWithStore(t, store, remote)
}

func newHarnessWithStore(t *testing.T, store *local.Store, remote *fakeRemote) *harness {
	t.Helper()
	m := metrics.New()
	session := NewSession()

	var repo ports.RemoteTaskRepository
	if remote != nil {
		repo = remote
	}
	syncSvc := NewSyncService(session, store, repo, 200*time.Millisecond, m, logger.Nop())
	syncSvc.now = func() time.Time { return testNow }

	tasks := NewTaskService(session, syncSvc, logger.Nop())
	tasks.now = func() time.Time { return testNow }

	transfer := NewTransferService(session, syncSvc, markdown.Codec{}, m, logger.Nop())
	transfer.now = func() time.Time { return testNow }

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = syncSvc.Close(ctx)
	})

	return &harness{
		session:  session,
		store:    store,
		remote:   remote,
		sync:     syncSvc,
		tasks:    tasks,
		transfer: transfer,
		metrics:  m,
	}
}

// flakyKV is a MemoryKV whose writes can be made to fail
type flakyKV struct {
	*local.MemoryKV
	mu   sync.Mutex
	fail bool
}

func newFlakyKV() *flakyKV {
	return &flakyKV{MemoryKV: local.NewMemoryKV()}
}

func (f *flakyKV) failSets(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = on
}

func (f *flakyKV) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return f.MemoryKV.Set(ctx, key, value)
}

func newStoreOn(t *testing.T, kv ports.KeyValueStore) *local.Store {
	t.Helper()
	codec, err := crypto.NewCodec("services-test-secret", logger.Nop())
	require.NoError(t, err)
	return local.NewStore(kv, codec, logger.Nop())
}

func (h *harness) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.sync.Flush(ctx))
}

func openTask(content, date string, created time.Time) entities.Task {
	return entities.Task{
		ID:        entities.NewID(),
		Content:   content,
		CreatedAt: created,
		Priority:  entities.PriorityMedium,
		Date:      date,
	}
}
