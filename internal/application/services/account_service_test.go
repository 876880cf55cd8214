package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/daybook/internal/domain/entities"
	"github.com/taskmaster/daybook/internal/infrastructure/logger"
	"github.com/taskmaster/daybook/internal/ports"
)

type accountFixture struct {
	h          *harness
	profiles   *fakeProfiles
	identities *fakeIdentities
	accounts   *AccountService
	userID     uuid.UUID
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	ctx := context.Background()
	h := newHarness(t, newFakeRemote())
	require.NoError(t, h.sync.Load(ctx, today))

	profiles := newFakeProfiles()
	identities := newFakeIdentities()
	userID := uuid.New()
	require.NoError(t, profiles.Create(ctx, &entities.Profile{ID: userID, Email: "ada@example.com"}))
	require.NoError(t, identities.Create(ctx, &entities.Identity{UserID: userID, Email: "ada@example.com", PasswordHash: "x"}))

	require.NoError(t, h.sync.SignIn(ctx, userID.String(), "token"))
	_, err := h.tasks.CreateTask(ctx, ports.CreateTaskRequest{Content: "secret plans"})
	require.NoError(t, err)
	h.flush(t)
	require.Len(t, h.remote.stored(userID.String())[today], 1)

	return &accountFixture{
		h:          h,
		profiles:   profiles,
		identities: identities,
		accounts:   NewAccountService(h.sync, profiles, identities, logger.Nop()),
		userID:     userID,
	}
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t)

	require.NoError(t, f.accounts.DeleteAccount(ctx, f.userID))

	assert.Empty(t, f.h.remote.stored(f.userID.String()))
	_, err := f.profiles.GetByID(ctx, f.userID)
	assert.ErrorIs(t, err, entities.ErrUserNotFound)
	assert.False(t, f.identities.has("ada@example.com"))

	assert.False(t, f.h.session.SignedIn())
	snap, _ := f.h.session.Snapshot()
	assert.Empty(t, snap)
	assert.Equal(t, "", f.h.store.LoadSession(ctx))
	assert.Empty(t, f.h.store.Load(ctx, f.userID.String()))

	// later edits stay on the device
	_, err = f.h.tasks.CreateTask(ctx, ports.CreateTaskRequest{Content: "fresh start"})
	require.NoError(t, err)
	f.h.flush(t)
	assert.Empty(t, f.h.remote.stored(f.userID.String()))
}

func TestDeleteAccountStopsAtFirstFailure(t *testing.T) {
	tests := []struct {
		name   string
		inject func(*accountFixture)
		step   string
	}{
		{"remote rows", func(f *accountFixture) { f.h.remote.deleteErr = errors.New("timeout") }, StepRemoteTasks},
		{"profile", func(f *accountFixture) { f.profiles.deleteErr = errors.New("locked") }, StepProfile},
		{"identity", func(f *accountFixture) { f.identities.deleteErr = errors.New("locked") }, StepIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newAccountFixture(t)
			tt.inject(f)

			err := f.accounts.DeleteAccount(ctx, f.userID)

			var delErr *AccountDeletionError
			require.ErrorAs(t, err, &delErr)
			assert.Equal(t, tt.step, delErr.Step)
			assert.True(t, f.h.session.SignedIn(), "the session survives a failed deletion")
			assert.Len(t, f.h.session.Tasks(today), 1)

			if tt.step == StepRemoteTasks {
				_, err := f.profiles.GetByID(ctx, f.userID)
				assert.NoError(t, err, "later steps do not run")
			}
			if tt.step == StepProfile {
				assert.True(t, f.identities.has("ada@example.com"), "later steps do not run")
			}
		})
	}
}

func TestDeleteAccountCanBeRetried(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t)
	f.identities.deleteErr = errors.New("locked")

	require.Error(t, f.accounts.DeleteAccount(ctx, f.userID))

	f.identities.deleteErr = nil
	require.NoError(t, f.accounts.DeleteAccount(ctx, f.userID))
	assert.False(t, f.h.session.SignedIn())
}

func TestDeleteAccountOfAnotherUserKeepsSession(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t)
	other := uuid.New()

	require.NoError(t, f.accounts.DeleteAccount(ctx, other))

	assert.True(t, f.h.session.SignedIn())
	assert.Len(t, f.h.remote.stored(f.userID.String())[today], 1)
}
