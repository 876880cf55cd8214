package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskmaster/daybook/internal/infrastructure/logger"
	"github.com/taskmaster/daybook/internal/ports"
)

// Account deletion steps, in the order they run
const (
	StepRemoteTasks  = "remote_tasks"
	StepProfile      = "profile"
	StepIdentity     = "identity"
	StepLocalSession = "local_session"
)

// AccountDeletionError names the step an account deletion stopped at. The
// steps before it have completed; the ones after it have not run.
type AccountDeletionError struct {
	Step string
	Err  error
}

func (e *AccountDeletionError) Error() string {
	return fmt.Sprintf("account deletion failed at %s: %v", e.Step, e.Err)
}

func (e *AccountDeletionError) Unwrap() error {
	return e.Err
}

// AccountService removes an account and everything stored for it
type AccountService struct {
	sync       *SyncService
	profiles   ports.ProfileRepository
	identities ports.IdentityRepository
	logger     *logger.Logger
}

// NewAccountService creates a new account service
func NewAccountService(sync *SyncService, profiles ports.ProfileRepository, identities ports.IdentityRepository, logger *logger.Logger) *AccountService {
	return &AccountService{
		sync:       sync,
		profiles:   profiles,
		identities: identities,
		logger:     logger.WithComponent("account"),
	}
}

// DeleteAccount runs the deletion steps in order and stops at the first
// failure. Every step tolerates already-deleted data, so a failed deletion
// can simply be retried. The local session is only touched when it belongs
// to the deleted user.
func (s *AccountService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	log := s.logger.WithUserID(userID.String())

	rows, err := s.sync.DeleteRemote(ctx, userID.String())
	if err != nil {
		return s.fail(log, StepRemoteTasks, err)
	}
	log.Infow("Remote tasks deleted", "rows", rows)

	if err := s.profiles.Delete(ctx, userID); err != nil {
		return s.fail(log, StepProfile, err)
	}

	if err := s.identities.Delete(ctx, userID); err != nil {
		return s.fail(log, StepIdentity, err)
	}

	if current, _ := s.sync.session.Identity(); current == userID.String() {
		if err := s.sync.Wipe(ctx); err != nil {
			return s.fail(log, StepLocalSession, err)
		}
	}

	log.Info("Account deleted")
	return nil
}

func (s *AccountService) fail(log *logger.Logger, step string, err error) error {
	log.Errorw("Account deletion stopped", "step", step, "error", err.Error())
	return &AccountDeletionError{Step: step, Err: err}
}
