package services

import (
	"context"
	"time"

	"github.com/taskmaster/daybook/internal/domain/entities"
	"github.com/taskmaster/daybook/internal/domain/tasklist"
	"github.com/taskmaster/daybook/internal/infrastructure/logger"
	"github.com/taskmaster/daybook/internal/infrastructure/metrics"
	"github.com/taskmaster/daybook/internal/ports"
)

// TransferService moves the collection in and out of a portable document
type TransferService struct {
	session *Session
	sync    *SyncService
	codec   ports.DocumentCodec
	metrics *metrics.Metrics
	logger  *logger.Logger
	now     func() time.Time
}

// NewTransferService creates a new transfer service
func NewTransferService(session *Session, sync *SyncService, codec ports.DocumentCodec, m *metrics.Metrics, logger *logger.Logger) *TransferService {
	return &TransferService{
		session: session,
		sync:    sync,
		codec:   codec,
		metrics: m,
		logger:  logger.WithComponent("transfer"),
		now:     time.Now,
	}
}

// ExportMarkdown renders the whole collection and suggests a file name
func (s *TransferService) ExportMarkdown() (filename, document string) {
	c, _ := s.session.Snapshot()
	return s.codec.Filename(s.now()), s.codec.Serialize(c)
}

// ImportMarkdown merges the tasks found in document into the session. A
// document without a single task is rejected with entities.ErrNoValidTasks.
func (s *TransferService) ImportMarkdown(ctx context.Context, document string) (*ports.ImportResponse, error) {
	imported, n := s.codec.Parse(document, s.now())
	if n == 0 {
		return nil, entities.ErrNoValidTasks
	}

	if _, err := s.session.Mutate(func(c entities.Collection) (entities.Collection, error) {
		return tasklist.MergeImported(c, imported), nil
	}); err != nil {
		return nil, err
	}
	s.metrics.ObserveMerge(metrics.MergeImport)

	if err := s.sync.Save(ctx); err != nil {
		s.logger.Errorw("Failed to save imported tasks", "error", err.Error())
	}

	c, _ := s.session.Snapshot()
	s.logger.Infow("Tasks imported", "parsed", n, "total", c.Len())
	return &ports.ImportResponse{Imported: n, Total: c.Len()}, nil
}
