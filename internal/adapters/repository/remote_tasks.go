package repository

import (
	"context"
	"fmt"

	"github.com/taskmaster/daybook/internal/domain/entities"
	"github.com/taskmaster/daybook/internal/infrastructure/crypto"
	"github.com/taskmaster/daybook/internal/infrastructure/logger"
	"github.com/taskmaster/daybook/internal/ports"
)

// DefaultBatchSize bounds the rows sent in one insert
const DefaultBatchSize = 50

// PartialPersistError reports how far a failed persist got. It matches
// ports.ErrPartialPersist; the remote copy is incomplete until the next persist.
type PartialPersistError struct {
	Written int
	Total   int
	Err     error
}

func (e *PartialPersistError) Error() string {
	return fmt.Sprintf("remote persist incomplete: wrote %d of %d rows: %v", e.Written, e.Total, e.Err)
}

func (e *PartialPersistError) Unwrap() []error {
	return []error{ports.ErrPartialPersist, e.Err}
}

// RemoteTaskRepositoryImpl implements the RemoteTaskRepository interface
type RemoteTaskRepositoryImpl struct {
	rows      ports.TaskRowStore
	codec     *crypto.Codec
	batchSize int
	logger    *logger.Logger
}

// NewRemoteTaskRepository creates a new remote task repository
func NewRemoteTaskRepository(rows ports.TaskRowStore, codec *crypto.Codec, batchSize int, log *logger.Logger) *RemoteTaskRepositoryImpl {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &RemoteTaskRepositoryImpl{
		rows:      rows,
		codec:     codec,
		batchSize: batchSize,
		logger:    log.WithComponent("remote_tasks"),
	}
}

// Fetch loads every row of the user and groups them by date in position order
func (r *RemoteTaskRepositoryImpl) Fetch(ctx context.Context, userID string) (entities.Collection, error) {
	rows, err := r.rows.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch remote tasks: %w", err)
	}

	out := entities.Collection{}
	for _, row := range rows {
		if !entities.IsValidDate(row.Date) {
			r.logger.Warnw("Skipping remote row with invalid date", "id", row.ID, "date", row.Date)
			continue
		}

		content := row.Content
		if row.IsEncrypted {
			content = r.codec.DecryptText(content, userID)
		}

		priority, ok := entities.ParsePriority(row.Priority)
		if !ok {
			priority = entities.DefaultPriority
		}

		task := entities.Task{
			ID:          row.ID,
			Content:     content,
			IsCompleted: row.IsCompleted,
			CreatedAt:   row.CreatedAt.UTC(),
			Priority:    priority,
			Date:        row.Date,
			HasReminder: row.HasReminder,
		}
		if row.IsCompleted && row.CompletedAt != nil {
			at := row.CompletedAt.UTC()
			task.CompletedAt = &at
		}

		out[row.Date] = append(out[row.Date], task)
	}
	return out, nil
}

// Persist replaces the user's rows with c. It deletes first and then inserts
// in batches, so it is not atomic: a failure part way returns a
// *PartialPersistError and the next persist repairs the remote copy.
func (r *RemoteTaskRepositoryImpl) Persist(ctx context.Context, c entities.Collection, userID string) error {
	rows, err := r.toRows(c, userID)
	if err != nil {
		return err
	}

	if _, err := r.rows.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("clear remote tasks: %w", err)
	}

	written := 0
	for start := 0; start < len(rows); start += r.batchSize {
		end := min(start+r.batchSize, len(rows))
		if err := r.rows.InsertBatch(ctx, rows[start:end]); err != nil {
			return &PartialPersistError{Written: written, Total: len(rows), Err: err}
		}
		written = end
	}

	r.logger.Debugw("Remote tasks persisted", "user_id", userID, "rows", written)
	return nil
}

// DeleteAll removes every row of the user
func (r *RemoteTaskRepositoryImpl) DeleteAll(ctx context.Context, userID string) (int64, error) {
	n, err := r.rows.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete remote tasks: %w", err)
	}
	return n, nil
}

// toRows flattens c in date order. Repeated identifiers keep their first
// occurrence; non-canonical identifiers are regenerated.
func (r *RemoteTaskRepositoryImpl) toRows(c entities.Collection, userID string) ([]ports.TaskRow, error) {
	seen := make(map[string]struct{}, c.Len())
	rows := make([]ports.TaskRow, 0, c.Len())

	for _, date := range c.Dates() {
		position := 0
		for _, task := range c[date] {
			id := entities.EnsureCanonicalID(task.ID)
			if _, dup := seen[id]; dup {
				r.logger.Warnw("Skipping task with duplicate identifier", "id", id, "date", date)
				continue
			}
			seen[id] = struct{}{}

			content, err := r.codec.EncryptText(task.Content, userID)
			if err != nil {
				return nil, fmt.Errorf("encrypt task %s: %w", id, err)
			}

			row := ports.TaskRow{
				ID:          id,
				UserID:      userID,
				Content:     content,
				IsCompleted: task.IsCompleted,
				CreatedAt:   task.CreatedAt.UTC(),
				Priority:    string(task.Priority),
				Date:        date,
				Position:    position,
				HasReminder: task.HasReminder,
				IsEncrypted: true,
			}
			if task.IsCompleted && task.CompletedAt != nil {
				at := task.CompletedAt.UTC()
				row.CompletedAt = &at
			}
			if row.Priority == "" {
				row.Priority = string(entities.DefaultPriority)
			}

			rows = append(rows, row)
			position++
		}
	}
	return rows, nil
}
