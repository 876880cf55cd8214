package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/daybook/internal/ports"
)

// TaskRowRepositoryImpl implements the TaskRowStore interface on Postgres
type TaskRowRepositoryImpl struct {
	db *sqlx.DB
}

// NewTaskRowRepository creates a new Postgres task row store
func NewTaskRowRepository(db *sqlx.DB) ports.TaskRowStore {
	return &TaskRowRepositoryImpl{db: db}
}

func (r *TaskRowRepositoryImpl) ListByUser(ctx context.Context, userID string) ([]ports.TaskRow, error) {
	query := `
		SELECT id, user_id, content, is_completed, created_at, completed_at,
			priority, date, position, has_reminder, is_encrypted
		FROM task_rows
		WHERE user_id = $1
		ORDER BY date ASC, position ASC`

	var rows []ports.TaskRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list task rows: %w", err)
	}
	return rows, nil
}

func (r *TaskRowRepositoryImpl) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM task_rows WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete task rows: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get affected rows: %w", err)
	}
	return n, nil
}

// InsertBatch writes rows with a single multi-row INSERT
func (r *TaskRowRepositoryImpl) InsertBatch(ctx context.Context, rows []ports.TaskRow) error {
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO task_rows (id, user_id, content, is_completed, created_at, completed_at,
			priority, date, position, has_reminder, is_encrypted)
		VALUES (:id, :user_id, :content, :is_completed, :created_at, :completed_at,
			:priority, :date, :position, :has_reminder, :is_encrypted)`

	if _, err := r.db.NamedExecContext(ctx, query, rows); err != nil {
		return fmt.Errorf("insert task rows: %w", err)
	}
	return nil
}
