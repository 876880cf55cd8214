package services

import (
	"context"
	"fmt"
	"time"

	"github.com/taskmaster/daybook/internal/domain/entities"
	"github.com/taskmaster/daybook/internal/domain/tasklist"
	"github.com/taskmaster/daybook/internal/infrastructure/logger"
	"github.com/taskmaster/daybook/internal/ports"
)

// TaskService applies task mutations to the session and saves after each one
type TaskService struct {
	session *Session
	sync    *SyncService
	logger  *logger.Logger
	now     func() time.Time
}

// NewTaskService creates a new task service
func NewTaskService(session *Session, sync *SyncService, logger *logger.Logger) *TaskService {
	return &TaskService{
		session: session,
		sync:    sync,
		logger:  logger.WithComponent("tasks"),
		now:     time.Now,
	}
}

// CreateTask adds a task under req.Date, or the active date when none is given
func (s *TaskService) CreateTask(ctx context.Context, req ports.CreateTaskRequest) (*entities.Task, error) {
	date := req.Date
	if date == "" {
		date = s.session.ActiveDate()
	}

	priority := entities.DefaultPriority
	if req.Priority != "" {
		p, ok := entities.ParsePriority(req.Priority)
		if !ok {
			return nil, entities.ErrInvalidPriority
		}
		priority = p
	}

	in := entities.NewTask{Content: req.Content, Priority: priority, HasReminder: req.HasReminder}
	task, err := s.apply(ctx, func(c entities.Collection) (entities.Collection, entities.Task, error) {
		return tasklist.Add(c, date, in, s.now())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add task: %w", err)
	}

	s.logger.Infow("Task created", "task_id", task.ID, "date", task.Date)
	return task, nil
}

// ToggleStatus flips the completion state of a task
func (s *TaskService) ToggleStatus(ctx context.Context, id string) (*entities.Task, error) {
	return s.apply(ctx, func(c entities.Collection) (entities.Collection, entities.Task, error) {
		return tasklist.ToggleStatus(c, id, s.now())
	})
}

// SetStatus marks a task done or open
func (s *TaskService) SetStatus(ctx context.Context, id string, completed bool) (*entities.Task, error) {
	return s.apply(ctx, func(c entities.Collection) (entities.Collection, entities.Task, error) {
		return tasklist.SetStatus(c, id, completed, s.now())
	})
}

// UpdateContent replaces the text of a task
func (s *TaskService) UpdateContent(ctx context.Context, id, content string) (*entities.Task, error) {
	return s.apply(ctx, func(c entities.Collection) (entities.Collection, entities.Task, error) {
		return tasklist.UpdateContent(c, id, content)
	})
}

// ChangePriority sets the priority of a task
func (s *TaskService) ChangePriority(ctx context.Context, id, priority string) (*entities.Task, error) {
	p, ok := entities.ParsePriority(priority)
	if !ok {
		return nil, entities.ErrInvalidPriority
	}
	return s.apply(ctx, func(c entities.Collection) (entities.Collection, entities.Task, error) {
		return tasklist.ChangePriority(c, id, p)
	})
}

// SetReminder turns the reminder flag of a task on or off
func (s *TaskService) SetReminder(ctx context.Context, id string, on bool) (*entities.Task, error) {
	return s.apply(ctx, func(c entities.Collection) (entities.Collection, entities.Task, error) {
		return tasklist.SetReminder(c, id, on)
	})
}

// DeleteTask removes a task and returns it
func (s *TaskService) DeleteTask(ctx context.Context, id string) (*entities.Task, error) {
	task, err := s.apply(ctx, func(c entities.Collection) (entities.Collection, entities.Task, error) {
		return tasklist.Delete(c, id)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Task deleted", "task_id", id)
	return task, nil
}

// MoveTask files a task under another date
func (s *TaskService) MoveTask(ctx context.Context, id, date string) (*entities.Task, error) {
	return s.apply(ctx, func(c entities.Collection) (entities.Collection, entities.Task, error) {
		return tasklist.Move(c, id, date)
	})
}

// Reorder moves the task at position from to position to within a date
func (s *TaskService) Reorder(ctx context.Context, date string, from, to int) ([]entities.Task, error) {
	if _, err := s.session.Mutate(func(c entities.Collection) (entities.Collection, error) {
		return tasklist.Reorder(c, date, from, to)
	}); err != nil {
		return nil, err
	}
	s.save(ctx)
	return s.session.Tasks(date), nil
}

// SortDay puts the open tasks of a date before the completed ones
func (s *TaskService) SortDay(ctx context.Context, date string) ([]entities.Task, error) {
	if !entities.IsValidDate(date) {
		return nil, entities.ErrInvalidDate
	}
	if _, err := s.session.Mutate(func(c entities.Collection) (entities.Collection, error) {
		return tasklist.SortUncompletedFirst(c, date), nil
	}); err != nil {
		return nil, err
	}
	s.save(ctx)
	return s.session.Tasks(date), nil
}

// SetActiveDate changes the date new tasks are filed under by default
func (s *TaskService) SetActiveDate(date string) error {
	return s.session.SetActiveDate(date)
}

func (s *TaskService) ActiveDate() string {
	return s.session.ActiveDate()
}

// List returns the tasks of date in display order
func (s *TaskService) List(date string) ([]entities.Task, error) {
	if !entities.IsValidDate(date) {
		return nil, entities.ErrInvalidDate
	}
	return s.session.Tasks(date), nil
}

// Snapshot returns the whole collection with the active date
func (s *TaskService) Snapshot() ports.CollectionResponse {
	c, revision := s.session.Snapshot()
	return ports.CollectionResponse{
		ActiveDate: s.session.ActiveDate(),
		Tasks:      c,
		Revision:   revision,
	}
}

func (s *TaskService) apply(ctx context.Context, fn func(entities.Collection) (entities.Collection, entities.Task, error)) (*entities.Task, error) {
	var task entities.Task
	if _, err := s.session.Mutate(func(c entities.Collection) (entities.Collection, error) {
		next, t, err := fn(c)
		task = t
		return next, err
	}); err != nil {
		return nil, err
	}
	s.save(ctx)
	return &task, nil
}

// save reports local failures through the log and the sync status; the
// mutation itself has already happened.
func (s *TaskService) save(ctx context.Context) {
	if err := s.sync.Save(ctx); err != nil {
		s.logger.Errorw("Failed to save tasks", "error", err.Error())
	}
}
