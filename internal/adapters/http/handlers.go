package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/taskmaster/daybook/internal/application/services"
	"github.com/taskmaster/daybook/internal/domain/entities"
	"github.com/taskmaster/daybook/internal/infrastructure/logger"
	"github.com/taskmaster/daybook/internal/ports"
)

// Context keys set by the bearer middleware
const (
	ContextUserKey  = "user"
	ContextEmailKey = "user_email"
)

// TaskHandler handles task and day requests
type TaskHandler struct {
	taskService *services.TaskService
	syncService *services.SyncService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *services.TaskService, syncService *services.SyncService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		syncService: syncService,
		logger:      logger.WithComponent("task_handler"),
	}
}

// ListTasks godoc
// @Summary Get all tasks
// @Description Returns every date with its tasks and the active date
// @Tags tasks
// @Produce json
// @Success 200 {object} ports.CollectionResponse
// @Router /tasks [get]
func (h *TaskHandler) ListTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, h.taskService.Snapshot())
}

// GetDay godoc
// @Summary Get the tasks of a date
// @Tags tasks
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} ports.DayResponse
// @Failure 400 {object} ports.ErrorResponse
// @Router /tasks/{date} [get]
func (h *TaskHandler) GetDay(c echo.Context) error {
	date := c.Param("date")
	tasks, err := h.taskService.List(date)
	if err != nil {
		return err
	}
	if tasks == nil {
		tasks = []entities.Task{}
	}
	return c.JSON(http.StatusOK, ports.DayResponse{Date: date, Tasks: tasks})
}

// CreateTask godoc
// @Summary Add a task
// @Description Adds a task under the active date unless a date is given
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body ports.CreateTaskRequest true "Task data"
// @Success 201 {object} ports.TaskResponse
// @Failure 400 {object} ports.ErrorResponse
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var req ports.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, h.taskResponse(task))
}

// UpdateStatus godoc
// @Summary Toggle or set completion
// @Description Toggles the task when "completed" is omitted
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body ports.UpdateStatusRequest false "Completion"
// @Success 200 {object} ports.TaskResponse
// @Failure 404 {object} ports.ErrorResponse
// @Router /tasks/{id}/status [patch]
func (h *TaskHandler) UpdateStatus(c echo.Context) error {
	var req ports.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	ctx := c.Request().Context()
	id := c.Param("id")

	var (
		task *entities.Task
		err  error
	)
	if req.Completed == nil {
		task, err = h.taskService.ToggleStatus(ctx, id)
	} else {
		task, err = h.taskService.SetStatus(ctx, id, *req.Completed)
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, h.taskResponse(task))
}

// UpdateContent handles content edits
func (h *TaskHandler) UpdateContent(c echo.Context) error {
	var req ports.UpdateContentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.UpdateContent(c.Request().Context(), c.Param("id"), req.Content)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, h.taskResponse(task))
}

// UpdatePriority handles priority changes
func (h *TaskHandler) UpdatePriority(c echo.Context) error {
	var req ports.UpdatePriorityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.ChangePriority(c.Request().Context(), c.Param("id"), req.Priority)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, h.taskResponse(task))
}

// UpdateReminder flips the reminder flag
func (h *TaskHandler) UpdateReminder(c echo.Context) error {
	var req ports.UpdateReminderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	task, err := h.taskService.SetReminder(c.Request().Context(), c.Param("id"), req.HasReminder)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, h.taskResponse(task))
}

// DeleteTask godoc
// @Summary Delete a task
// @Description Deleting the last task of a date removes the date
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} ports.TaskResponse
// @Failure 404 {object} ports.ErrorResponse
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	task, err := h.taskService.DeleteTask(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, h.taskResponse(task))
}

// MoveTask handles moving a task to another date
func (h *TaskHandler) MoveTask(c echo.Context) error {
	var req ports.MoveTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.MoveTask(c.Request().Context(), c.Param("id"), req.Date)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, h.taskResponse(task))
}

// ReorderDay moves the task at index "from" to index "to" within a date
func (h *TaskHandler) ReorderDay(c echo.Context) error {
	var req ports.ReorderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	date := c.Param("date")
	tasks, err := h.taskService.Reorder(c.Request().Context(), date, req.From, req.To)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ports.DayResponse{Date: date, Tasks: tasks})
}

// SortDay puts uncompleted tasks first
func (h *TaskHandler) SortDay(c echo.Context) error {
	date := c.Param("date")
	tasks, err := h.taskService.SortDay(c.Request().Context(), date)
	if err != nil {
		return err
	}
	if tasks == nil {
		tasks = []entities.Task{}
	}

	return c.JSON(http.StatusOK, ports.DayResponse{Date: date, Tasks: tasks})
}

// SetActiveDate changes the date new tasks go to
func (h *TaskHandler) SetActiveDate(c echo.Context) error {
	var req ports.SetActiveDateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.taskService.SetActiveDate(req.Date); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ports.SetActiveDateRequest{Date: h.taskService.ActiveDate()})
}

func (h *TaskHandler) taskResponse(task *entities.Task) ports.TaskResponse {
	return ports.TaskResponse{Task: *task, Status: h.syncService.Status()}
}

// getUserIDFromContext extracts the authenticated user ID set by the bearer middleware
func getUserIDFromContext(c echo.Context) (uuid.UUID, error) {
	userIDStr, ok := c.Get(ContextUserKey).(string)
	if !ok {
		return uuid.Nil, entities.ErrNotAuthenticated
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, entities.ErrNotAuthenticated
	}

	return userID, nil
}

// maxUploadBytes bounds markdown imports
const maxUploadBytes = 5 << 20

var errUploadTooLarge = errors.New("upload exceeds " + strconv.Itoa(maxUploadBytes) + " bytes")
