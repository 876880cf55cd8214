package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/taskmaster/daybook/internal/application/services"
	"github.com/taskmaster/daybook/internal/domain/entities"
	"github.com/taskmaster/daybook/internal/infrastructure/logger"
	"github.com/taskmaster/daybook/internal/ports"
)

var errorStatuses = []struct {
	err  error
	code int
}{
	{entities.ErrTaskNotFound, http.StatusNotFound},
	{entities.ErrUserNotFound, http.StatusNotFound},
	{entities.ErrInvalidDate, http.StatusBadRequest},
	{entities.ErrEmptyContent, http.StatusBadRequest},
	{entities.ErrInvalidPriority, http.StatusBadRequest},
	{entities.ErrIndexOutOfRange, http.StatusBadRequest},
	{entities.ErrNoValidTasks, http.StatusBadRequest},
	{entities.ErrNotAuthenticated, http.StatusUnauthorized},
	{entities.ErrInvalidCredential, http.StatusUnauthorized},
	{services.ErrInvalidToken, http.StatusUnauthorized},
	{services.ErrTokenExpired, http.StatusUnauthorized},
	{services.ErrTokenRevoked, http.StatusUnauthorized},
	{entities.ErrUserAlreadyExists, http.StatusConflict},
	{services.ErrRemoteDisabled, http.StatusConflict},
}

// errorResponse maps an error to a status and body. Unknown errors become a
// bare 500 so internals do not leak.
func errorResponse(err error) (int, ports.ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, ports.ErrorResponse{Error: fmt.Sprint(he.Message)}
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ports.ErrorResponse{Error: "validation failed", Details: ve.Error()}
	}

	var de *services.AccountDeletionError
	if errors.As(err, &de) {
		return http.StatusInternalServerError, ports.ErrorResponse{
			Error:   "account deletion incomplete",
			Details: "failed at step " + de.Step,
		}
	}

	for _, s := range errorStatuses {
		if errors.Is(err, s.err) {
			return s.code, ports.ErrorResponse{Error: s.err.Error()}
		}
	}

	return http.StatusInternalServerError, ports.ErrorResponse{Error: http.StatusText(http.StatusInternalServerError)}
}

// customErrorHandler handles HTTP errors
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code, body := errorResponse(err)

		if code >= http.StatusInternalServerError {
			logger.Errorw("Internal server error", "error", err.Error(), "path", c.Request().URL.Path)
		}

		if c.Response().Committed {
			return
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			logger.Errorw("Error sending response", "error", err.Error())
		}
	}
}
