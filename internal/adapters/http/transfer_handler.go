package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/daybook/internal/application/services"
	"github.com/taskmaster/daybook/internal/infrastructure/logger"
)

// TransferHandler handles markdown export and import
type TransferHandler struct {
	transferService *services.TransferService
	logger          *logger.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(transferService *services.TransferService, logger *logger.Logger) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
		logger:          logger.WithComponent("transfer_handler"),
	}
}

// Export godoc
// @Summary Export all tasks as markdown
// @Tags transfer
// @Produce text/markdown
// @Success 200 {string} string "Markdown document"
// @Router /export [get]
func (h *TransferHandler) Export(c echo.Context) error {
	filename, document := h.transferService.ExportMarkdown()

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(document))
}

// Import godoc
// @Summary Import a markdown document
// @Description Accepts the document as the raw body or as a multipart "file" field
// @Tags transfer
// @Accept text/markdown
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} ports.ImportResponse
// @Failure 400 {object} ports.ErrorResponse
// @Router /import [post]
func (h *TransferHandler) Import(c echo.Context) error {
	document, err := readDocument(c)
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid upload")
	}

	response, err := h.transferService.ImportMarkdown(c.Request().Context(), document)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, response)
}

func readDocument(c echo.Context) (string, error) {
	body := c.Request().Body
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		header, err := c.FormFile("file")
		if err != nil {
			return "", err
		}
		file, err := header.Open()
		if err != nil {
			return "", err
		}
		defer file.Close()
		body = file
	}

	data, err := io.ReadAll(io.LimitReader(body, maxUploadBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxUploadBytes {
		return "", errUploadTooLarge
	}
	return string(data), nil
}

// SyncHandler exposes sync state
type SyncHandler struct {
	syncService *services.SyncService
	logger      *logger.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(syncService *services.SyncService, logger *logger.Logger) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		logger:      logger.WithComponent("sync_handler"),
	}
}

// Status godoc
// @Summary Sync status
// @Tags sync
// @Produce json
// @Success 200 {object} ports.SyncStatus
// @Router /sync/status [get]
func (h *SyncHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.syncService.Status())
}

// Resync fetches the remote copy again and merges it
func (h *SyncHandler) Resync(c echo.Context) error {
	if err := h.syncService.Resync(c.Request().Context()); err != nil {
		h.logger.Warnw("Resync failed", "error", err.Error())
		return err
	}
	return c.JSON(http.StatusOK, h.syncService.Status())
}
