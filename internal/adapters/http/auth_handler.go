package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/daybook/internal/application/services"
	"github.com/taskmaster/daybook/internal/infrastructure/logger"
	"github.com/taskmaster/daybook/internal/ports"
)

// AuthHandler handles authentication and binds the device session to the
// authenticated user
type AuthHandler struct {
	authService *services.AuthService
	syncService *services.SyncService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, syncService *services.SyncService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		syncService: syncService,
		logger:      logger.WithComponent("auth_handler"),
	}
}

// Register godoc
// @Summary Create an account
// @Description Registers a user and signs the session in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.RegisterRequest true "Credentials"
// @Success 201 {object} ports.AuthResponse
// @Failure 409 {object} ports.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req ports.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	response, err := h.authService.Register(c.Request().Context(), req)
	if err != nil {
		h.logger.Warnw("Registration failed", "error", err.Error(), "email", req.Email)
		return err
	}

	if err := h.signIn(c.Request().Context(), response); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, response)
}

// Login godoc
// @Summary Log in
// @Description Authenticates and merges the remote task copy into the session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.LoginRequest true "Credentials"
// @Success 200 {object} ports.AuthResponse
// @Failure 401 {object} ports.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	response, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		h.logger.LogSecurityEvent("login_failed", "", c.RealIP(), map[string]interface{}{
			"email": req.Email,
		})
		return err
	}

	if err := h.signIn(c.Request().Context(), response); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, response)
}

// RefreshToken rotates the refresh token
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req ports.RefreshTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	response, err := h.authService.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		h.logger.Warnw("Token refresh failed", "error", err.Error())
		return err
	}

	return c.JSON(http.StatusOK, response)
}

// Logout revokes refresh tokens and signs the session out
func (h *AuthHandler) Logout(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.authService.Logout(ctx, userID); err != nil {
		h.logger.Errorw("Logout failed", "error", err.Error(), "user_id", userID.String())
		return err
	}

	if h.syncService.Status().UserID == userID.String() {
		if err := h.syncService.SignOut(ctx); err != nil {
			return err
		}
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Logged out successfully"})
}

func (h *AuthHandler) signIn(ctx context.Context, response *ports.AuthResponse) error {
	return h.syncService.SignIn(ctx, response.User.ID.String(), response.AccessToken)
}

// AccountHandler handles account deletion
type AccountHandler struct {
	accountService *services.AccountService
	logger         *logger.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountService *services.AccountService, logger *logger.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger.WithComponent("account_handler"),
	}
}

// DeleteAccount godoc
// @Summary Delete the account
// @Description Removes remote tasks, profile and credentials in that order, then clears the device session
// @Tags account
// @Produce json
// @Success 200 {object} ports.MessageResponse
// @Failure 500 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /account [delete]
func (h *AccountHandler) DeleteAccount(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	if err := h.accountService.DeleteAccount(c.Request().Context(), userID); err != nil {
		return err
	}

	h.logger.LogSecurityEvent("account_deleted", userID.String(), c.RealIP(), nil)
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Account deleted"})
}
