package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"authcore/internal/model"
	"authcore/internal/service"
)

// BindingHandler serves the service binding registry.
type BindingHandler struct {
	bindings service.BindingService
	log      *zap.SugaredLogger
}

// NewBindingHandler creates a new binding handler.
func NewBindingHandler(bindings service.BindingService, log *zap.SugaredLogger) *BindingHandler {
	return &BindingHandler{bindings: bindings, log: loggerOrNop(log)}
}

// BindRequest represents a request to bind a user to a role.
type BindRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	RoleID string `json:"role_id" validate:"required,uuid"`
}

// Bind godoc
// @Summary Bind a user to a role
// @Tags bindings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BindRequest true "Binding data"
// @Success 201 {object} model.UserService
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /bindings [post]
func (h *BindingHandler) Bind(c echo.Context) error {
	var req BindRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return invalidRequest("invalid user_id")
	}
	roleID, err := uuid.Parse(req.RoleID)
	if err != nil {
		return invalidRequest("invalid role_id")
	}

	binding, err := h.bindings.Bind(c.Request().Context(), userID, roleID)
	if err != nil {
		return handleError(h.log, c, err)
	}
	return c.JSON(http.StatusCreated, binding)
}

// GetBinding godoc
// @Summary Get binding by id
// @Tags bindings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Binding ID"
// @Success 200 {object} model.UserService
// @Failure 404 {object} errors.ErrorResponse
// @Router /bindings/{id} [get]
func (h *BindingHandler) GetBinding(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	binding, err := h.bindings.Get(c.Request().Context(), id)
	if err != nil {
		return handleError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, binding)
}

// Activate godoc
// @Summary Activate a binding
// @Tags bindings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Binding ID"
// @Success 200 {object} model.UserService
// @Failure 404 {object} errors.ErrorResponse
// @Router /bindings/{id}/activate [post]
func (h *BindingHandler) Activate(c echo.Context) error {
	return h.setActive(c, h.bindings.Activate)
}

// Deactivate godoc
// @Summary Deactivate a binding
// @Tags bindings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Binding ID"
// @Success 200 {object} model.UserService
// @Failure 404 {object} errors.ErrorResponse
// @Router /bindings/{id}/deactivate [post]
func (h *BindingHandler) Deactivate(c echo.Context) error {
	return h.setActive(c, h.bindings.Deactivate)
}

func (h *BindingHandler) setActive(c echo.Context, toggle func(ctx context.Context, id uuid.UUID) (*model.UserService, error)) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	binding, err := toggle(c.Request().Context(), id)
	if err != nil {
		return handleError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, binding)
}

// Unbind godoc
// @Summary Remove a binding
// @Tags bindings
// @Security BearerAuth
// @Param id path string true "Binding ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /bindings/{id} [delete]
func (h *BindingHandler) Unbind(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.bindings.Unbind(c.Request().Context(), id); err != nil {
		return handleError(h.log, c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetUserBinding godoc
// @Summary Get the binding held by a user
// @Tags bindings
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} model.UserService
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id}/binding [get]
func (h *BindingHandler) GetUserBinding(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	binding, err := h.bindings.GetForUser(c.Request().Context(), id)
	if err != nil {
		return handleError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, binding)
}

// GetUserAccess godoc
// @Summary Resolve a user's effective access level
// @Tags bindings
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} service.Access
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id}/access [get]
func (h *BindingHandler) GetUserAccess(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	access, err := h.bindings.EffectiveAccess(c.Request().Context(), id)
	if err != nil {
		return handleError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, access)
}
