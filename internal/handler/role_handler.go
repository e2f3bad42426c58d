package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"authcore/internal/model"
	"authcore/internal/service"
)

// RoleHandler serves the access catalog.
type RoleHandler struct {
	roles    service.RoleService
	bindings service.BindingService
	log      *zap.SugaredLogger
}

// NewRoleHandler creates a new role handler.
func NewRoleHandler(roles service.RoleService, bindings service.BindingService, log *zap.SugaredLogger) *RoleHandler {
	return &RoleHandler{roles: roles, bindings: bindings, log: loggerOrNop(log)}
}

// CreateRoleRequest represents a role creation request.
type CreateRoleRequest struct {
	Description *string `json:"description"`
	Access      string  `json:"access" validate:"required" example:"moderator"`
}

// UpdateRoleRequest represents a partial role update.
type UpdateRoleRequest struct {
	Description *string `json:"description"`
	Access      *string `json:"access" example:"superuser"`
}

// ListRoles godoc
// @Summary List roles, least privileged first
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Role
// @Router /roles [get]
func (h *RoleHandler) ListRoles(c echo.Context) error {
	roles, err := h.roles.List(c.Request().Context())
	if err != nil {
		return handleError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, roles)
}

// GetRole godoc
// @Summary Get role by id
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Role ID"
// @Success 200 {object} model.Role
// @Failure 404 {object} errors.ErrorResponse
// @Router /roles/{id} [get]
func (h *RoleHandler) GetRole(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	role, err := h.roles.Get(c.Request().Context(), id)
	if err != nil {
		return handleError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, role)
}

// CreateRole godoc
// @Summary Create a role
// @Tags roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateRoleRequest true "Role data"
// @Success 201 {object} model.Role
// @Failure 400 {object} errors.ErrorResponse
// @Router /roles [post]
func (h *RoleHandler) CreateRole(c echo.Context) error {
	var req CreateRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	level, err := model.ParseAccessLevel(req.Access)
	if err != nil {
		return handleError(h.log, c, err)
	}
	role, err := h.roles.Create(c.Request().Context(), req.Description, level)
	if err != nil {
		return handleError(h.log, c, err)
	}
	return c.JSON(http.StatusCreated, role)
}

// UpdateRole godoc
// @Summary Update a role
// @Description Changing access applies to every user bound to the role.
// @Tags roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Role ID"
// @Param request body UpdateRoleRequest true "Fields to change"
// @Success 200 {object} model.Role
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /roles/{id} [patch]
func (h *RoleHandler) UpdateRole(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req UpdateRoleRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest("invalid request body")
	}

	in := service.UpdateRoleInput{Description: req.Description}
	if req.Access != nil {
		level, err := model.ParseAccessLevel(*req.Access)
		if err != nil {
			return handleError(h.log, c, err)
		}
		in.Access = &level
	}

	role, err := h.roles.Update(c.Request().Context(), id, in)
	if err != nil {
		return handleError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, role)
}

// ListRoleBindings godoc
// @Summary List bindings governed by a role
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Role ID"
// @Success 200 {array} model.UserService
// @Failure 404 {object} errors.ErrorResponse
// @Router /roles/{id}/bindings [get]
func (h *RoleHandler) ListRoleBindings(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	bindings, err := h.bindings.ListForRole(c.Request().Context(), id)
	if err != nil {
		return handleError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, bindings)
}
