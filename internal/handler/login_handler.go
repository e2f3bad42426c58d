package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"authcore/internal/service"
)

// LoginHandler serves the login audit trail.
type LoginHandler struct {
	audit service.AuditService
	log   *zap.SugaredLogger
}

// NewLoginHandler creates a new login handler.
func NewLoginHandler(audit service.AuditService, log *zap.SugaredLogger) *LoginHandler {
	return &LoginHandler{audit: audit, log: loggerOrNop(log)}
}

// RecordLoginRequest represents a login event. UserAgent defaults to the
// caller's User-Agent header.
type RecordLoginRequest struct {
	UserAgent string `json:"user_agent"`
}

// RecordLogin godoc
// @Summary Record a successful login
// @Tags logins
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body RecordLoginRequest false "Login event"
// @Success 201 {object} model.LoginHistory
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id}/logins [post]
func (h *LoginHandler) RecordLogin(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req RecordLoginRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return invalidRequest("invalid request body")
		}
	}
	if req.UserAgent == "" {
		req.UserAgent = c.Request().UserAgent()
	}

	entry, err := h.audit.RecordLogin(c.Request().Context(), id, req.UserAgent)
	if err != nil {
		return handleError(h.log, c, err)
	}
	return c.JSON(http.StatusCreated, entry)
}

// ListLogins godoc
// @Summary List a user's logins, most recent first
// @Tags logins
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param limit query int false "Page size (default 20, max 100)"
// @Param token query string false "Continuation token from a previous page"
// @Success 200 {object} service.Page
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id}/logins [get]
func (h *LoginHandler) ListLogins(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	req := service.PageRequest{Token: c.QueryParam("token")}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return invalidRequest("limit must be a positive integer")
		}
		req.Limit = limit
	}

	page, err := h.audit.HistoryFor(c.Request().Context(), id, req)
	if err != nil {
		return handleError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, page)
}
