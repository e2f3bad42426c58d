package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	apperrors "authcore/internal/errors"
	"authcore/internal/service"
)

// bcrypt ignores input past this many bytes and refuses to hash it.
const maxPasswordBytes = 72

// UserHandler serves identity endpoints.
type UserHandler struct {
	identity service.IdentityService
	log      *zap.SugaredLogger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(identity service.IdentityService, log *zap.SugaredLogger) *UserHandler {
	return &UserHandler{identity: identity, log: loggerOrNop(log)}
}

// RegisterRequest represents a user registration request. Password is plain
// text here and hashed before it reaches the store.
type RegisterRequest struct {
	Email       string     `json:"email" validate:"required,max=254,email"`
	Login       string     `json:"login" validate:"required,max=60,handle"`
	Password    string     `json:"password" validate:"required,min=8,max=72"`
	Avatar      *string    `json:"avatar"`
	Bio         *string    `json:"bio"`
	FirstName   *string    `json:"first_name" validate:"omitempty,max=60"`
	LastName    *string    `json:"last_name" validate:"omitempty,max=60"`
	PhoneNumber *string    `json:"phone_number" validate:"omitempty,max=24"`
	Birthday    *time.Time `json:"birthday"`
}

// Register godoc
// @Summary Register a new user
// @Tags users
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /users [post]
func (h *UserHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if len(req.Password) > maxPasswordBytes {
		return handleError(h.log, c, apperrors.NewValidationError("password", "must be at most 72 bytes"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return handleError(h.log, c, err)
	}

	user, err := h.identity.Create(c.Request().Context(), service.CreateUserInput{
		Email:       req.Email,
		Login:       req.Login,
		Password:    string(hash),
		Avatar:      req.Avatar,
		Bio:         req.Bio,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Birthday:    req.Birthday,
	})
	if err != nil {
		return handleError(h.log, c, err)
	}
	return c.JSON(http.StatusCreated, user)
}

// GetUser godoc
// @Summary Get user by id
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	user, err := h.identity.Get(c.Request().Context(), id)
	if err != nil {
		return handleError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// GetUserByEmail godoc
// @Summary Get user by email
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param email path string true "Email"
// @Success 200 {object} model.User
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/by-email/{email} [get]
func (h *UserHandler) GetUserByEmail(c echo.Context) error {
	user, err := h.identity.GetByEmail(c.Request().Context(), c.Param("email"))
	if err != nil {
		return handleError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// GetUserByLogin godoc
// @Summary Get user by login
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param login path string true "Login"
// @Success 200 {object} model.User
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/by-login/{login} [get]
func (h *UserHandler) GetUserByLogin(c echo.Context) error {
	user, err := h.identity.GetByLogin(c.Request().Context(), c.Param("login"))
	if err != nil {
		return handleError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateUser godoc
// @Summary Update a user's profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body service.UpdateUserInput true "Fields to change"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /users/{id} [patch]
func (h *UserHandler) UpdateUser(c echo.Context) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req service.UpdateUserInput
	if err := c.Bind(&req); err != nil {
		return invalidRequest("invalid request body")
	}
	user, err := h.identity.UpdateProfile(c.Request().Context(), id, req)
	if err != nil {
		return handleError(h.log, c, err)
	}
	return c.JSON(http.StatusOK, user)
}
