package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"authcore/internal/auth"
	apperrors "authcore/internal/errors"
)

// SessionHandler lets a bearer revoke the token it presents.
type SessionHandler struct {
	revocations *auth.Revocations
	log         *zap.SugaredLogger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(revocations *auth.Revocations, log *zap.SugaredLogger) *SessionHandler {
	return &SessionHandler{revocations: revocations, log: loggerOrNop(log)}
}

// Revoke godoc
// @Summary Revoke the presented bearer token
// @Tags sessions
// @Security BearerAuth
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /sessions/current [delete]
func (h *SessionHandler) Revoke(c echo.Context) error {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
			Error: "missing or invalid bearer token",
			Code:  "UNAUTHORIZED",
		})
	}
	if claims.ID == "" {
		return invalidRequest("token has no id and cannot be revoked")
	}

	// A token without exp is denied for good.
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := h.revocations.Revoke(c.Request().Context(), claims.ID, expiresAt); err != nil {
		if errors.Is(err, auth.ErrRevocationUnavailable) {
			h.log.Warnw("token revocation failed", "jti", claims.ID, "error", err)
			return echo.NewHTTPError(http.StatusServiceUnavailable, apperrors.ErrorResponse{
				Error: "token could not be revoked, try again later",
				Code:  "REVOCATION_UNAVAILABLE",
			})
		}
		return handleError(h.log, c, err)
	}
	h.log.Infow("token revoked", "jti", claims.ID, "subject", claims.Subject)
	return c.NoContent(http.StatusNoContent)
}
