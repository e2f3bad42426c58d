package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "authcore/internal/errors"
	"authcore/internal/model"
	"authcore/internal/service"
)

const (
	claimsContextKey = "auth.claims"
	accessContextKey = "auth.access"
)

// AccessResolver resolves a user's effective access through their binding.
type AccessResolver interface {
	EffectiveAccess(ctx context.Context, userID uuid.UUID) (*service.Access, error)
}

// AccessGuard authenticates bearer tokens and enforces minimum access levels.
type AccessGuard struct {
	secret  []byte
	access  AccessResolver
	revoked *Revocations
	log     *zap.SugaredLogger
}

// NewAccessGuard creates a guard. revoked may be nil.
func NewAccessGuard(secret string, access AccessResolver, revoked *Revocations, log *zap.SugaredLogger) *AccessGuard {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if revoked == nil {
		revoked = NewRevocations(nil)
	}
	return &AccessGuard{secret: []byte(secret), access: access, revoked: revoked, log: log}
}

// Authenticate validates the bearer token and stores its claims on the context.
func (g *AccessGuard) Authenticate() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey: claimsContextKey,
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			claims, err := ParseToken(g.secret, auth)
			if err != nil {
				return nil, err
			}
			if g.revoked.IsRevoked(c.Request().Context(), claims.ID) {
				return nil, ErrInvalidToken
			}
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
				Error: "missing or invalid bearer token",
				Code:  "UNAUTHORIZED",
			})
		},
	})
}

// Require admits requests whose subject holds an active binding at level or above.
// It must run after Authenticate.
func (g *AccessGuard) Require(level model.AccessLevel) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
					Error: "missing or invalid bearer token",
					Code:  "UNAUTHORIZED",
				})
			}
			userID, err := claims.UserID()
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
					Error: err.Error(),
					Code:  "UNAUTHORIZED",
				})
			}

			access, err := g.access.EffectiveAccess(c.Request().Context(), userID)
			switch {
			case errors.Is(err, apperrors.ErrNotFound):
				return forbidden("no service binding")
			case err != nil:
				g.log.Errorw("resolve access", "user_id", userID, "error", err)
				return echo.NewHTTPError(http.StatusInternalServerError, apperrors.ErrorResponse{
					Error: "internal server error",
					Code:  "INTERNAL_ERROR",
				})
			case !access.IsActive:
				return forbidden("service binding is inactive")
			case !access.Level.AtLeast(level):
				return forbidden("requires " + level.String() + " access")
			}

			c.Set(accessContextKey, access)
			return next(c)
		}
	}
}

// ClaimsFrom returns the claims stored by Authenticate.
func ClaimsFrom(c echo.Context) (*Claims, bool) {
	claims, ok := c.Get(claimsContextKey).(*Claims)
	return claims, ok
}

// AccessFrom returns the access resolved by Require.
func AccessFrom(c echo.Context) (*service.Access, bool) {
	access, ok := c.Get(accessContextKey).(*service.Access)
	return access, ok
}

func forbidden(msg string) error {
	return echo.NewHTTPError(http.StatusForbidden, apperrors.ErrorResponse{
		Error: msg,
		Code:  "FORBIDDEN",
	})
}
