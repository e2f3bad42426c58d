package router

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"authcore/internal/auth"
	"authcore/internal/handler"
	"authcore/internal/model"
	"authcore/internal/service"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Users    *handler.UserHandler
	Roles    *handler.RoleHandler
	Bindings *handler.BindingHandler
	Logins   *handler.LoginHandler
	Sessions *handler.SessionHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, log *zap.SugaredLogger, guard *auth.AccessGuard, h Handlers) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	e.Use(middleware.RequestID())
	e.Use(RequestLogger(log))
	e.Use(middleware.Recover())

	e.Validator = &CustomValidator{validator: service.Validator()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/users", h.Users.Register)

	// Secured routes (require a valid bearer token)
	secured := api.Group("", guard.Authenticate())
	secured.DELETE("/sessions/current", h.Sessions.Revoke)

	moderator := secured.Group("", guard.Require(model.AccessModerator))
	superuser := secured.Group("", guard.Require(model.AccessSuperuser))

	// User routes
	moderator.GET("/users/:id", h.Users.GetUser)
	moderator.GET("/users/by-email/:email", h.Users.GetUserByEmail)
	moderator.GET("/users/by-login/:login", h.Users.GetUserByLogin)
	moderator.PATCH("/users/:id", h.Users.UpdateUser)
	moderator.GET("/users/:id/binding", h.Bindings.GetUserBinding)
	moderator.GET("/users/:id/access", h.Bindings.GetUserAccess)
	moderator.POST("/users/:id/logins", h.Logins.RecordLogin)
	moderator.GET("/users/:id/logins", h.Logins.ListLogins)

	// Role routes
	moderator.GET("/roles", h.Roles.ListRoles)
	moderator.GET("/roles/:id", h.Roles.GetRole)
	moderator.GET("/roles/:id/bindings", h.Roles.ListRoleBindings)
	superuser.POST("/roles", h.Roles.CreateRole)
	superuser.PATCH("/roles/:id", h.Roles.UpdateRole)

	// Binding routes
	moderator.GET("/bindings/:id", h.Bindings.GetBinding)
	superuser.POST("/bindings", h.Bindings.Bind)
	superuser.POST("/bindings/:id/activate", h.Bindings.Activate)
	superuser.POST("/bindings/:id/deactivate", h.Bindings.Deactivate)
	superuser.DELETE("/bindings/:id", h.Bindings.Unbind)
}

// RequestLogger logs one line per request through zap.
func RequestLogger(log *zap.SugaredLogger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.Round(time.Microsecond).String(),
				"request_id", v.RequestID,
			}
			if v.Error != nil && v.Status >= http.StatusInternalServerError {
				log.Errorw("request", append(fields, "error", v.Error)...)
				return nil
			}
			log.Infow("request", fields...)
			return nil
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface. The first failed field is
// reported as a ValidationError.
func (cv *CustomValidator) Validate(i interface{}) error {
	return service.FirstValidationError(cv.validator.Struct(i))
}
