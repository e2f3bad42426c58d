package router

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"authcore/internal/auth"
	"authcore/internal/handler"
	"authcore/internal/model"
	"authcore/internal/repository"
	"authcore/internal/service"
)

const secret = "router-secret"

func newServer(t *testing.T) (*echo.Echo, service.IdentityService, service.RoleService, service.BindingService) {
	t.Helper()
	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared&_foreign_keys=on", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.Models()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store := repository.NewStore(db)
	identity := service.NewIdentityService(store, store.Users, nil)
	roles := service.NewRoleService(store, store.Roles, nil, nil)
	bindings := service.NewBindingService(store, store.Repositories, nil)
	audit := service.NewAuditService(store, store.Users, store.Logins, nil)

	e := echo.New()
	guard := auth.NewAccessGuard(secret, bindings, nil, nil)
	Register(e, nil, guard, Handlers{
		Users:    handler.NewUserHandler(identity, nil),
		Roles:    handler.NewRoleHandler(roles, bindings, nil),
		Bindings: handler.NewBindingHandler(bindings, nil),
		Logins:   handler.NewLoginHandler(audit, nil),
		Sessions: handler.NewSessionHandler(auth.NewRevocations(nil), nil),
	})
	return e, identity, roles, bindings
}

func bearer(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + token
}

func bindUser(t *testing.T, identity service.IdentityService, roles service.RoleService, bindings service.BindingService, login string, level model.AccessLevel) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	u, err := identity.Create(ctx, service.CreateUserInput{Email: login + "@x.com", Login: login, Password: "hash"})
	require.NoError(t, err)
	r, err := roles.Create(ctx, nil, level)
	require.NoError(t, err)
	_, err = bindings.Bind(ctx, u.ID, r.ID)
	require.NoError(t, err)
	return u.ID
}

func TestRouter_AccessControl(t *testing.T) {
	e, identity, roles, bindings := newServer(t)
	admin := bindUser(t, identity, roles, bindings, "root", model.AccessSuperuser)
	mod := bindUser(t, identity, roles, bindings, "mod", model.AccessModerator)
	client := bindUser(t, identity, roles, bindings, "cli", model.AccessClient)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		auth       string
		wantStatus int
	}{
		{"health", http.MethodGet, "/healthz", "", "", http.StatusOK},
		{"register is public", http.MethodPost, "/api/users", `{"email":"n@x.com","login":"newbie","password":"longenough"}`, "", http.StatusCreated},
		{"roles need a token", http.MethodGet, "/api/roles", "", "", http.StatusUnauthorized},
		{"client cannot list roles", http.MethodGet, "/api/roles", "", bearer(t, client), http.StatusForbidden},
		{"moderator lists roles", http.MethodGet, "/api/roles", "", bearer(t, mod), http.StatusOK},
		{"moderator cannot create roles", http.MethodPost, "/api/roles", `{"access":"client"}`, bearer(t, mod), http.StatusForbidden},
		{"superuser creates roles", http.MethodPost, "/api/roles", `{"access":"client"}`, bearer(t, admin), http.StatusCreated},
		{"moderator reads access", http.MethodGet, "/api/users/" + client.String() + "/access", "", bearer(t, mod), http.StatusOK},
		{"lookup by login", http.MethodGet, "/api/users/by-login/cli", "", bearer(t, mod), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			}
			if tt.auth != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.auth)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestRouter_DeactivatedAdminLosesAccess(t *testing.T) {
	e, identity, roles, bindings := newServer(t)
	admin := bindUser(t, identity, roles, bindings, "root", model.AccessSuperuser)

	b, err := bindings.GetForUser(context.Background(), admin)
	require.NoError(t, err)
	_, err = bindings.Deactivate(context.Background(), b.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/roles", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, admin))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
