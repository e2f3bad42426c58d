package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"authcore/internal/auth"
	apperrors "authcore/internal/errors"
	"authcore/internal/model"
	"authcore/internal/repository"
	"authcore/internal/service"
)

const testSecret = "handler-secret"

type testValidator struct {
	v *validator.Validate
}

func (tv *testValidator) Validate(i interface{}) error {
	return service.FirstValidationError(tv.v.Struct(i))
}

type fixture struct {
	e     *echo.Echo
	store *repository.Store
}

// newFixture mounts every handler on its real route without access checks.
// Only the session route authenticates, since it reads the token claims.
func newFixture(t *testing.T, deny auth.DenyStore) fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:handler_%s?mode=memory&cache=shared&_foreign_keys=on", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.Models()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store := repository.NewStore(db)
	bindingSvc := service.NewBindingService(store, store.Repositories, nil)
	users := NewUserHandler(service.NewIdentityService(store, store.Users, nil), nil)
	roles := NewRoleHandler(service.NewRoleService(store, store.Roles, nil, nil), bindingSvc, nil)
	bindings := NewBindingHandler(bindingSvc, nil)
	logins := NewLoginHandler(service.NewAuditService(store, store.Users, store.Logins, nil), nil)
	revocations := auth.NewRevocations(deny)
	sessions := NewSessionHandler(revocations, nil)

	e := echo.New()
	e.Validator = &testValidator{v: service.Validator()}
	api := e.Group("/api")
	api.POST("/users", users.Register)
	api.GET("/users/:id", users.GetUser)
	api.GET("/users/:id/access", bindings.GetUserAccess)
	api.POST("/users/:id/logins", logins.RecordLogin)
	api.GET("/users/:id/logins", logins.ListLogins)
	api.POST("/roles", roles.CreateRole)
	api.POST("/bindings", bindings.Bind)

	guard := auth.NewAccessGuard(testSecret, bindingSvc, revocations, nil)
	api.DELETE("/sessions/current", sessions.Revoke, guard.Authenticate())

	return fixture{e: e, store: store}
}

func (f fixture) do(t *testing.T, method, target, body string, header http.Header) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec.Code, rec.Body.Bytes()
}

func decodeError(t *testing.T, body []byte) apperrors.ErrorResponse {
	t.Helper()
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp), string(body))
	return resp
}

func TestUserHandler_Register(t *testing.T) {
	f := newFixture(t, nil)

	status, body := f.do(t, http.MethodPost, "/api/users",
		`{"email":"Alice@X.com","login":"alice","password":"s3cretpass"}`, nil)
	require.Equal(t, http.StatusCreated, status, string(body))
	assert.NotContains(t, string(body), "password")

	var created model.User
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "alice@x.com", created.Email)

	stored, err := f.store.Users.FindByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("s3cretpass")))

	t.Run("duplicate login", func(t *testing.T) {
		status, body := f.do(t, http.MethodPost, "/api/users",
			`{"email":"other@x.com","login":"alice","password":"s3cretpass"}`, nil)
		assert.Equal(t, http.StatusConflict, status)
		resp := decodeError(t, body)
		assert.Equal(t, "DUPLICATE_IDENTITY", resp.Code)
		assert.Equal(t, "login", resp.Field)
	})

	t.Run("invalid email", func(t *testing.T) {
		status, body := f.do(t, http.MethodPost, "/api/users",
			`{"email":"nope","login":"bob","password":"s3cretpass"}`, nil)
		assert.Equal(t, http.StatusBadRequest, status)
		resp := decodeError(t, body)
		assert.Equal(t, "VALIDATION_ERROR", resp.Code)
		assert.Equal(t, "email", resp.Field)
	})

	t.Run("password over 72 bytes", func(t *testing.T) {
		// 30 runes, 90 bytes
		payload := fmt.Sprintf(`{"email":"euro@x.com","login":"euro","password":%q}`, strings.Repeat("€", 30))
		status, body := f.do(t, http.MethodPost, "/api/users", payload, nil)
		assert.Equal(t, http.StatusBadRequest, status, string(body))
		resp := decodeError(t, body)
		assert.Equal(t, "VALIDATION_ERROR", resp.Code)
		assert.Equal(t, "password", resp.Field)
	})

	t.Run("password of exactly 72 bytes", func(t *testing.T) {
		payload := fmt.Sprintf(`{"email":"edge@x.com","login":"edge","password":%q}`, strings.Repeat("€", 24))
		status, body := f.do(t, http.MethodPost, "/api/users", payload, nil)
		assert.Equal(t, http.StatusCreated, status, string(body))
	})

	t.Run("unknown id", func(t *testing.T) {
		status, body := f.do(t, http.MethodGet, "/api/users/"+uuid.NewString(), "", nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "NOT_FOUND", decodeError(t, body).Code)
	})

	t.Run("known id", func(t *testing.T) {
		status, body := f.do(t, http.MethodGet, "/api/users/"+created.ID.String(), "", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(body), `"login":"alice"`)
	})

	t.Run("malformed id", func(t *testing.T) {
		status, body := f.do(t, http.MethodGet, "/api/users/42", "", nil)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "INVALID_UUID", decodeError(t, body).Code)
	})
}

func TestRoleHandler_InvalidAccessLevel(t *testing.T) {
	f := newFixture(t, nil)

	status, body := f.do(t, http.MethodPost, "/api/roles", `{"access":"admin"}`, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_ACCESS_LEVEL", decodeError(t, body).Code)

	status, body = f.do(t, http.MethodPost, "/api/roles", `{"access":"moderator","description":"support"}`, nil)
	require.Equal(t, http.StatusCreated, status, string(body))
	assert.Contains(t, string(body), `"access":"moderator"`)
}

func TestBindingAndLoginHandlers(t *testing.T) {
	f := newFixture(t, nil)

	_, body := f.do(t, http.MethodPost, "/api/users", `{"email":"a@x.com","login":"alice","password":"s3cretpass"}`, nil)
	var user model.User
	require.NoError(t, json.Unmarshal(body, &user))

	_, body = f.do(t, http.MethodPost, "/api/roles", `{"access":"client"}`, nil)
	var role model.Role
	require.NoError(t, json.Unmarshal(body, &role))

	bindBody := fmt.Sprintf(`{"user_id":%q,"role_id":%q}`, user.ID, role.ID)
	status, body := f.do(t, http.MethodPost, "/api/bindings", bindBody, nil)
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = f.do(t, http.MethodPost, "/api/bindings", bindBody, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ALREADY_BOUND", decodeError(t, body).Code)

	userPath := "/api/users/" + user.ID.String()
	status, body = f.do(t, http.MethodGet, userPath+"/access", "", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"access":"client"`)

	for _, agent := range []string{"a", "b", "c"} {
		status, body := f.do(t, http.MethodPost, userPath+"/logins", fmt.Sprintf(`{"user_agent":%q}`, agent), nil)
		require.Equal(t, http.StatusCreated, status, string(body))
	}

	status, body = f.do(t, http.MethodGet, userPath+"/logins?limit=2", "", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var page service.Page
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Len(t, page.Items, 2)
	assert.NotEmpty(t, page.NextToken)

	status, body = f.do(t, http.MethodGet, userPath+"/logins?limit=2&token="+page.NextToken, "", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var rest service.Page
	require.NoError(t, json.Unmarshal(body, &rest))
	assert.Len(t, rest.Items, 1)
	assert.Empty(t, rest.NextToken)

	status, body = f.do(t, http.MethodGet, userPath+"/logins?token=garbage", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "token", decodeError(t, body).Field)

	status, _ = f.do(t, http.MethodGet, userPath+"/logins?limit=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = f.do(t, http.MethodGet, "/api/users/"+uuid.NewString()+"/access", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decodeError(t, body).Code)
}

// memoryDenyStore is an in-memory auth.DenyStore.
type memoryDenyStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryDenyStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return []byte("1"), nil
	}
	return nil, nil
}

func (m *memoryDenyStore) SetStrict(_ context.Context, key string, _ []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = true
	return nil
}

func bearerHeader(t *testing.T, claims jwt.RegisteredClaims) http.Header {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return http.Header{echo.HeaderAuthorization: []string{"Bearer " + token}}
}

func TestSessionHandler_Revoke(t *testing.T) {
	f := newFixture(t, &memoryDenyStore{keys: map[string]bool{}})

	header := bearerHeader(t, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	status, body := f.do(t, http.MethodDelete, "/api/sessions/current", "", header)
	require.Equal(t, http.StatusNoContent, status, string(body))

	status, _ = f.do(t, http.MethodDelete, "/api/sessions/current", "", header)
	assert.Equal(t, http.StatusUnauthorized, status, "revoked token is refused")

	noExp := bearerHeader(t, jwt.RegisteredClaims{ID: uuid.NewString(), Subject: uuid.NewString()})
	status, _ = f.do(t, http.MethodDelete, "/api/sessions/current", "", noExp)
	require.Equal(t, http.StatusNoContent, status)
	status, _ = f.do(t, http.MethodDelete, "/api/sessions/current", "", noExp)
	assert.Equal(t, http.StatusUnauthorized, status)

	noID := bearerHeader(t, jwt.RegisteredClaims{Subject: uuid.NewString()})
	status, _ = f.do(t, http.MethodDelete, "/api/sessions/current", "", noID)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSessionHandler_RevokeWithoutStore(t *testing.T) {
	f := newFixture(t, nil)

	header := bearerHeader(t, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	status, body := f.do(t, http.MethodDelete, "/api/sessions/current", "", header)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "REVOCATION_UNAVAILABLE", decodeError(t, body).Code)
}
