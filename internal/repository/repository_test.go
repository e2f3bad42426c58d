package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperrors "authcore/internal/errors"
	"authcore/internal/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err, "open db")
	require.NoError(t, db.AutoMigrate(model.Models()...), "migrate")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, repo UserRepository, email, login string) *model.User {
	t.Helper()
	u := &model.User{Email: email, Login: login, Password: "hash"}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func seedRole(t *testing.T, repo RoleRepository, level model.AccessLevel) *model.Role {
	t.Helper()
	now := time.Now().UTC()
	r := &model.Role{Access: level, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(context.Background(), r))
	return r
}

func TestUserRepository_CreateAssignsID(t *testing.T) {
	store := NewStore(setupTestDB(t))
	u := seedUser(t, store.Users, "a@x.com", "alice")
	assert.NotEqual(t, uuid.Nil, u.ID)

	got, err := store.Users.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Login)
}

func TestUserRepository_UniqueConstraints(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	seedUser(t, store.Users, "a@x.com", "alice")

	t.Run("duplicate email", func(t *testing.T) {
		err := store.Users.Create(ctx, &model.User{Email: "a@x.com", Login: "alice2", Password: "h"})
		var dup *apperrors.DuplicateIdentityError
		require.True(t, errors.As(err, &dup), "got %v", err)
		assert.Equal(t, "email", dup.Field)
	})

	t.Run("duplicate login", func(t *testing.T) {
		err := store.Users.Create(ctx, &model.User{Email: "b@x.com", Login: "alice", Password: "h"})
		var dup *apperrors.DuplicateIdentityError
		require.True(t, errors.As(err, &dup), "got %v", err)
		assert.Equal(t, "login", dup.Field)
	})

	t.Run("update into collision", func(t *testing.T) {
		bob := seedUser(t, store.Users, "bob@x.com", "bob")
		bob.Login = "alice"
		err := store.Users.Update(ctx, bob)
		assert.True(t, errors.Is(err, apperrors.ErrDuplicateIdentity))
	})
}

func TestUserRepository_Lookups(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	u := seedUser(t, store.Users, "a@x.com", "alice")

	byEmail, err := store.Users.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byLogin, err := store.Users.FindByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byLogin.ID)

	_, err = store.Users.FindByEmail(ctx, "nobody@x.com")
	assert.True(t, apperrors.IsNotFoundKind(err, apperrors.KindUser))
	_, err = store.Users.FindByLogin(ctx, "nobody")
	assert.True(t, apperrors.IsNotFoundKind(err, apperrors.KindUser))
	_, err = store.Users.FindByID(ctx, uuid.New())
	assert.True(t, apperrors.IsNotFoundKind(err, apperrors.KindUser))
}

func TestUserRepository_UpdateClearsOptionalFields(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	bio := "hello"
	u := &model.User{Email: "a@x.com", Login: "alice", Password: "h", Bio: &bio}
	require.NoError(t, store.Users.Create(ctx, u))

	u.Bio = nil
	require.NoError(t, store.Users.Update(ctx, u))

	got, err := store.Users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Bio)
}

func TestRoleRepository(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	su := seedRole(t, store.Roles, model.AccessSuperuser)
	cl := seedRole(t, store.Roles, model.AccessClient)
	mod := seedRole(t, store.Roles, model.AccessModerator)

	roles, err := store.Roles.List(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 3)
	assert.Equal(t, []uuid.UUID{cl.ID, mod.ID, su.ID}, []uuid.UUID{roles[0].ID, roles[1].ID, roles[2].ID})

	desc := "ops"
	mod.Description = &desc
	mod.Access = model.AccessSuperuser
	require.NoError(t, store.Roles.Update(ctx, mod))

	got, err := store.Roles.FindByID(ctx, mod.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AccessSuperuser, got.Access)
	require.NotNil(t, got.Description)
	assert.Equal(t, "ops", *got.Description)

	_, err = store.Roles.FindByID(ctx, uuid.New())
	assert.True(t, apperrors.IsNotFoundKind(err, apperrors.KindRole))
}

func TestRoleRepository_RejectsInvalidAccessLevel(t *testing.T) {
	store := NewStore(setupTestDB(t))
	now := time.Now().UTC()
	err := store.Roles.Create(context.Background(), &model.Role{Access: 7, CreatedAt: now, UpdatedAt: now})
	assert.ErrorContains(t, err, apperrors.ErrInvalidAccessLevel.Error())
}

func TestBindingRepository(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	u := seedUser(t, store.Users, "a@x.com", "alice")
	r := seedRole(t, store.Roles, model.AccessModerator)

	b := &model.UserService{UserID: u.ID, RoleID: r.ID, IsActive: true, DataJoined: time.Now().UTC()}
	require.NoError(t, store.Bindings.Create(ctx, b))

	t.Run("one binding per user", func(t *testing.T) {
		again := &model.UserService{UserID: u.ID, RoleID: r.ID, IsActive: true, DataJoined: time.Now().UTC()}
		err := store.Bindings.Create(ctx, again)
		assert.True(t, errors.Is(err, apperrors.ErrAlreadyBound), "got %v", err)
	})

	t.Run("dangling role", func(t *testing.T) {
		other := seedUser(t, store.Users, "b@x.com", "bob")
		err := store.Bindings.Create(ctx, &model.UserService{UserID: other.ID, RoleID: uuid.New(), DataJoined: time.Now().UTC()})
		assert.True(t, errors.Is(err, apperrors.ErrReferentialIntegrity), "got %v", err)
	})

	t.Run("lookups", func(t *testing.T) {
		byUser, err := store.Bindings.FindByUserID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, b.ID, byUser.ID)

		list, err := store.Bindings.ListByRoleID(ctx, r.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, b.ID, list[0].ID)
	})

	t.Run("toggle and delete", func(t *testing.T) {
		require.NoError(t, store.Bindings.SetActive(ctx, b.ID, false))
		got, err := store.Bindings.FindByID(ctx, b.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)

		require.NoError(t, store.Bindings.Delete(ctx, b.ID))
		_, err = store.Bindings.FindByID(ctx, b.ID)
		assert.True(t, apperrors.IsNotFoundKind(err, apperrors.KindUserService))
		assert.True(t, apperrors.IsNotFoundKind(store.Bindings.Delete(ctx, b.ID), apperrors.KindUserService))
	})
}

func TestLoginHistoryRepository_KeysetPagination(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	u := seedUser(t, store.Users, "a@x.com", "alice")

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		// two events share a timestamp to exercise the id tie-break
		at := base.Add(time.Duration(i/2) * time.Minute)
		require.NoError(t, store.Logins.Create(ctx, &model.LoginHistory{UserID: u.ID, UserAgent: fmt.Sprintf("ua-%d", i), LoginDate: at}))
	}

	var seen []uuid.UUID
	var cursor *HistoryCursor
	for {
		page, err := store.Logins.ListByUser(ctx, u.ID, cursor, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, e := range page {
			seen = append(seen, e.ID)
		}
		last := page[len(page)-1]
		cursor = &HistoryCursor{LoginDate: last.LoginDate, ID: last.ID}
	}
	require.Len(t, seen, 5)

	all, err := store.Logins.ListByUser(ctx, u.ID, nil, 10)
	require.NoError(t, err)
	for i, e := range all {
		assert.Equal(t, e.ID, seen[i])
		if i > 0 {
			assert.False(t, e.LoginDate.After(all[i-1].LoginDate))
		}
	}
}

func TestLoginHistoryRepository_Immutable(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	u := seedUser(t, store.Users, "a@x.com", "alice")

	entry := &model.LoginHistory{UserID: u.ID, UserAgent: "curl/8.0", LoginDate: time.Now().UTC()}
	require.NoError(t, store.Logins.Create(ctx, entry))

	err := db.Model(entry).Update("user_agent", "forged").Error
	assert.True(t, errors.Is(err, apperrors.ErrImmutableRecord), "got %v", err)

	err = store.Logins.Create(ctx, &model.LoginHistory{UserID: uuid.New(), UserAgent: "x", LoginDate: time.Now().UTC()})
	assert.True(t, errors.Is(err, apperrors.ErrReferentialIntegrity), "got %v", err)
}

func TestStore_WithTransactionRollsBack(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTransaction(ctx, func(ctx context.Context, repos Repositories) error {
		if err := repos.Users.Create(ctx, &model.User{Email: "a@x.com", Login: "alice", Password: "h"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Users.FindByEmail(ctx, "a@x.com")
	assert.True(t, apperrors.IsNotFoundKind(err, apperrors.KindUser))
}
