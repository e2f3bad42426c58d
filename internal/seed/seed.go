// Package seed installs the baseline access catalog and an optional superuser.
// Every step is idempotent, so the seeder can run on each deploy.
package seed

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"authcore/internal/config"
	apperrors "authcore/internal/errors"
	"authcore/internal/model"
	"authcore/internal/service"
)

// Result reports what a run changed.
type Result struct {
	RolesCreated int
	AdminCreated bool
	AdminBound   bool
}

// Seeder writes seed data through the services.
type Seeder struct {
	identity service.IdentityService
	roles    service.RoleService
	bindings service.BindingService
	log      *zap.SugaredLogger
}

// New creates a Seeder.
func New(identity service.IdentityService, roles service.RoleService, bindings service.BindingService, log *zap.SugaredLogger) *Seeder {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Seeder{identity: identity, roles: roles, bindings: bindings, log: log}
}

// Run seeds one role per access level, described by the level's name, and
// the admin account when cfg is enabled.
func (s *Seeder) Run(ctx context.Context, cfg config.SeedConfig) (*Result, error) {
	res := &Result{}
	byLevel, created, err := s.seedRoles(ctx)
	if err != nil {
		return nil, err
	}
	res.RolesCreated = created

	if !cfg.Enabled() {
		return res, nil
	}
	if err := s.seedAdmin(ctx, cfg, byLevel[model.AccessSuperuser], res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Seeder) seedRoles(ctx context.Context) (map[model.AccessLevel]*model.Role, int, error) {
	existing, err := s.roles.List(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list roles: %w", err)
	}

	byLevel := make(map[model.AccessLevel]*model.Role)
	for i := range existing {
		r := &existing[i]
		if r.Description != nil && *r.Description == r.Access.String() {
			byLevel[r.Access] = r
		}
	}

	created := 0
	for _, level := range model.AccessLevels() {
		if _, ok := byLevel[level]; ok {
			continue
		}
		desc := level.String()
		role, err := s.roles.Create(ctx, &desc, level)
		if err != nil {
			return nil, 0, fmt.Errorf("seed %s role: %w", level, err)
		}
		s.log.Infow("seeded role", "role_id", role.ID, "access", level)
		byLevel[level] = role
		created++
	}
	return byLevel, created, nil
}

func (s *Seeder) seedAdmin(ctx context.Context, cfg config.SeedConfig, role *model.Role, res *Result) error {
	admin, err := s.identity.GetByLogin(ctx, cfg.AdminLogin)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		admin, err = s.identity.Create(ctx, service.CreateUserInput{
			Email:    cfg.AdminEmail,
			Login:    cfg.AdminLogin,
			Password: string(hash),
		})
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		res.AdminCreated = true
		s.log.Infow("seeded admin", "user_id", admin.ID, "login", admin.Login)
	case err != nil:
		return fmt.Errorf("find admin: %w", err)
	}

	_, err = s.bindings.Bind(ctx, admin.ID, role.ID)
	switch {
	case err == nil:
		res.AdminBound = true
		s.log.Infow("bound admin", "user_id", admin.ID, "role_id", role.ID)
	case errors.Is(err, apperrors.ErrAlreadyBound):
		access, err := s.bindings.EffectiveAccess(ctx, admin.ID)
		if err != nil {
			return fmt.Errorf("read admin access: %w", err)
		}
		if access.Level != model.AccessSuperuser {
			return fmt.Errorf("admin %s is bound to a %s role", admin.Login, access.Level)
		}
		if !access.IsActive {
			s.log.Warnw("admin binding is inactive", "user_id", admin.ID, "binding_id", access.BindingID)
		}
		s.log.Infow("admin already bound", "user_id", admin.ID)
	default:
		return fmt.Errorf("bind admin: %w", err)
	}
	return nil
}
