package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"authcore/internal/cache"
	apperrors "authcore/internal/errors"
	"authcore/internal/model"
	"authcore/internal/repository"
)

const roleCacheTTL = 5 * time.Minute

// UpdateRoleInput is a partial role update. A blank description clears it.
type UpdateRoleInput struct {
	Description *string            `json:"description"`
	Access      *model.AccessLevel `json:"access"`
}

// RoleService maintains the access catalog.
type RoleService interface {
	Create(ctx context.Context, description *string, access model.AccessLevel) (*model.Role, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateRoleInput) (*model.Role, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Role, error)
	List(ctx context.Context) ([]model.Role, error)
}

type roleService struct {
	tx    repository.Transactor
	roles repository.RoleRepository
	cache *cache.Client
	now   Clock
}

// NewRoleService creates a new role service. cache and clock may be nil.
func NewRoleService(tx repository.Transactor, roles repository.RoleRepository, cache *cache.Client, clock Clock) RoleService {
	return &roleService{tx: tx, roles: roles, cache: cache, now: clockOrSystem(clock)}
}

func (s *roleService) cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("role:%s", id.String())
}

// Create adds a role. access must be one of the defined levels.
func (s *roleService) Create(ctx context.Context, description *string, access model.AccessLevel) (*model.Role, error) {
	if !access.Valid() {
		return nil, fmt.Errorf("create role with level %d: %w", uint8(access), apperrors.ErrInvalidAccessLevel)
	}

	now := s.now()
	role := &model.Role{
		Description: optional(description),
		Access:      access,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Roles.Create(ctx, role)
	})
	if err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}
	return role, nil
}

// Update changes description and/or access. Bindings reference the role, so a
// new level applies to every bound user at once.
func (s *roleService) Update(ctx context.Context, id uuid.UUID, in UpdateRoleInput) (*model.Role, error) {
	if in.Access != nil && !in.Access.Valid() {
		return nil, fmt.Errorf("update role %s: %w", id, apperrors.ErrInvalidAccessLevel)
	}

	var updated *model.Role
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		role, err := repos.Roles.FindByID(ctx, id)
		if err != nil {
			return err
		}

		changed := false
		if in.Description != nil {
			desc := optional(in.Description)
			if !sameString(desc, role.Description) {
				role.Description = desc
				changed = true
			}
		}
		if in.Access != nil && *in.Access != role.Access {
			role.Access = *in.Access
			changed = true
		}
		updated = role
		if !changed {
			return nil
		}

		role.UpdatedAt = s.now()
		return repos.Roles.Update(ctx, role)
	})
	if err != nil {
		return nil, fmt.Errorf("update role %s: %w", id, err)
	}

	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return updated, nil
}

// Get finds a role by id, consulting the cache first.
func (s *roleService) Get(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	var cached model.Role
	if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
		return &cached, nil
	}

	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, s.cacheKey(id), role, roleCacheTTL)
	return role, nil
}

// List returns every role, least privileged first.
func (s *roleService) List(ctx context.Context) ([]model.Role, error) {
	return s.roles.List(ctx)
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
