package repository

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "authcore/internal/errors"
	"authcore/internal/model"
)

// RoleRepository defines role persistence operations.
type RoleRepository interface {
	Create(ctx context.Context, role *model.Role) error
	Update(ctx context.Context, role *model.Role) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error)
	List(ctx context.Context) ([]model.Role, error)
}

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository creates a new role repository.
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

// Create creates a new role.
func (r *roleRepository) Create(ctx context.Context, role *model.Role) error {
	return r.db.WithContext(ctx).Create(role).Error
}

// Update writes description, access and updated_at of an existing role.
func (r *roleRepository) Update(ctx context.Context, role *model.Role) error {
	return r.db.WithContext(ctx).Model(role).
		Select("description", "access", "updated_at").
		Updates(role).Error
}

// FindByID finds a role by ID.
func (r *roleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	var role model.Role
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&role).Error; err != nil {
		return nil, notFound(err, apperrors.KindRole, id.String())
	}
	return &role, nil
}

// List returns every role, least privileged first.
func (r *roleRepository) List(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := r.db.WithContext(ctx).Find(&roles).Error; err != nil {
		return nil, err
	}
	sortRoles(roles)
	return roles, nil
}

func sortRoles(roles []model.Role) {
	slices.SortStableFunc(roles, func(a, b model.Role) int {
		if c := a.Access.Compare(b.Access); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
