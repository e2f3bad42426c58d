package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "authcore/internal/errors"
	"authcore/internal/model"
)

// BindingRepository defines persistence operations for user_service rows.
type BindingRepository interface {
	Create(ctx context.Context, binding *model.UserService) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.UserService, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*model.UserService, error)
	ListByRoleID(ctx context.Context, roleID uuid.UUID) ([]model.UserService, error)
}

type bindingRepository struct {
	db *gorm.DB
}

// NewBindingRepository creates a new binding repository.
func NewBindingRepository(db *gorm.DB) BindingRepository {
	return &bindingRepository{db: db}
}

// Create inserts a binding. A second binding for the same user fails with
// ErrAlreadyBound; a dangling role or user fails with ReferentialIntegrityError.
func (r *bindingRepository) Create(ctx context.Context, binding *model.UserService) error {
	err := r.db.WithContext(ctx).Omit("Role", "User").Create(binding).Error
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return fmt.Errorf("user %s: %w", binding.UserID, apperrors.ErrAlreadyBound)
	default:
		return translateReferenceError(err)
	}
}

// SetActive writes is_active.
func (r *bindingRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).Model(&model.UserService{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

// Delete removes a binding.
func (r *bindingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.UserService{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFound(apperrors.KindUserService, id.String())
	}
	return nil
}

// FindByID finds a binding by ID.
func (r *bindingRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.UserService, error) {
	var binding model.UserService
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&binding).Error; err != nil {
		return nil, notFound(err, apperrors.KindUserService, id.String())
	}
	return &binding, nil
}

// FindByUserID finds the binding held by a user.
func (r *bindingRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.UserService, error) {
	var binding model.UserService
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&binding).Error; err != nil {
		return nil, notFound(err, apperrors.KindUserService, userID.String())
	}
	return &binding, nil
}

// ListByRoleID lists every binding governed by a role, oldest first.
func (r *bindingRepository) ListByRoleID(ctx context.Context, roleID uuid.UUID) ([]model.UserService, error) {
	var bindings []model.UserService
	err := r.db.WithContext(ctx).
		Where("role_id = ?", roleID).
		Order("data_joined ASC").Order("id ASC").
		Find(&bindings).Error
	if err != nil {
		return nil, err
	}
	return bindings, nil
}
