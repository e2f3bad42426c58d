package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	apperrors "authcore/internal/errors"
	"authcore/internal/model"
	"authcore/internal/repository"
)

// Access is a user's resolved privilege together with the binding state that
// gates authentication. Policy layers decide whether an inactive binding counts.
type Access struct {
	UserID    uuid.UUID         `json:"user_id"`
	BindingID uuid.UUID         `json:"binding_id"`
	RoleID    uuid.UUID         `json:"role_id"`
	Level     model.AccessLevel `json:"access"`
	IsActive  bool              `json:"is_active"`
}

// BindingService associates users with roles and tracks activation.
// A user holds at most one binding; rebinding requires Unbind first.
type BindingService interface {
	Bind(ctx context.Context, userID, roleID uuid.UUID) (*model.UserService, error)
	Activate(ctx context.Context, bindingID uuid.UUID) (*model.UserService, error)
	Deactivate(ctx context.Context, bindingID uuid.UUID) (*model.UserService, error)
	Unbind(ctx context.Context, bindingID uuid.UUID) error
	Get(ctx context.Context, bindingID uuid.UUID) (*model.UserService, error)
	GetForUser(ctx context.Context, userID uuid.UUID) (*model.UserService, error)
	ListForRole(ctx context.Context, roleID uuid.UUID) ([]model.UserService, error)
	EffectiveAccessLevel(ctx context.Context, userID uuid.UUID) (model.AccessLevel, error)
	EffectiveAccess(ctx context.Context, userID uuid.UUID) (*Access, error)
}

type bindingService struct {
	tx    repository.Transactor
	repos repository.Repositories
	now   Clock
}

// NewBindingService creates a new binding service. clock may be nil.
func NewBindingService(tx repository.Transactor, repos repository.Repositories, clock Clock) BindingService {
	return &bindingService{tx: tx, repos: repos, now: clockOrSystem(clock)}
}

// Bind grants roleID to userID. Both must exist and the user must not already be bound.
func (s *bindingService) Bind(ctx context.Context, userID, roleID uuid.UUID) (*model.UserService, error) {
	binding := &model.UserService{
		UserID:   userID,
		RoleID:   roleID,
		IsActive: true,
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Users.FindByID(ctx, userID); err != nil {
			return err
		}
		if _, err := repos.Roles.FindByID(ctx, roleID); err != nil {
			return err
		}

		existing, err := repos.Bindings.FindByUserID(ctx, userID)
		switch {
		case err == nil:
			return fmt.Errorf("user %s holds binding %s: %w", userID, existing.ID, apperrors.ErrAlreadyBound)
		case !apperrors.IsNotFoundKind(err, apperrors.KindUserService):
			return err
		}

		binding.DataJoined = s.now()
		return repos.Bindings.Create(ctx, binding)
	})
	if err != nil {
		return nil, fmt.Errorf("bind user %s to role %s: %w", userID, roleID, err)
	}
	return binding, nil
}

func (s *bindingService) Activate(ctx context.Context, bindingID uuid.UUID) (*model.UserService, error) {
	return s.setActive(ctx, bindingID, true)
}

func (s *bindingService) Deactivate(ctx context.Context, bindingID uuid.UUID) (*model.UserService, error) {
	return s.setActive(ctx, bindingID, false)
}

// setActive is idempotent: an already matching binding is returned unchanged.
func (s *bindingService) setActive(ctx context.Context, bindingID uuid.UUID, active bool) (*model.UserService, error) {
	var binding *model.UserService
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		b, err := repos.Bindings.FindByID(ctx, bindingID)
		if err != nil {
			return err
		}
		binding = b
		if b.IsActive == active {
			return nil
		}
		if err := repos.Bindings.SetActive(ctx, bindingID, active); err != nil {
			return err
		}
		b.IsActive = active
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("set binding %s active=%t: %w", bindingID, active, err)
	}
	return binding, nil
}

// Unbind removes a binding so the user can be bound again.
func (s *bindingService) Unbind(ctx context.Context, bindingID uuid.UUID) error {
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Bindings.Delete(ctx, bindingID)
	})
	if err != nil {
		return fmt.Errorf("unbind %s: %w", bindingID, err)
	}
	return nil
}

func (s *bindingService) Get(ctx context.Context, bindingID uuid.UUID) (*model.UserService, error) {
	return s.repos.Bindings.FindByID(ctx, bindingID)
}

// GetForUser returns the user's binding; NotFound(user) if the user is absent,
// NotFound(user_service) if the user exists but is unbound.
func (s *bindingService) GetForUser(ctx context.Context, userID uuid.UUID) (*model.UserService, error) {
	if _, err := s.repos.Users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.repos.Bindings.FindByUserID(ctx, userID)
}

func (s *bindingService) ListForRole(ctx context.Context, roleID uuid.UUID) ([]model.UserService, error) {
	if _, err := s.repos.Roles.FindByID(ctx, roleID); err != nil {
		return nil, err
	}
	return s.repos.Bindings.ListByRoleID(ctx, roleID)
}

// EffectiveAccessLevel reads the level through the user's binding. Inactive
// bindings still resolve.
func (s *bindingService) EffectiveAccessLevel(ctx context.Context, userID uuid.UUID) (model.AccessLevel, error) {
	access, err := s.EffectiveAccess(ctx, userID)
	if err != nil {
		return 0, err
	}
	return access.Level, nil
}

func (s *bindingService) EffectiveAccess(ctx context.Context, userID uuid.UUID) (*Access, error) {
	binding, err := s.GetForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	role, err := s.repos.Roles.FindByID(ctx, binding.RoleID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, &apperrors.ReferentialIntegrityError{Kind: apperrors.KindRole}
		}
		return nil, err
	}
	return &Access{
		UserID:    userID,
		BindingID: binding.ID,
		RoleID:    role.ID,
		Level:     role.Access,
		IsActive:  binding.IsActive,
	}, nil
}
