package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"authcore/internal/cache"
	apperrors "authcore/internal/errors"
	"authcore/internal/model"
	"authcore/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// CreateUserInput carries a registration. Password is an already-hashed, opaque credential.
type CreateUserInput struct {
	Email       string     `json:"email" validate:"required,max=254,email"`
	Login       string     `json:"login" validate:"required,max=60,handle"`
	Password    string     `json:"password" validate:"required,max=255"`
	Avatar      *string    `json:"avatar"`
	Bio         *string    `json:"bio"`
	FirstName   *string    `json:"first_name" validate:"omitempty,max=60"`
	LastName    *string    `json:"last_name" validate:"omitempty,max=60"`
	PhoneNumber *string    `json:"phone_number" validate:"omitempty,max=24"`
	Birthday    *time.Time `json:"birthday"`
}

// UpdateUserInput is a partial profile update: nil leaves a field unchanged,
// a blank string clears an optional field and a zero Birthday clears it.
type UpdateUserInput struct {
	Email       *string    `json:"email" validate:"omitempty,max=254,email"`
	Login       *string    `json:"login" validate:"omitempty,max=60,handle"`
	Avatar      *string    `json:"avatar"`
	Bio         *string    `json:"bio"`
	FirstName   *string    `json:"first_name" validate:"omitempty,max=60"`
	LastName    *string    `json:"last_name" validate:"omitempty,max=60"`
	PhoneNumber *string    `json:"phone_number" validate:"omitempty,max=24"`
	Birthday    *time.Time `json:"birthday"`
}

// IdentityService creates and looks up users.
type IdentityService interface {
	Create(ctx context.Context, in CreateUserInput) (*model.User, error)
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*model.User, error)
}

type identityService struct {
	tx    repository.Transactor
	users repository.UserRepository
	cache *cache.Client
}

// NewIdentityService builds an IdentityService. cache may be nil.
func NewIdentityService(tx repository.Transactor, users repository.UserRepository, cache *cache.Client) IdentityService {
	return &identityService{tx: tx, users: users, cache: cache}
}

func (s *identityService) cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s", id.String())
}

// cachedUser keeps the credential that model.User hides from JSON.
type cachedUser struct {
	model.User
	Password string `json:"password"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create registers a user. Email and login must both be free; the check and
// the insert share one transaction and the unique indexes settle any race.
func (s *identityService) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.Login = strings.TrimSpace(in.Login)
	in.Avatar = optional(in.Avatar)
	in.Bio = optional(in.Bio)
	in.FirstName = optional(in.FirstName)
	in.LastName = optional(in.LastName)
	in.PhoneNumber = optional(in.PhoneNumber)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	user := &model.User{
		Email:       in.Email,
		Login:       in.Login,
		Password:    in.Password,
		Avatar:      in.Avatar,
		Bio:         in.Bio,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		PhoneNumber: in.PhoneNumber,
	}
	if in.Birthday != nil && !in.Birthday.IsZero() {
		b := in.Birthday.UTC()
		user.Birthday = &b
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := ensureAvailable(ctx, repos.Users, uuid.Nil, user.Email, user.Login); err != nil {
			return err
		}
		return repos.Users.Create(ctx, user)
	})
	if err != nil {
		user.ID = uuid.Nil
		return nil, fmt.Errorf("create user: %w", s.resolveDuplicate(ctx, err, user.Email, user.Login))
	}
	return user, nil
}

// Get finds a user by id, consulting the cache first.
func (s *identityService) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var cached cachedUser
	if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
		user := cached.User
		user.Password = cached.Password
		return &user, nil
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, s.cacheKey(id), cachedUser{User: *user, Password: user.Password}, userCacheTTL)
	return user, nil
}

func (s *identityService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.users.FindByEmail(ctx, normalizeEmail(email))
}

func (s *identityService) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	return s.users.FindByLogin(ctx, strings.TrimSpace(login))
}

// UpdateProfile applies a partial update. A changed email or login is
// re-checked for uniqueness in the same transaction as the write.
func (s *identityService) UpdateProfile(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*model.User, error) {
	if in.Email != nil {
		e := normalizeEmail(*in.Email)
		in.Email = &e
	}
	if in.Login != nil {
		l := strings.TrimSpace(*in.Login)
		in.Login = &l
	}
	if in.Email != nil && *in.Email == "" {
		return nil, apperrors.NewValidationError("email", "is required")
	}
	if in.Login != nil && *in.Login == "" {
		return nil, apperrors.NewValidationError("login", "is required")
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	// changedEmail and changedLogin are set only for values that differ from the stored row.
	var (
		updated                    *model.User
		changedEmail, changedLogin string
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		user, err := repos.Users.FindByID(ctx, id)
		if err != nil {
			return err
		}

		changedEmail, changedLogin = "", ""
		if in.Email != nil && *in.Email != user.Email {
			changedEmail = *in.Email
		}
		if in.Login != nil && *in.Login != user.Login {
			changedLogin = *in.Login
		}
		if err := ensureAvailable(ctx, repos.Users, user.ID, changedEmail, changedLogin); err != nil {
			return err
		}

		applyProfile(user, in)
		if err := repos.Users.Update(ctx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update user %s: %w", id, s.resolveDuplicate(ctx, err, changedEmail, changedLogin))
	}

	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return updated, nil
}

func applyProfile(user *model.User, in UpdateUserInput) {
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.Login != nil {
		user.Login = *in.Login
	}
	if in.Avatar != nil {
		user.Avatar = optional(in.Avatar)
	}
	if in.Bio != nil {
		user.Bio = optional(in.Bio)
	}
	if in.FirstName != nil {
		user.FirstName = optional(in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = optional(in.LastName)
	}
	if in.PhoneNumber != nil {
		user.PhoneNumber = optional(in.PhoneNumber)
	}
	if in.Birthday != nil {
		if in.Birthday.IsZero() {
			user.Birthday = nil
		} else {
			b := in.Birthday.UTC()
			user.Birthday = &b
		}
	}
}

// ensureAvailable fails with DuplicateIdentityError when email or login
// belongs to a user other than self. Empty values are not checked.
func ensureAvailable(ctx context.Context, users repository.UserRepository, self uuid.UUID, email, login string) error {
	checks := []struct {
		field string
		value string
		find  func(context.Context, string) (*model.User, error)
	}{
		{"email", email, users.FindByEmail},
		{"login", login, users.FindByLogin},
	}
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		existing, err := c.find(ctx, c.value)
		switch {
		case err == nil && existing.ID != self:
			return apperrors.NewDuplicateIdentity(c.field)
		case err != nil && !errors.Is(err, apperrors.ErrNotFound):
			return fmt.Errorf("check %s: %w", c.field, err)
		}
	}
	return nil
}

// resolveDuplicate names the colliding field when the store reported a
// unique violation without identifying the index.
func (s *identityService) resolveDuplicate(ctx context.Context, err error, email, login string) error {
	var dup *apperrors.DuplicateIdentityError
	if !errors.As(err, &dup) || dup.Field != "" {
		return err
	}
	if email != "" {
		if _, findErr := s.users.FindByEmail(ctx, email); findErr == nil {
			return apperrors.NewDuplicateIdentity("email")
		}
	}
	if login != "" {
		if _, findErr := s.users.FindByLogin(ctx, login); findErr == nil {
			return apperrors.NewDuplicateIdentity("login")
		}
	}
	return err
}
