package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories groups the repositories that share one connection or transaction.
type Repositories struct {
	Users    UserRepository
	Roles    RoleRepository
	Bindings BindingRepository
	Logins   LoginHistoryRepository
}

// Transactor runs fn atomically; fn receives repositories bound to the transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Store is the GORM-backed Transactor. Its embedded Repositories run outside any transaction.
type Store struct {
	Repositories
	db *gorm.DB
}

var _ Transactor = (*Store)(nil)

// NewStore wires every repository to db.
func NewStore(db *gorm.DB) *Store {
	return &Store{Repositories: newRepositories(db), db: db}
}

func newRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:    NewUserRepository(db),
		Roles:    NewRoleRepository(db),
		Bindings: NewBindingRepository(db),
		Logins:   NewLoginHistoryRepository(db),
	}
}

// WithTransaction executes a function within a database transaction.
// Any error returned by fn rolls back every write made through repos.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, newRepositories(tx))
	})
}
