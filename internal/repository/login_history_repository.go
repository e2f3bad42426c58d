package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"authcore/internal/model"
)

// HistoryCursor is the keyset position of the last row of a page.
type HistoryCursor struct {
	LoginDate time.Time
	ID        uuid.UUID
}

// LoginHistoryRepository defines append-only persistence for login events.
// Rows are never updated.
type LoginHistoryRepository interface {
	Create(ctx context.Context, entry *model.LoginHistory) error
	ListByUser(ctx context.Context, userID uuid.UUID, after *HistoryCursor, limit int) ([]model.LoginHistory, error)
}

type loginHistoryRepository struct {
	db *gorm.DB
}

// NewLoginHistoryRepository creates a new login history repository.
func NewLoginHistoryRepository(db *gorm.DB) LoginHistoryRepository {
	return &loginHistoryRepository{db: db}
}

// Create appends a login event.
func (r *loginHistoryRepository) Create(ctx context.Context, entry *model.LoginHistory) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(entry).Error; err != nil {
		return translateReferenceError(err)
	}
	return nil
}

// ListByUser returns up to limit events, most recent first, strictly after the cursor.
func (r *loginHistoryRepository) ListByUser(ctx context.Context, userID uuid.UUID, after *HistoryCursor, limit int) ([]model.LoginHistory, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if after != nil {
		q = q.Where("login_date < ? OR (login_date = ? AND id < ?)", after.LoginDate, after.LoginDate, after.ID)
	}
	var entries []model.LoginHistory
	err := q.Order("login_date DESC").Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
