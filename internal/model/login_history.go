package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "authcore/internal/errors"
)

// LoginHistory records one successful authentication event.
// Rows are append-only.
type LoginHistory struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	UserAgent string    `json:"user_agent" gorm:"type:text;not null"`
	LoginDate time.Time `json:"login_date" gorm:"not null;index:idx_login_history_user_date,priority:2"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:char(36);not null;index:idx_login_history_user_date,priority:1"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName pins the table to "login_history".
func (LoginHistory) TableName() string { return "login_history" }

// BeforeCreate sets UUID before creating the record.
func (h *LoginHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// BeforeUpdate rejects every update.
func (h *LoginHistory) BeforeUpdate(tx *gorm.DB) error {
	return apperrors.ErrImmutableRecord
}
