package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is an administratively managed privilege bundle carrying one AccessLevel.
type Role struct {
	ID          uuid.UUID   `json:"id" gorm:"type:char(36);primaryKey"`
	Description *string     `json:"description,omitempty" gorm:"type:text"`
	Access      AccessLevel `json:"access" gorm:"type:varchar(16);not null;index"`
	CreatedAt   time.Time   `json:"created_at" gorm:"not null;autoCreateTime:false"`
	UpdatedAt   time.Time   `json:"updated_at" gorm:"not null;autoUpdateTime:false"`
}

// TableName pins the table to "role".
func (Role) TableName() string { return "role" }

// BeforeCreate sets UUID before creating the record.
func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
