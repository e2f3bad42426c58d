package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserService binds a User to the Role that governs it and tracks activation.
// A user holds at most one binding.
type UserService struct {
	ID         uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	IsActive   bool      `json:"is_active" gorm:"not null"`
	DataJoined time.Time `json:"data_joined" gorm:"not null"`
	RoleID     uuid.UUID `json:"role_id" gorm:"type:char(36);not null;index:idx_user_service_role"`
	UserID     uuid.UUID `json:"user_id" gorm:"type:char(36);not null;uniqueIndex:idx_user_service_user"`

	// Foreign keys only; bindings are fetched on demand, never preloaded.
	Role *Role `json:"-" gorm:"foreignKey:RoleID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName pins the table to "user_service".
func (UserService) TableName() string { return "user_service" }

// BeforeCreate sets UUID before creating the record.
func (s *UserService) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
