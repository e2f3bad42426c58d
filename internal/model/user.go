package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Column limits for User.
const (
	EmailMaxLen = 254
	LoginMaxLen = 60
	NameMaxLen  = 60
	PhoneMaxLen = 24
)

// User is the canonical identity of a person.
type User struct {
	ID          uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Email       string     `json:"email" gorm:"size:254;not null;uniqueIndex:idx_user_email"`
	Login       string     `json:"login" gorm:"size:60;not null;uniqueIndex:idx_user_login"`
	Password    string     `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Avatar      *string    `json:"avatar,omitempty" gorm:"type:text"`
	Bio         *string    `json:"bio,omitempty" gorm:"type:text"`
	FirstName   *string    `json:"first_name,omitempty" gorm:"size:60"`
	LastName    *string    `json:"last_name,omitempty" gorm:"size:60"`
	PhoneNumber *string    `json:"phone_number,omitempty" gorm:"size:24"`
	Birthday    *time.Time `json:"birthday,omitempty"`
}

// TableName pins the table to "user".
func (User) TableName() string { return "user" }

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
