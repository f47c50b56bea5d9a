package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID            string `gorm:"type:char(12);primaryKey" json:"id"`
	Email         string `gorm:"size:250;not null;unique" json:"email"`
	PasswordHash  string `gorm:"type:varchar(100);not null" json:"-"`
	EmailVerified bool   `gorm:"default:false" json:"email_verified"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}
