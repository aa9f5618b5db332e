package model

import "time"

// User is an account. Email is the login identity.
type User struct {
	ID          int64      `json:"id" gorm:"primaryKey"`
	Email       string     `json:"email" gorm:"size:254;uniqueIndex;not null"`
	Password    string     `json:"-" gorm:"size:128;not null"` // bcrypt hash
	DisplayName string     `json:"display_name" gorm:"size:150"`
	IsActive    bool       `json:"-" gorm:"not null;default:true"`
	IsStaff     bool       `json:"-" gorm:"not null;default:false"`
	IsSuperuser bool       `json:"-" gorm:"not null;default:false"`
	DateJoined  time.Time  `json:"-" gorm:"not null"`
	LastLogin   *time.Time `json:"-"`
}

// TableName returns the database table name for the User model.
func (User) TableName() string {
	return "users"
}
