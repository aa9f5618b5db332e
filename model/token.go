package model

import "time"

// BlacklistedToken is a revoked refresh token, kept until it would have expired.
type BlacklistedToken struct {
	JTI       string    `gorm:"column:jti;primaryKey;size:64"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

// TableName returns the database table name for the BlacklistedToken model.
func (BlacklistedToken) TableName() string {
	return "token_blacklist"
}
