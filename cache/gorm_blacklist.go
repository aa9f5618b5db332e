package cache

import (
	"context"
	"fmt"
	"time"

	"moodwave/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBlacklist keeps revoked tokens in the token_blacklist table. It is
// used when no redis is configured.
type GormBlacklist struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormBlacklist creates a Blacklist on db. The table must already be migrated.
func NewGormBlacklist(db *gorm.DB) *GormBlacklist {
	return &GormBlacklist{db: db, now: time.Now}
}

// WithClock replaces the time source used to decide expiry.
func (b *GormBlacklist) WithClock(now func() time.Time) *GormBlacklist {
	b.now = now
	return b
}

func (b *GormBlacklist) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	now := b.now().UTC()
	if !expiresAt.After(now) {
		return nil
	}

	tx := b.db.WithContext(ctx)
	// Rows past their expiry can never match again.
	if err := tx.Where("expires_at <= ?", now).Delete(&model.BlacklistedToken{}).Error; err != nil {
		return fmt.Errorf("failed to prune token blacklist: %w", err)
	}

	entry := &model.BlacklistedToken{JTI: jti, ExpiresAt: expiresAt.UTC(), CreatedAt: now}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to blacklist token %s: %w", jti, err)
	}
	return nil
}

func (b *GormBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	var n int64
	err := b.db.WithContext(ctx).Model(&model.BlacklistedToken{}).
		Where("jti = ? AND expires_at > ?", jti, b.now().UTC()).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist for %s: %w", jti, err)
	}
	return n > 0, nil
}
