package repository

import (
	"context"
	"fmt"

	"moodwave/model"

	"gorm.io/gorm"
)

// TrackRepository defines the interface for track data operations.
type TrackRepository interface {
	Create(ctx context.Context, track *model.Track) error
	List(ctx context.Context) ([]*model.Track, error)
	FindByID(ctx context.Context, id int64) (*model.Track, error)
	Update(ctx context.Context, track *model.Track) error
	Delete(ctx context.Context, id int64) error
}

type gormTrackRepository struct {
	db *gorm.DB
}

// NewTrackRepository creates a gorm-backed TrackRepository.
func NewTrackRepository(db *gorm.DB) TrackRepository {
	return &gormTrackRepository{db: db}
}

// Create inserts track and stamps CreatedAt with the server clock.
// The owner, when set, is reloaded so the caller can serialize it.
func (r *gormTrackRepository) Create(ctx context.Context, track *model.Track) error {
	track.ID = 0
	track.CreatedAt = r.db.NowFunc()

	owner := track.Owner
	track.Owner = nil
	if err := r.db.WithContext(ctx).Omit("Owner").Create(track).Error; err != nil {
		return fmt.Errorf("failed to create track %q: %w", track.Title, err)
	}
	track.Owner = owner
	return nil
}

// List returns every track, newest first.
func (r *gormTrackRepository) List(ctx context.Context) ([]*model.Track, error) {
	tracks := make([]*model.Track, 0)
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Order("created_at DESC, id DESC").
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	return tracks, nil
}

func (r *gormTrackRepository) FindByID(ctx context.Context, id int64) (*model.Track, error) {
	var track model.Track
	if err := r.db.WithContext(ctx).Preload("Owner").First(&track, id).Error; err != nil {
		return nil, fmt.Errorf("failed to find track %d: %w", id, notFound(err))
	}
	return &track, nil
}

// Update writes the editable columns only; owner_id and created_at are never touched.
func (r *gormTrackRepository) Update(ctx context.Context, track *model.Track) error {
	res := r.db.WithContext(ctx).Model(&model.Track{}).
		Where("id = ?", track.ID).
		Updates(map[string]interface{}{
			"title": track.Title,
			"mood":  track.Mood,
			"cover": track.Cover,
			"audio": track.Audio,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update track %d: %w", track.ID, res.Error)
	}
	return nil
}

func (r *gormTrackRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Track{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete track %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("failed to delete track %d: %w", id, ErrNotFound)
	}
	return nil
}
