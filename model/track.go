package model

import "time"

// Mood is the fixed categorical tag on a Track.
type Mood string

const (
	MoodHappy Mood = "happy"
	MoodChill Mood = "chill"
	MoodFocus Mood = "focus"
	MoodSad   Mood = "sad"
)

// Moods lists every valid mood in display order.
var Moods = []Mood{MoodHappy, MoodChill, MoodFocus, MoodSad}

// Valid reports whether m is one of the known moods.
func (m Mood) Valid() bool {
	for _, known := range Moods {
		if m == known {
			return true
		}
	}
	return false
}

// Track is an uploaded audio file with its cover art.
// Cover and Audio hold media store object keys, not URLs.
type Track struct {
	ID        int64     `gorm:"primaryKey"`
	Title     string    `gorm:"size:200;not null"`
	Mood      Mood      `gorm:"size:10;not null"`
	Cover     string    `gorm:"size:255;not null"`
	Audio     string    `gorm:"size:255;not null"`
	OwnerID   *int64    `gorm:"index"`
	Owner     *User     `gorm:"foreignKey:OwnerID;constraint:OnDelete:SET NULL;"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// TableName returns the database table name for the Track model.
func (Track) TableName() string {
	return "tracks"
}

// OwnedBy reports whether userID owns the track. Anonymous tracks are owned by nobody.
func (t *Track) OwnedBy(userID int64) bool {
	return t.OwnerID != nil && *t.OwnerID == userID
}

// OwnerEmail returns the owner's email, or nil for anonymous tracks.
func (t *Track) OwnerEmail() *string {
	if t.Owner == nil {
		return nil
	}
	email := t.Owner.Email
	return &email
}
