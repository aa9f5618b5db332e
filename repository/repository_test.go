package repository

import (
	"context"
	"testing"
	"time"

	"moodwave/db"
	"moodwave/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := db.Connect("sqlite://:memory:", false)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { db.Close(gdb) })
	return gdb
}

func createUser(t *testing.T, repo UserRepository, email string) *model.User {
	t.Helper()
	user := &model.User{Email: email, Password: "hash", IsActive: true}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestUserRepositoryCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupTestDB(t))

	user := &model.User{Email: "  Alice@Example.COM ", Password: "hash", DisplayName: "Alice", IsActive: true}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.False(t, user.DateJoined.IsZero())

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", byID.DisplayName)
	assert.True(t, byID.IsActive)
	assert.False(t, byID.IsStaff)

	byEmail, err := repo.FindByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	exists, err := repo.EmailExists(ctx, "alice@EXAMPLE.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.EmailExists(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNormalizeEmail(t *testing.T) {
	tests := map[string]string{
		"alice@example.com":       "alice@example.com",
		"  Alice@Example.COM\n":   "alice@example.com",
		"BOB.Smith@Mail.Example":  "bob.smith@mail.example",
		"\tcarol+tag@EXAMPLE.org": "carol+tag@example.org",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeEmail(in), in)
	}
}

func TestUserRepositoryNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupTestDB(t))

	_, err := repo.FindByID(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.FindByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := NewUserRepository(gdb)

	createUser(t, repo, "dup@example.com")

	err := repo.Create(ctx, &model.User{Email: "DUP@example.com", Password: "hash"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	var count int64
	require.NoError(t, gdb.Model(&model.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUserRepositoryUpdateLastLoginAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupTestDB(t))

	first := createUser(t, repo, "first@example.com")
	second := createUser(t, repo, "second@example.com")

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, first.ID, at))

	got, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.True(t, at.Equal(*got.LastLogin))

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, second.ID, users[0].ID)
}

func TestTrackRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	users := NewUserRepository(gdb)
	repo := NewTrackRepository(gdb)

	owner := createUser(t, users, "owner@example.com")

	track := &model.Track{
		Title:   "Morning",
		Mood:    model.MoodHappy,
		Cover:   "covers/a.png",
		Audio:   "audio/a.mp3",
		OwnerID: &owner.ID,
	}
	require.NoError(t, repo.Create(ctx, track))
	assert.NotZero(t, track.ID)
	assert.False(t, track.CreatedAt.IsZero())

	got, err := repo.FindByID(ctx, track.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Owner)
	assert.Equal(t, "owner@example.com", got.Owner.Email)

	createdAt := got.CreatedAt
	got.Title = "Evening"
	got.Mood = model.MoodSad
	got.Audio = "audio/b.wav"
	other := int64(999)
	got.OwnerID = &other
	got.CreatedAt = createdAt.Add(time.Hour)
	require.NoError(t, repo.Update(ctx, got))

	updated, err := repo.FindByID(ctx, track.ID)
	require.NoError(t, err)
	assert.Equal(t, "Evening", updated.Title)
	assert.Equal(t, model.MoodSad, updated.Mood)
	assert.Equal(t, "audio/b.wav", updated.Audio)
	require.NotNil(t, updated.OwnerID)
	assert.Equal(t, owner.ID, *updated.OwnerID)
	assert.True(t, createdAt.Equal(updated.CreatedAt))

	require.NoError(t, repo.Delete(ctx, track.ID))
	_, err = repo.FindByID(ctx, track.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, track.ID), ErrNotFound)
}

func TestTrackRepositoryListNewestFirst(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := NewTrackRepository(gdb)

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	offsets := []time.Duration{2 * time.Hour, 0, 5 * time.Hour, time.Hour}
	ids := make(map[time.Duration]int64)

	for _, off := range offsets {
		track := &model.Track{Title: off.String(), Mood: model.MoodChill, Cover: "c", Audio: "a.mp3"}
		require.NoError(t, repo.Create(ctx, track))
		require.NoError(t, gdb.Model(&model.Track{}).Where("id = ?", track.ID).
			Update("created_at", base.Add(off)).Error)
		ids[off] = track.ID
	}

	tracks, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tracks, 4)

	want := []int64{ids[5*time.Hour], ids[2*time.Hour], ids[time.Hour], ids[0]}
	var got []int64
	for _, tr := range tracks {
		got = append(got, tr.ID)
		assert.Nil(t, tr.Owner)
	}
	assert.Equal(t, want, got)
}

func TestDeletingUserNullsTrackOwner(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	users := NewUserRepository(gdb)
	repo := NewTrackRepository(gdb)

	owner := createUser(t, users, "leaving@example.com")
	track := &model.Track{Title: "Kept", Mood: model.MoodFocus, Cover: "c", Audio: "a.mp3", OwnerID: &owner.ID}
	require.NoError(t, repo.Create(ctx, track))

	require.NoError(t, gdb.Delete(&model.User{}, owner.ID).Error)

	got, err := repo.FindByID(ctx, track.ID)
	require.NoError(t, err)
	assert.Nil(t, got.OwnerID)
	assert.Nil(t, got.Owner)
}
