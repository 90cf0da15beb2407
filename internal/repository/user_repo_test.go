package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/sparklabs/spark-backend/internal/db"
	"github.com/sparklabs/spark-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestProfile(name string) db.Profile {
	return db.Profile{
		FullName:     name,
		Birthdate:    time.Date(1995, 6, 15, 0, 0, 0, 0, time.UTC),
		Gender:       db.GenderFemale,
		InterestIn:   db.GenderMale,
		AgeMin:       18,
		AgeMax:       100,
		InterestTags: db.StringList{"hiking", "music"},
	}
}

func TestCreateWithProfileAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(setupTestDB(t))

	user, err := repo.CreateWithProfile(ctx, "a@test.com", "hash", newTestProfile("Alice"))
	require.NoError(t, err)
	require.NotZero(t, user.ID)

	byEmail, err := repo.GetByEmail(ctx, "a@test.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID.Profile)
	assert.Equal(t, "Alice", byID.Profile.FullName)
	assert.Equal(t, []string{"hiking", "music"}, []string(byID.Profile.InterestTags))

	exists, err := repo.Exists(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, user.ID+1)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDuplicateEmailRejected(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(setupTestDB(t))

	_, err := repo.CreateWithProfile(ctx, "dup@test.com", "hash", newTestProfile("First"))
	require.NoError(t, err)

	_, err = repo.CreateWithProfile(ctx, "dup@test.com", "hash", newTestProfile("Second"))
	assert.Error(t, err)
}

func TestUpdateProfilePatchSemantics(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(setupTestDB(t))

	user, err := repo.CreateWithProfile(ctx, "b@test.com", "hash", newTestProfile("Bella"))
	require.NoError(t, err)

	bio := "new bio"
	ageMin := 25
	updated, err := repo.UpdateProfile(ctx, user.ID, repository.ProfilePatch{Bio: &bio, AgeMin: &ageMin})
	require.NoError(t, err)

	// present fields change, absent fields survive
	assert.Equal(t, "new bio", updated.Bio)
	assert.Equal(t, 25, updated.AgeMin)
	assert.Equal(t, "Bella", updated.FullName)
	assert.Equal(t, db.GenderMale, updated.InterestIn)
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(setupTestDB(t))

	bio := "x"
	_, err := repo.UpdateProfile(ctx, 999, repository.ProfilePatch{Bio: &bio})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUpsertLocation(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewUserRepository(dbase)

	require.NoError(t, repo.UpsertLocation(ctx, 1, 51.5, -0.12))
	require.NoError(t, repo.UpsertLocation(ctx, 1, 48.85, 2.35))

	var count int64
	dbase.Model(&db.UserLocation{}).Count(&count)
	assert.Equal(t, int64(1), count)

	loc, err := repo.GetLocation(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.InDelta(t, 48.85, loc.Latitude, 1e-9)

	missing, err := repo.GetLocation(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLocationsFor(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(setupTestDB(t))

	require.NoError(t, repo.UpsertLocation(ctx, 1, 51.5, -0.12))
	require.NoError(t, repo.UpsertLocation(ctx, 2, 48.85, 2.35))

	locs, err := repo.LocationsFor(ctx, []uint64{1, 2, 3})
	require.NoError(t, err)
	assert.Len(t, locs, 2)
	_, ok := locs[3]
	assert.False(t, ok)
}

func TestReplaceImageAtPosition(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(setupTestDB(t))

	user, err := repo.CreateWithProfile(ctx, "c@test.com", "hash", newTestProfile("Cara"))
	require.NoError(t, err)
	profile, err := repo.GetProfileByUserID(ctx, user.ID)
	require.NoError(t, err)

	first, prior, err := repo.ReplaceImageAtPosition(ctx, profile.ID, 0, "https://img/1", "key-1")
	require.NoError(t, err)
	assert.Nil(t, prior)

	second, prior, err := repo.ReplaceImageAtPosition(ctx, profile.ID, 0, "https://img/2", "key-2")
	require.NoError(t, err)
	require.NotNil(t, prior)
	assert.Equal(t, first.ID, prior.ID)
	assert.Equal(t, "key-1", prior.StorageKey)

	reloaded, err := repo.GetProfileByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Images, 1)
	assert.Equal(t, second.ID, reloaded.Images[0].ID)
}

func TestResetTokenSingleActive(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewUserRepository(dbase)

	now := time.Now().UTC()
	require.NoError(t, repo.ReplaceResetToken(ctx, "d@test.com", "TOKENAAAA1", now.Add(15*time.Minute)))
	require.NoError(t, repo.ReplaceResetToken(ctx, "d@test.com", "TOKENBBBB2", now.Add(15*time.Minute)))

	var count int64
	dbase.Model(&db.PasswordReset{}).Count(&count)
	assert.Equal(t, int64(1), count)

	// the earlier token is gone
	_, err := repo.GetLiveResetToken(ctx, "TOKENAAAA1", now)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	live, err := repo.GetLiveResetToken(ctx, "TOKENBBBB2", now)
	require.NoError(t, err)
	assert.Equal(t, "d@test.com", live.Email)
}

func TestResetTokenExpiry(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(setupTestDB(t))

	now := time.Now().UTC()
	require.NoError(t, repo.ReplaceResetToken(ctx, "e@test.com", "EXPIREDTK1", now.Add(-time.Minute)))

	_, err := repo.GetLiveResetToken(ctx, "EXPIREDTK1", now)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
