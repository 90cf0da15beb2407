package profile_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sparklabs/spark-backend/internal/app"
	"github.com/sparklabs/spark-backend/internal/cache"
	"github.com/sparklabs/spark-backend/internal/config"
	"github.com/sparklabs/spark-backend/internal/db"
	apperr "github.com/sparklabs/spark-backend/internal/errors"
	"github.com/sparklabs/spark-backend/internal/realtime"
	"github.com/sparklabs/spark-backend/internal/repository"
	"github.com/sparklabs/spark-backend/internal/service/profile"
)

// memImageStore records stores and deletes so tests can assert on external
// object lifecycle.
type memImageStore struct {
	stored  int
	deleted []string
}

func (m *memImageStore) Store(ctx context.Context, data []byte, contentType string) (string, string, error) {
	m.stored++
	key := fmt.Sprintf("key-%d", m.stored)
	return "https://img.test/" + key, key, nil
}

func (m *memImageStore) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

func setupService(t *testing.T) (*profile.Service, *gorm.DB, *memImageStore) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	images := &memImageStore{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(cfg, dbase, cache.NewRedisCache(cfg), logger, realtime.NewHub(), images)
	return profile.NewService(appCtx), dbase, images
}

func createProfileUser(t *testing.T, gdb *gorm.DB, name string) uint64 {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
	require.NoError(t, err)

	user := db.User{Email: name + "@test.com", PasswordHash: string(hash)}
	require.NoError(t, gdb.Create(&user).Error)
	require.NoError(t, gdb.Create(&db.Profile{
		UserID:     user.ID,
		FullName:   name,
		Birthdate:  time.Date(1995, 6, 15, 0, 0, 0, 0, time.UTC),
		Gender:     db.GenderFemale,
		InterestIn: db.GenderMale,
		AgeMin:     18,
		AgeMax:     100,
	}).Error)
	return user.ID
}

func TestUpdateProfileValidation(t *testing.T) {
	ctx := context.Background()
	svc, gdb, _ := setupService(t)
	userID := createProfileUser(t, gdb, "val")

	tooYoung := 16
	_, err := svc.UpdateProfile(ctx, userID, repository.ProfilePatch{AgeMin: &tooYoung})
	require.Error(t, err)
	assert.Equal(t, 400, apperr.HTTPStatus(err))

	tooOld := 120
	_, err = svc.UpdateProfile(ctx, userID, repository.ProfilePatch{AgeMax: &tooOld})
	require.Error(t, err)
	assert.Equal(t, 400, apperr.HTTPStatus(err))

	bio := "hello"
	updated, err := svc.UpdateProfile(ctx, userID, repository.ProfilePatch{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "hello", updated.Bio)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, gdb, _ := setupService(t)
	userID := createProfileUser(t, gdb, "pw")

	err := svc.ChangePassword(ctx, userID, "wrong-password", "new-password")
	require.Error(t, err)
	assert.Equal(t, 400, apperr.HTTPStatus(err))

	require.NoError(t, svc.ChangePassword(ctx, userID, "old-password", "new-password"))

	var user db.User
	require.NoError(t, gdb.First(&user, userID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("new-password")))
}

func TestUploadImageReplacementReleasesOldObject(t *testing.T) {
	ctx := context.Background()
	svc, gdb, images := setupService(t)
	userID := createProfileUser(t, gdb, "img")

	first, err := svc.UploadImage(ctx, userID, 0, []byte("img-bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Empty(t, images.deleted)

	second, err := svc.UploadImage(ctx, userID, 0, []byte("img-bytes-2"), "image/jpeg")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	// the replaced slot's external object is gone
	assert.Equal(t, []string{first.StorageKey}, images.deleted)

	var count int64
	gdb.Model(&db.ProfileImage{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestUploadImageDifferentSlotsCoexist(t *testing.T) {
	ctx := context.Background()
	svc, gdb, images := setupService(t)
	userID := createProfileUser(t, gdb, "slots")

	_, err := svc.UploadImage(ctx, userID, 0, []byte("a"), "image/jpeg")
	require.NoError(t, err)
	_, err = svc.UploadImage(ctx, userID, 1, []byte("b"), "image/jpeg")
	require.NoError(t, err)

	assert.Empty(t, images.deleted)

	var count int64
	gdb.Model(&db.ProfileImage{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestDeleteImage(t *testing.T) {
	ctx := context.Background()
	svc, gdb, images := setupService(t)
	userID := createProfileUser(t, gdb, "del")
	otherID := createProfileUser(t, gdb, "other")

	img, err := svc.UploadImage(ctx, userID, 0, []byte("a"), "image/jpeg")
	require.NoError(t, err)

	// not the owner
	err = svc.DeleteImage(ctx, otherID, img.ID)
	require.Error(t, err)
	assert.Equal(t, 404, apperr.HTTPStatus(err))

	require.NoError(t, svc.DeleteImage(ctx, userID, img.ID))
	assert.Contains(t, images.deleted, img.StorageKey)

	err = svc.DeleteImage(ctx, userID, img.ID)
	require.Error(t, err)
	assert.Equal(t, 404, apperr.HTTPStatus(err))
}

func TestUpdateLocationValidation(t *testing.T) {
	ctx := context.Background()
	svc, gdb, _ := setupService(t)
	userID := createProfileUser(t, gdb, "loc")

	err := svc.UpdateLocation(ctx, userID, 91.0, 0)
	require.Error(t, err)
	assert.Equal(t, 400, apperr.HTTPStatus(err))

	err = svc.UpdateLocation(ctx, userID, 0, -181.0)
	require.Error(t, err)
	assert.Equal(t, 400, apperr.HTTPStatus(err))

	require.NoError(t, svc.UpdateLocation(ctx, userID, 51.5074, -0.1278))

	var loc db.UserLocation
	require.NoError(t, gdb.Where("user_id = ?", userID).First(&loc).Error)
	assert.InDelta(t, 51.5074, loc.Latitude, 1e-9)
}
