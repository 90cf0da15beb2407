package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/sparklabs/spark-backend/internal/db"
)

// ProfilePatch carries a partial profile update. Every field is optional;
// only fields with a non-nil pointer are applied.
type ProfilePatch struct {
	FullName     *string
	Bio          *string
	Birthdate    *time.Time
	Gender       *string
	InterestIn   *string
	AgeMin       *int
	AgeMax       *int
	InterestTags *[]string
}

// UserRepository provides data access for accounts, profiles, images,
// locations and password-reset tokens.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// CreateWithProfile creates the account and its default profile atomically.
func (r *UserRepository) CreateWithProfile(ctx context.Context, email, passwordHash string, profile db.Profile) (*db.User, error) {
	user := db.User{Email: email, PasswordHash: passwordHash}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		profile.UserID = user.ID
		return tx.Create(&profile).Error
	})
	if err != nil {
		return nil, err
	}
	user.Profile = &profile
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*db.User, error) {
	var user db.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID loads the account with its profile (and images) and location.
func (r *UserRepository) GetByID(ctx context.Context, id uint64) (*db.User, error) {
	var user db.User
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Preload("Profile.Images").
		Preload("Location").
		First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Exists(ctx context.Context, id uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID uint64, passwordHash string) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", userID).
		Update("password_hash", passwordHash).Error
}

// --- profiles ---

func (r *UserRepository) GetProfileByUserID(ctx context.Context, userID uint64) (*db.Profile, error) {
	var profile db.Profile
	err := r.db.WithContext(ctx).
		Preload("Images", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Where("user_id = ?", userID).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile applies a partial update with explicit per-field presence
// checks and returns the refreshed profile.
func (r *UserRepository) UpdateProfile(ctx context.Context, userID uint64, patch ProfilePatch) (*db.Profile, error) {
	updates := map[string]interface{}{}
	if patch.FullName != nil {
		updates["full_name"] = *patch.FullName
	}
	if patch.Bio != nil {
		updates["bio"] = *patch.Bio
	}
	if patch.Birthdate != nil {
		updates["birthdate"] = *patch.Birthdate
	}
	if patch.Gender != nil {
		updates["gender"] = *patch.Gender
	}
	if patch.InterestIn != nil {
		updates["interest_in"] = *patch.InterestIn
	}
	if patch.AgeMin != nil {
		updates["age_min"] = *patch.AgeMin
	}
	if patch.AgeMax != nil {
		updates["age_max"] = *patch.AgeMax
	}
	if patch.InterestTags != nil {
		updates["interest_tags"] = db.StringList(*patch.InterestTags)
	}

	if len(updates) > 0 {
		res := r.db.WithContext(ctx).
			Model(&db.Profile{}).
			Where("user_id = ?", userID).
			Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return r.GetProfileByUserID(ctx, userID)
}

// CandidatePool returns every profile not in the exclusion set, optionally
// narrowed to a declared gender. Age and distance filtering happen in the
// discovery service over this pool.
func (r *UserRepository) CandidatePool(ctx context.Context, excludedIDs []uint64, gender string) ([]db.Profile, error) {
	query := r.db.WithContext(ctx).
		Preload("Images", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") })
	if len(excludedIDs) > 0 {
		query = query.Where("user_id NOT IN ?", excludedIDs)
	}
	if gender != "" {
		query = query.Where("gender = ?", gender)
	}

	var profiles []db.Profile
	err := query.Find(&profiles).Error
	return profiles, err
}

// --- profile images ---

func (r *UserRepository) GetImageAtPosition(ctx context.Context, profileID uint64, position int) (*db.ProfileImage, error) {
	var img db.ProfileImage
	err := r.db.WithContext(ctx).
		Where("profile_id = ? AND position = ?", profileID, position).
		First(&img).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &img, nil
}

func (r *UserRepository) GetImageByID(ctx context.Context, imageID, profileID uint64) (*db.ProfileImage, error) {
	var img db.ProfileImage
	err := r.db.WithContext(ctx).
		Where("id = ? AND profile_id = ?", imageID, profileID).
		First(&img).Error
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// ReplaceImageAtPosition deletes any image occupying the slot and inserts
// the new one, atomically. The prior image is returned so the caller can
// release its external storage reference after commit.
func (r *UserRepository) ReplaceImageAtPosition(ctx context.Context, profileID uint64, position int, url, storageKey string) (*db.ProfileImage, *db.ProfileImage, error) {
	prior, err := r.GetImageAtPosition(ctx, profileID, position)
	if err != nil {
		return nil, nil, err
	}

	img := db.ProfileImage{
		ProfileID:  profileID,
		URL:        url,
		StorageKey: storageKey,
		Position:   position,
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if prior != nil {
			if err := tx.Delete(&db.ProfileImage{}, prior.ID).Error; err != nil {
				return err
			}
		}
		return tx.Create(&img).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &img, prior, nil
}

func (r *UserRepository) DeleteImage(ctx context.Context, imageID uint64) error {
	return r.db.WithContext(ctx).Delete(&db.ProfileImage{}, imageID).Error
}

// --- locations ---

// UpsertLocation creates the location row if absent, overwrites it if present.
func (r *UserRepository) UpsertLocation(ctx context.Context, userID uint64, lat, lon float64) error {
	var loc db.UserLocation
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&loc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(&db.UserLocation{
			UserID:    userID,
			Latitude:  lat,
			Longitude: lon,
		}).Error
	}
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&db.UserLocation{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{"latitude": lat, "longitude": lon}).Error
}

func (r *UserRepository) GetLocation(ctx context.Context, userID uint64) (*db.UserLocation, error) {
	var loc db.UserLocation
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&loc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &loc, nil
}

// LocationsFor loads locations for a set of accounts in one query, keyed by
// user id. Accounts without a location are simply absent from the map.
func (r *UserRepository) LocationsFor(ctx context.Context, userIDs []uint64) (map[uint64]db.UserLocation, error) {
	out := make(map[uint64]db.UserLocation, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var locs []db.UserLocation
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&locs).Error; err != nil {
		return nil, err
	}
	for _, l := range locs {
		out[l.UserID] = l
	}
	return out, nil
}

// --- password reset tokens ---

// ReplaceResetToken deletes any live token rows for the email and inserts
// the new one, keeping at most one active token per account.
func (r *UserRepository) ReplaceResetToken(ctx context.Context, email, token string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", email).Delete(&db.PasswordReset{}).Error; err != nil {
			return err
		}
		return tx.Create(&db.PasswordReset{Email: email, Token: token, ExpiresAt: expiresAt}).Error
	})
}

// GetLiveResetToken checks token match and non-expiry in one query.
func (r *UserRepository) GetLiveResetToken(ctx context.Context, token string, now time.Time) (*db.PasswordReset, error) {
	var reset db.PasswordReset
	err := r.db.WithContext(ctx).
		Where("token = ? AND expires_at > ?", token, now).
		First(&reset).Error
	if err != nil {
		return nil, err
	}
	return &reset, nil
}

func (r *UserRepository) DeleteResetToken(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&db.PasswordReset{}, id).Error
}
