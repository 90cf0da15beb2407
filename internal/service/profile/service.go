package profile

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sparklabs/spark-backend/internal/app"
	"github.com/sparklabs/spark-backend/internal/db"
	apperr "github.com/sparklabs/spark-backend/internal/errors"
	"github.com/sparklabs/spark-backend/internal/repository"
)

// Service manages the caller's own profile: attributes, images, location
// and password changes.
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
	}
}

func (s *Service) GetProfile(ctx context.Context, userID uint64) (*db.Profile, error) {
	profile, err := s.users.GetProfileByUserID(ctx, userID)
	if err != nil {
		return nil, apperr.Map(err)
	}
	return profile, nil
}

// UpdateProfile applies the fields present in the patch and returns the
// merged profile.
func (s *Service) UpdateProfile(ctx context.Context, userID uint64, patch repository.ProfilePatch) (*db.Profile, error) {
	if patch.AgeMin != nil && *patch.AgeMin < 18 {
		return nil, apperr.Validation("age_min must be at least 18")
	}
	if patch.AgeMax != nil && *patch.AgeMax > 100 {
		return nil, apperr.Validation("age_max must be at most 100")
	}
	profile, err := s.users.UpdateProfile(ctx, userID, patch)
	if err != nil {
		return nil, apperr.Map(err)
	}
	return profile, nil
}

// ChangePassword requires the correct old password.
func (s *Service) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperr.Map(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return apperr.Validation("incorrect password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Map(err)
	}
	return apperr.Map(s.users.UpdatePassword(ctx, userID, string(hash)))
}

// UploadImage stores the bytes externally, then atomically replaces any
// image occupying the position slot. The replaced image's external object
// is released after the database swap commits.
func (s *Service) UploadImage(ctx context.Context, userID uint64, position int, data []byte, contentType string) (*db.ProfileImage, error) {
	if position < 0 {
		return nil, apperr.Validation("position must not be negative")
	}
	profile, err := s.users.GetProfileByUserID(ctx, userID)
	if err != nil {
		return nil, apperr.Map(err)
	}

	url, key, err := s.appCtx.Images.Store(ctx, data, contentType)
	if err != nil {
		return nil, apperr.Dependency("image store upload failed")
	}

	img, prior, err := s.users.ReplaceImageAtPosition(ctx, profile.ID, position, url, key)
	if err != nil {
		// The uploaded object is orphaned otherwise.
		_ = s.appCtx.Images.Delete(ctx, key)
		return nil, apperr.Map(err)
	}

	if prior != nil {
		if derr := s.appCtx.Images.Delete(ctx, prior.StorageKey); derr != nil {
			s.appCtx.Logger.Warn("failed to release replaced image object",
				"key", prior.StorageKey, "err", derr)
		}
	}
	return img, nil
}

// DeleteImage removes an owned image and releases its external object.
func (s *Service) DeleteImage(ctx context.Context, userID, imageID uint64) error {
	profile, err := s.users.GetProfileByUserID(ctx, userID)
	if err != nil {
		return apperr.Map(err)
	}

	img, err := s.users.GetImageByID(ctx, imageID, profile.ID)
	if err != nil {
		return apperr.NotFound("image not found")
	}
	if err := s.users.DeleteImage(ctx, img.ID); err != nil {
		return apperr.Map(err)
	}

	if derr := s.appCtx.Images.Delete(ctx, img.StorageKey); derr != nil {
		s.appCtx.Logger.Warn("failed to release deleted image object",
			"key", img.StorageKey, "err", derr)
	}
	return nil
}

// UpdateLocation upserts the caller's coordinates.
func (s *Service) UpdateLocation(ctx context.Context, userID uint64, lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return apperr.Validation("coordinates out of range")
	}
	return apperr.Map(s.users.UpsertLocation(ctx, userID, lat, lon))
}

// profileView is the JSON shape for the caller's own profile.
type profileView struct {
	ID           uint64      `json:"id"`
	UserID       uint64      `json:"user_id"`
	FullName     string      `json:"full_name"`
	Bio          string      `json:"bio"`
	Birthdate    string      `json:"birthdate"`
	Gender       string      `json:"gender"`
	InterestIn   string      `json:"interest_in"`
	AgeMin       int         `json:"age_min"`
	AgeMax       int         `json:"age_max"`
	InterestTags []string    `json:"interest_tags"`
	Images       []imageView `json:"images"`
}

type imageView struct {
	ID       uint64 `json:"id"`
	URL      string `json:"url"`
	Position int    `json:"position"`
}

func newProfileView(p *db.Profile) profileView {
	view := profileView{
		ID:           p.ID,
		UserID:       p.UserID,
		FullName:     p.FullName,
		Bio:          p.Bio,
		Gender:       p.Gender,
		InterestIn:   p.InterestIn,
		AgeMin:       p.AgeMin,
		AgeMax:       p.AgeMax,
		InterestTags: p.InterestTags,
		Images:       make([]imageView, 0, len(p.Images)),
	}
	if !p.Birthdate.IsZero() {
		view.Birthdate = p.Birthdate.Format(time.DateOnly)
	}
	if view.InterestTags == nil {
		view.InterestTags = []string{}
	}
	for _, img := range p.Images {
		view.Images = append(view.Images, imageView{ID: img.ID, URL: img.URL, Position: img.Position})
	}
	return view
}
