package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sparklabs/spark-backend/internal/db"
)

// SwipeRepository provides data access for the swipe ledger. Construct it on
// a transaction handle when composing with match/message cleanup.
type SwipeRepository struct {
	db *gorm.DB
}

func NewSwipeRepository(database *gorm.DB) *SwipeRepository {
	return &SwipeRepository{db: database}
}

// Create appends a decision unconditionally. An account may swipe the same
// target multiple times historically; no uniqueness is enforced.
func (r *SwipeRepository) Create(ctx context.Context, likerID, likedID uint64, isLike bool) (*db.Swipe, error) {
	swipe := db.Swipe{
		LikerID: likerID,
		LikedID: likedID,
		IsLike:  isLike,
	}
	if err := r.db.WithContext(ctx).Create(&swipe).Error; err != nil {
		return nil, err
	}
	return &swipe, nil
}

// HasLiked reports whether liker has an active like on liked. Used for the
// reciprocal-like check when recording a swipe.
func (r *SwipeRepository) HasLiked(ctx context.Context, likerID, likedID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("liker_id = ? AND liked_id = ? AND is_like = ?", likerID, likedID, true).
		Count(&count).Error
	return count > 0, err
}

// LatestByLiker returns the most recent decision made by the account.
// Ties on created_at are broken by the auto-increment id, so two swipes in
// the same instant still undo in reverse insertion order.
func (r *SwipeRepository) LatestByLiker(ctx context.Context, likerID uint64) (*db.Swipe, error) {
	var swipe db.Swipe
	err := r.db.WithContext(ctx).
		Where("liker_id = ?", likerID).
		Order("created_at DESC, id DESC").
		First(&swipe).Error
	if err != nil {
		return nil, err
	}
	return &swipe, nil
}

// Delete removes a single ledger entry, used by undo.
func (r *SwipeRepository) Delete(ctx context.Context, swipeID uint64) error {
	return r.db.WithContext(ctx).Delete(&db.Swipe{}, swipeID).Error
}

// DeleteBetween removes every decision in either direction between the pair.
func (r *SwipeRepository) DeleteBetween(ctx context.Context, a, b uint64) error {
	return r.db.WithContext(ctx).
		Where("(liker_id = ? AND liked_id = ?) OR (liker_id = ? AND liked_id = ?)", a, b, b, a).
		Delete(&db.Swipe{}).Error
}

// ExcludedIDs returns the targets the viewer must not see again: every like
// regardless of age, and every pass newer than the cutoff. A pass older than
// the cutoff is eligible to resurface.
func (r *SwipeRepository) ExcludedIDs(ctx context.Context, viewerID uint64, passCutoff time.Time) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("liker_id = ?", viewerID).
		Where("is_like = ? OR created_at > ?", true, passCutoff).
		Distinct().
		Pluck("liked_id", &ids).Error
	return ids, err
}
