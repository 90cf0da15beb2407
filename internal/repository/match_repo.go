package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/sparklabs/spark-backend/internal/db"
)

// MatchRepository stores the canonical, deduplicated pairwise match records.
type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// canonicalPair orders two account ids so reciprocal likes from either
// direction collapse onto one row.
func canonicalPair(a, b uint64) (uint64, uint64) {
	if a > b {
		return b, a
	}
	return a, b
}

// CreateIfAbsent inserts the match for the pair unless one already exists.
// The unique pair index backstops concurrent reciprocal swipes: a duplicate-
// key failure from the race is reported as created=false, not an error.
func (r *MatchRepository) CreateIfAbsent(ctx context.Context, a, b uint64) (*db.Match, bool, error) {
	u1, u2 := canonicalPair(a, b)

	var existing db.Match
	err := r.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	match := db.Match{User1ID: u1, User2ID: u2}
	if err := r.db.WithContext(ctx).Create(&match).Error; err != nil {
		if isUniqueViolation(err) {
			err2 := r.db.WithContext(ctx).
				Where("user1_id = ? AND user2_id = ?", u1, u2).
				First(&existing).Error
			if err2 != nil {
				return nil, false, err2
			}
			return &existing, false, nil
		}
		return nil, false, err
	}
	return &match, true, nil
}

// ListForUser returns every match the account participates in, unordered;
// the service layer sorts after joining profile and message previews.
func (r *MatchRepository) ListForUser(ctx context.Context, userID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Find(&matches).Error
	return matches, err
}

// DeleteBetween removes the match for the pair. Both orderings are checked
// since the component does not assume pre-canonicalized storage.
func (r *MatchRepository) DeleteBetween(ctx context.Context, a, b uint64) error {
	return r.db.WithContext(ctx).
		Where("(user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)", a, b, b, a).
		Delete(&db.Match{}).Error
}

func isUniqueViolation(err error) bool {
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "Duplicate entry") || strings.Contains(s, "UNIQUE constraint")
}
