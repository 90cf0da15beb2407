package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sparklabs/spark-backend/internal/db"
)

// BlockRepository records blocking relationships and runs the compensating
// cleanup of everything between the pair.
type BlockRepository struct {
	db *gorm.DB
}

func NewBlockRepository(database *gorm.DB) *BlockRepository {
	return &BlockRepository{db: database}
}

// Block deletes all messages, the match and all swipes between the pair and
// inserts the block row, as one atomic unit. Partial cleanup on crash would
// leave a match with no reciprocal like behind it, so the transaction is a
// correctness requirement.
func (r *BlockRepository) Block(ctx context.Context, blockerID, blockedID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := NewMessageRepository(tx).DeleteBetween(ctx, blockerID, blockedID); err != nil {
			return err
		}
		if err := NewMatchRepository(tx).DeleteBetween(ctx, blockerID, blockedID); err != nil {
			return err
		}
		if err := NewSwipeRepository(tx).DeleteBetween(ctx, blockerID, blockedID); err != nil {
			return err
		}
		return tx.Create(&db.Block{BlockerID: blockerID, BlockedID: blockedID}).Error
	})
}

// BlockedIDs returns accounts the viewer has blocked.
func (r *BlockRepository) BlockedIDs(ctx context.Context, blockerID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Block{}).
		Where("blocker_id = ?", blockerID).
		Distinct().
		Pluck("blocked_id", &ids).Error
	return ids, err
}

// BlockerIDs returns accounts that have blocked the viewer.
func (r *BlockRepository) BlockerIDs(ctx context.Context, blockedID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Block{}).
		Where("blocked_id = ?", blockedID).
		Distinct().
		Pluck("blocker_id", &ids).Error
	return ids, err
}
