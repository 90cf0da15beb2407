package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sparklabs/spark-backend/internal/db"
)

// MessageRepository persists raw chat messages.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

func (r *MessageRepository) Create(ctx context.Context, senderID, receiverID uint64, content string) (*db.Message, error) {
	msg := db.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	}
	if err := r.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// Conversation returns the history between two accounts, timestamp ascending.
func (r *MessageRepository) Conversation(ctx context.Context, a, b uint64, limit int) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("timestamp ASC, id ASC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

// LatestBetween returns the most recent message between the pair, or nil
// when the conversation is empty.
func (r *MessageRepository) LatestBetween(ctx context.Context, a, b uint64) (*db.Message, error) {
	var msg db.Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("timestamp DESC, id DESC").
		First(&msg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// MarkRead flips every unread message from sender to receiver.
func (r *MessageRepository) MarkRead(ctx context.Context, receiverID, senderID uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", receiverID, senderID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// UnreadCount counts unread messages addressed to the account.
func (r *MessageRepository) UnreadCount(ctx context.Context, receiverID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("receiver_id = ? AND is_read = ?", receiverID, false).
		Count(&count).Error
	return count, err
}

// DeleteBetween wipes the conversation in both directions. Used by block
// cleanup and like-undo.
func (r *MessageRepository) DeleteBetween(ctx context.Context, a, b uint64) error {
	return r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Delete(&db.Message{}).Error
}
