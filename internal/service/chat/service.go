package chat

import (
	"context"
	"time"

	"github.com/sparklabs/spark-backend/internal/app"
	"github.com/sparklabs/spark-backend/internal/db"
	apperr "github.com/sparklabs/spark-backend/internal/errors"
	"github.com/sparklabs/spark-backend/internal/repository"
)

const defaultConversationLimit = 50

// Service persists conversations and pushes realtime events to connected
// participants. Delivery is best-effort; the database row is the source of
// truth.
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
	msgs   *repository.MessageRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
		msgs:   repository.NewMessageRepository(appCtx.DB),
	}
}

// MessageView is the JSON shape of one chat message.
type MessageView struct {
	ID         uint64    `json:"id"`
	SenderID   uint64    `json:"sender_id"`
	ReceiverID uint64    `json:"receiver_id"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	IsRead     bool      `json:"is_read"`
}

func newMessageView(m *db.Message) MessageView {
	return MessageView{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Timestamp:  m.Timestamp,
		IsRead:     m.IsRead,
	}
}

// SaveMessage persists the message, bumps the receiver's unread counter and
// attempts realtime delivery.
func (s *Service) SaveMessage(ctx context.Context, senderID, receiverID uint64, content string) (*db.Message, error) {
	if content == "" {
		return nil, apperr.Validation("message content must not be empty")
	}
	if senderID == receiverID {
		return nil, apperr.Validation("cannot message yourself")
	}

	msg, err := s.msgs.Create(ctx, senderID, receiverID, content)
	if err != nil {
		return nil, apperr.Map(err)
	}

	if err := s.appCtx.RedisCache.BumpUnreadCount(ctx, receiverID); err != nil {
		s.appCtx.Logger.Warn("unread counter bump failed", "receiver_id", receiverID, "err", err)
	}

	senderName := "User"
	if sender, err := s.users.GetByID(ctx, senderID); err == nil && sender.Profile != nil {
		senderName = sender.Profile.FullName
	}
	s.appCtx.Hub.SendIfConnected(receiverID, map[string]any{
		"type":        "new_message",
		"sender_id":   senderID,
		"sender_name": senderName,
		"content":     msg.Content,
		"timestamp":   msg.Timestamp,
	})
	return msg, nil
}

// Conversation returns messages between the two users, oldest first.
func (s *Service) Conversation(ctx context.Context, userID, otherID uint64, limit int) ([]MessageView, error) {
	if limit <= 0 {
		limit = defaultConversationLimit
	}
	msgs, err := s.msgs.Conversation(ctx, userID, otherID, limit)
	if err != nil {
		return nil, apperr.Map(err)
	}

	views := make([]MessageView, 0, len(msgs))
	for i := range msgs {
		views = append(views, newMessageView(&msgs[i]))
	}
	return views, nil
}

// MarkRead flips the unread flag on everything the sender wrote to the
// reader, drops the reader's cached unread counter and pushes a read receipt
// back to the sender.
func (s *Service) MarkRead(ctx context.Context, readerID, senderID uint64) (int64, error) {
	updated, err := s.msgs.MarkRead(ctx, readerID, senderID)
	if err != nil {
		return 0, apperr.Map(err)
	}

	if err := s.appCtx.RedisCache.InvalidateUnreadCount(ctx, readerID); err != nil {
		s.appCtx.Logger.Warn("unread counter invalidation failed", "reader_id", readerID, "err", err)
	}

	if updated > 0 {
		s.appCtx.Hub.SendIfConnected(senderID, map[string]any{
			"type":      "messages_read",
			"reader_id": readerID,
		})
	}
	return updated, nil
}

// UnreadCount serves the caller's total unread messages cache-first, falling
// back to the database and repopulating the cache on a miss.
func (s *Service) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	if count, ok, err := s.appCtx.RedisCache.GetUnreadCount(ctx, userID); err == nil && ok {
		return count, nil
	} else if err != nil {
		s.appCtx.Logger.Warn("unread counter cache read failed", "user_id", userID, "err", err)
	}

	count, err := s.msgs.UnreadCount(ctx, userID)
	if err != nil {
		return 0, apperr.Map(err)
	}
	if err := s.appCtx.RedisCache.SetUnreadCount(ctx, userID, count); err != nil {
		s.appCtx.Logger.Warn("unread counter cache write failed", "user_id", userID, "err", err)
	}
	return count, nil
}
