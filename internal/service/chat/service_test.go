package chat_test

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
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sparklabs/spark-backend/internal/app"
	"github.com/sparklabs/spark-backend/internal/cache"
	"github.com/sparklabs/spark-backend/internal/config"
	"github.com/sparklabs/spark-backend/internal/db"
	apperr "github.com/sparklabs/spark-backend/internal/errors"
	"github.com/sparklabs/spark-backend/internal/realtime"
	"github.com/sparklabs/spark-backend/internal/service/chat"
)

type recordingConn struct {
	events []map[string]any
}

func (c *recordingConn) WriteJSON(v interface{}) error {
	c.events = append(c.events, v.(map[string]any))
	return nil
}
func (c *recordingConn) Close() error { return nil }

func setupService(t *testing.T) (*chat.Service, *gorm.DB, *app.AppContext) {
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

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(cfg, dbase, cache.NewRedisCache(cfg), logger, realtime.NewHub(), nil)
	return chat.NewService(appCtx), dbase, appCtx
}

func createChatUser(t *testing.T, gdb *gorm.DB, name string) uint64 {
	t.Helper()
	user := db.User{Email: name + "@test.com", PasswordHash: "x"}
	require.NoError(t, gdb.Create(&user).Error)
	require.NoError(t, gdb.Create(&db.Profile{
		UserID:    user.ID,
		FullName:  name,
		Birthdate: time.Date(1995, 6, 15, 0, 0, 0, 0, time.UTC),
		Gender:    db.GenderFemale,
	}).Error)
	return user.ID
}

func TestSaveMessagePersistsAndDelivers(t *testing.T) {
	ctx := context.Background()
	svc, gdb, appCtx := setupService(t)

	alice := createChatUser(t, gdb, "alice")
	bob := createChatUser(t, gdb, "bob")

	conn := &recordingConn{}
	appCtx.Hub.Register(bob, conn)

	msg, err := svc.SaveMessage(ctx, alice, bob, "hello bob")
	require.NoError(t, err)
	assert.False(t, msg.IsRead)

	var stored db.Message
	require.NoError(t, gdb.First(&stored).Error)
	assert.Equal(t, "hello bob", stored.Content)
	assert.Equal(t, alice, stored.SenderID)

	require.Len(t, conn.events, 1)
	assert.Equal(t, "new_message", conn.events[0]["type"])
	assert.Equal(t, alice, conn.events[0]["sender_id"])
	assert.Equal(t, "alice", conn.events[0]["sender_name"])
}

func TestSaveMessageOfflineReceiver(t *testing.T) {
	ctx := context.Background()
	svc, gdb, _ := setupService(t)

	alice := createChatUser(t, gdb, "alice")
	bob := createChatUser(t, gdb, "bob")

	// no connection registered: the row must still land
	_, err := svc.SaveMessage(ctx, alice, bob, "voicemail")
	require.NoError(t, err)

	var count int64
	gdb.Model(&db.Message{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSaveMessageValidation(t *testing.T) {
	ctx := context.Background()
	svc, gdb, _ := setupService(t)

	alice := createChatUser(t, gdb, "alice")

	_, err := svc.SaveMessage(ctx, alice, alice, "talking to myself")
	require.Error(t, err)
	assert.Equal(t, 400, apperr.HTTPStatus(err))

	_, err = svc.SaveMessage(ctx, alice, 9999, "")
	require.Error(t, err)
	assert.Equal(t, 400, apperr.HTTPStatus(err))
}

func TestConversationRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, gdb, _ := setupService(t)

	alice := createChatUser(t, gdb, "alice")
	bob := createChatUser(t, gdb, "bob")

	_, err := svc.SaveMessage(ctx, alice, bob, "one")
	require.NoError(t, err)
	_, err = svc.SaveMessage(ctx, bob, alice, "two")
	require.NoError(t, err)

	msgs, err := svc.Conversation(ctx, alice, bob, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "two", msgs[1].Content)
}

func TestMarkReadSendsReceiptAndInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	svc, gdb, appCtx := setupService(t)

	alice := createChatUser(t, gdb, "alice")
	bob := createChatUser(t, gdb, "bob")

	_, err := svc.SaveMessage(ctx, alice, bob, "unread one")
	require.NoError(t, err)
	_, err = svc.SaveMessage(ctx, alice, bob, "unread two")
	require.NoError(t, err)

	// warm the cache, then mark read: the counter must not go stale
	count, err := svc.UnreadCount(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	senderConn := &recordingConn{}
	appCtx.Hub.Register(alice, senderConn)

	updated, err := svc.MarkRead(ctx, bob, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	require.Len(t, senderConn.events, 1)
	assert.Equal(t, "messages_read", senderConn.events[0]["type"])
	assert.Equal(t, bob, senderConn.events[0]["reader_id"])

	count, err = svc.UnreadCount(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestMarkReadNothingToFlip(t *testing.T) {
	ctx := context.Background()
	svc, gdb, appCtx := setupService(t)

	alice := createChatUser(t, gdb, "alice")
	bob := createChatUser(t, gdb, "bob")

	senderConn := &recordingConn{}
	appCtx.Hub.Register(alice, senderConn)

	updated, err := svc.MarkRead(ctx, bob, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated)
	assert.Empty(t, senderConn.events, "no receipt when nothing changed")
}

func TestUnreadCountCacheFirst(t *testing.T) {
	ctx := context.Background()
	svc, gdb, appCtx := setupService(t)

	alice := createChatUser(t, gdb, "alice")
	bob := createChatUser(t, gdb, "bob")

	_, err := svc.SaveMessage(ctx, alice, bob, "one")
	require.NoError(t, err)

	// miss populates the cache from the DB
	count, err := svc.UnreadCount(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// a new message bumps the warmed counter without touching the DB path
	_, err = svc.SaveMessage(ctx, alice, bob, "two")
	require.NoError(t, err)

	cached, ok, err := appCtx.RedisCache.GetUnreadCount(ctx, bob)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), cached)

	count, err = svc.UnreadCount(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
