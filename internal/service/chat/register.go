package chat

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/sparklabs/spark-backend/internal/app"
	apperr "github.com/sparklabs/spark-backend/internal/errors"
	"github.com/sparklabs/spark-backend/internal/server"
)

// Registrar ties the chat endpoints into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from the app origin; CORS is handled at the
	// HTTP layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (r *Registrar) Register(e *gin.Engine) {
	svc := NewService(r.appCtx)

	g := e.Group("/chat")
	g.GET("/ws/:user_id", svc.handleWebSocket)

	authed := g.Group("", server.RequireAuth(r.appCtx))
	authed.GET("/conversation/:other_id", svc.handleConversation)
	authed.POST("/mark-read/:sender_id", svc.handleMarkRead)
	authed.GET("/unread", svc.handleUnread)
}

// inboundMessage is the frame clients send over the socket.
type inboundMessage struct {
	ReceiverID uint64 `json:"receiver_id"`
	Content    string `json:"content"`
}

func (s *Service) handleWebSocket(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.appCtx.Logger.Warn("websocket upgrade failed", "user_id", userID, "err", err)
		return
	}

	s.appCtx.Hub.Register(userID, conn)
	s.appCtx.Logger.Info("websocket connected", "user_id", userID)
	defer func() {
		s.appCtx.Hub.Unregister(userID, conn)
		conn.Close()
		s.appCtx.Logger.Info("websocket disconnected", "user_id", userID)
	}()

	for {
		var in inboundMessage
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		if _, err := s.SaveMessage(c.Request.Context(), userID, in.ReceiverID, in.Content); err != nil {
			_ = conn.WriteJSON(map[string]any{"type": "error", "detail": apperr.Detail(err)})
		}
	}
}

func (s *Service) handleConversation(c *gin.Context) {
	otherID, err := strconv.ParseUint(c.Param("other_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	userID, _ := server.CurrentUserID(c)
	msgs, err := s.Conversation(c.Request.Context(), userID, otherID, limit)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Detail(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs, "count": len(msgs)})
}

func (s *Service) handleMarkRead(c *gin.Context) {
	senderID, err := strconv.ParseUint(c.Param("sender_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	userID, _ := server.CurrentUserID(c)
	updated, err := s.MarkRead(c.Request.Context(), userID, senderID)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Detail(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Messages marked as read", "updated": updated})
}

func (s *Service) handleUnread(c *gin.Context) {
	userID, _ := server.CurrentUserID(c)
	count, err := s.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Detail(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}
