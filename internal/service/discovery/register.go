package discovery

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sparklabs/spark-backend/internal/app"
	apperr "github.com/sparklabs/spark-backend/internal/errors"
	"github.com/sparklabs/spark-backend/internal/server"
)

// Registrar ties the discovery and matching endpoints into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

func (r *Registrar) Register(e *gin.Engine) {
	svc := NewService(r.appCtx)

	g := e.Group("/users", server.RequireAuth(r.appCtx))
	g.GET("/discovery", svc.handleFeed)
	g.GET("/matches", svc.handleMatches)
	g.GET("/:id/profile", svc.handleViewProfile)
	g.POST("/:id/block", svc.handleBlock)
	g.POST("/swipe", svc.handleSwipe)
	g.POST("/swipe/undo", svc.handleUndo)
}

func (s *Service) handleFeed(c *gin.Context) {
	userID, _ := server.CurrentUserID(c)
	results, err := s.Feed(c.Request.Context(), userID)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Detail(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

func (s *Service) handleViewProfile(c *gin.Context) {
	targetID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	userID, _ := server.CurrentUserID(c)
	view, err := s.View(c.Request.Context(), userID, targetID)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Detail(err)})
		return
	}
	c.JSON(http.StatusOK, view)
}

type swipeRequest struct {
	LikedID uint64 `json:"liked_id" binding:"required"`
	IsLike  *bool  `json:"is_like" binding:"required"`
}

func (s *Service) handleSwipe(c *gin.Context) {
	var req swipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := server.CurrentUserID(c)
	matched, err := s.Swipe(c.Request.Context(), userID, req.LikedID, *req.IsLike)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Detail(err)})
		return
	}

	if matched {
		s.appCtx.Logger.Info("new match formed", "user_id", userID, "other_id", req.LikedID)
	}
	c.JSON(http.StatusOK, gin.H{"is_match": matched})
}

func (s *Service) handleUndo(c *gin.Context) {
	userID, _ := server.CurrentUserID(c)
	undoneID, err := s.UndoLast(c.Request.Context(), userID)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Detail(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Swipe undone", "undone_user_id": undoneID})
}

func (s *Service) handleBlock(c *gin.Context) {
	blockedID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	userID, _ := server.CurrentUserID(c)
	if userID == blockedID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot block yourself"})
		return
	}

	if err := s.BlockUser(c.Request.Context(), userID, blockedID); err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Detail(err)})
		return
	}
	s.appCtx.Logger.Info("user blocked", "blocker_id", userID, "blocked_id", blockedID)
	c.JSON(http.StatusOK, gin.H{"message": "User blocked successfully"})
}

func (s *Service) handleMatches(c *gin.Context) {
	userID, _ := server.CurrentUserID(c)
	entries, err := s.Matches(c.Request.Context(), userID)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Detail(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": entries, "count": len(entries)})
}
