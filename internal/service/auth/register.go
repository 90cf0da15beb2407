package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sparklabs/spark-backend/internal/app"
	apperr "github.com/sparklabs/spark-backend/internal/errors"
	"github.com/sparklabs/spark-backend/internal/server"
)

// Registrar ties the auth endpoints into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

func (r *Registrar) Register(e *gin.Engine) {
	svc := NewService(r.appCtx)

	g := e.Group("/auth")
	g.POST("/register", svc.handleRegister)
	g.POST("/login", svc.handleLogin)
	g.POST("/forgot-password", svc.handleForgotPassword)
	g.POST("/reset-password", svc.handleResetPassword)

	authed := g.Group("", server.RequireAuth(r.appCtx))
	authed.GET("/me", svc.handleMe)
}

type registerRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FullName  string `json:"full_name" binding:"required"`
	Birthdate string `json:"birthdate" binding:"required"`
	Gender    string `json:"gender" binding:"required"`
}

func (s *Service) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	birthdate, err := time.Parse("2006-01-02", req.Birthdate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "birthdate must be YYYY-MM-DD"})
		return
	}

	s.appCtx.Logger.Info("registration attempt", "email", req.Email)
	user, err := s.RegisterUser(c.Request.Context(), RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FullName:  req.FullName,
		Birthdate: birthdate,
		Gender:    req.Gender,
	})
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Detail(err)})
		return
	}

	s.appCtx.Logger.Info("successful registration", "user_id", user.ID)
	c.JSON(http.StatusCreated, gin.H{"message": "Successful register!", "user_id": user.ID})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (s *Service) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.LoginUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.appCtx.Logger.Warn("failed login attempt", "email", req.Email)
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Detail(err)})
		return
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Detail(err)})
		return
	}

	s.appCtx.Logger.Info("user logged in", "user_id", user.ID)
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

func (s *Service) handleMe(c *gin.Context) {
	userID, _ := server.CurrentUserID(c)
	user, err := s.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Detail(err)})
		return
	}

	fullName := "User"
	if user.Profile != nil {
		fullName = user.Profile.FullName
	}
	c.JSON(http.StatusOK, gin.H{
		"id":        user.ID,
		"email":     user.Email,
		"full_name": fullName,
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (s *Service) handleForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Detail(err)})
		return
	}
	// Identical response whether or not the email exists.
	c.JSON(http.StatusOK, gin.H{"message": "If the email exists, a recovery code has been generated."})
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required,len=10"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

func (s *Service) handleResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Detail(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password successfully reset!"})
}
