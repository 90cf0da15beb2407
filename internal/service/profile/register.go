package profile

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sparklabs/spark-backend/internal/app"
	apperr "github.com/sparklabs/spark-backend/internal/errors"
	"github.com/sparklabs/spark-backend/internal/repository"
	"github.com/sparklabs/spark-backend/internal/server"
)

// maxImageBytes caps a single profile image upload.
const maxImageBytes = 10 << 20

// Registrar ties the profile-management endpoints into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

func (r *Registrar) Register(e *gin.Engine) {
	svc := NewService(r.appCtx)

	g := e.Group("/users/me", server.RequireAuth(r.appCtx))
	g.GET("/profile", svc.handleGetProfile)
	g.PATCH("/profile", svc.handleUpdateProfile)
	g.PUT("/change-password", svc.handleChangePassword)
	g.POST("/images/upload", svc.handleUploadImage)
	g.DELETE("/images/:id", svc.handleDeleteImage)
	g.POST("/location", svc.handleUpdateLocation)
}

func (s *Service) handleGetProfile(c *gin.Context) {
	userID, _ := server.CurrentUserID(c)
	profile, err := s.GetProfile(c.Request.Context(), userID)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Detail(err)})
		return
	}
	c.JSON(http.StatusOK, newProfileView(profile))
}

type updateProfileRequest struct {
	FullName     *string   `json:"full_name"`
	Bio          *string   `json:"bio"`
	Birthdate    *string   `json:"birthdate"`
	Gender       *string   `json:"gender"`
	InterestIn   *string   `json:"interest_in"`
	AgeMin       *int      `json:"age_min"`
	AgeMax       *int      `json:"age_max"`
	InterestTags *[]string `json:"interest_tags"`
}

func (s *Service) handleUpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := repository.ProfilePatch{
		FullName:     req.FullName,
		Bio:          req.Bio,
		Gender:       req.Gender,
		InterestIn:   req.InterestIn,
		AgeMin:       req.AgeMin,
		AgeMax:       req.AgeMax,
		InterestTags: req.InterestTags,
	}
	if req.Birthdate != nil {
		birthdate, err := time.Parse(time.DateOnly, *req.Birthdate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "birthdate must be YYYY-MM-DD"})
			return
		}
		patch.Birthdate = &birthdate
	}

	userID, _ := server.CurrentUserID(c)
	profile, err := s.UpdateProfile(c.Request.Context(), userID, patch)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Detail(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "profile": newProfileView(profile)})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

func (s *Service) handleChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := server.CurrentUserID(c)
	if err := s.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Detail(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully!"})
}

func (s *Service) handleUploadImage(c *gin.Context) {
	position, err := strconv.Atoi(c.PostForm("position"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "position must be an integer"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxImageBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}

	userID, _ := server.CurrentUserID(c)
	img, err := s.UploadImage(c.Request.Context(), userID, position, data, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Detail(err)})
		return
	}
	c.JSON(http.StatusOK, imageView{ID: img.ID, URL: img.URL, Position: img.Position})
}

func (s *Service) handleDeleteImage(c *gin.Context) {
	imageID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image id"})
		return
	}

	userID, _ := server.CurrentUserID(c)
	if err := s.DeleteImage(c.Request.Context(), userID, imageID); err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Detail(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully removed"})
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

func (s *Service) handleUpdateLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := server.CurrentUserID(c)
	if err := s.UpdateLocation(c.Request.Context(), userID, *req.Latitude, *req.Longitude); err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Detail(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Location updated successfully"})
}
