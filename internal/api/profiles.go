package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"societyhub/internal/database"
	"societyhub/internal/model"
)

const bcryptCost = 14

// ProfileHandler manages resident accounts.
type ProfileHandler struct {
	DB *database.DB
}

type createProfileRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	FullName        string `json:"full_name" binding:"required"`
	Phone           string `json:"phone"`
	Role            string `json:"role" binding:"required,oneof=admin secretary security member"`
	ApartmentNumber string `json:"apartment_number"`
	BuildingName    string `json:"building_name"`
}

// Create registers a new resident or staff account.
func (h *ProfileHandler) Create(c *gin.Context) {
	var req createProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	profile := &model.Profile{
		Email:           req.Email,
		PasswordHash:    string(hash),
		FullName:        req.FullName,
		Phone:           req.Phone,
		Role:            model.Role(req.Role),
		ApartmentNumber: req.ApartmentNumber,
		BuildingName:    req.BuildingName,
		IsActive:        true,
	}
	if err := h.DB.CreateProfile(c.Request.Context(), profile); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

// Me returns the caller's own profile.
func (h *ProfileHandler) Me(c *gin.Context) {
	profileID, _ := actor(c)
	profile, err := h.DB.GetProfile(c.Request.Context(), profileID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// List returns all accounts, optionally filtered by role.
func (h *ProfileHandler) List(c *gin.Context) {
	role := model.Role(c.Query("role"))
	profiles, err := h.DB.ListProfiles(c.Request.Context(), role)
	if err != nil {
		fail(c, err)
		return
	}
	if profiles == nil {
		profiles = []model.Profile{}
	}
	c.JSON(http.StatusOK, profiles)
}

type updateProfileRequest struct {
	FullName        string `json:"full_name" binding:"required"`
	Phone           string `json:"phone"`
	Role            string `json:"role" binding:"required,oneof=admin secretary security member"`
	ApartmentNumber string `json:"apartment_number"`
	BuildingName    string `json:"building_name"`
	IsActive        *bool  `json:"is_active" binding:"required"`
}

// Update rewrites the editable fields of an account.
func (h *ProfileHandler) Update(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	profile := &model.Profile{
		ID:              id,
		FullName:        req.FullName,
		Phone:           req.Phone,
		Role:            model.Role(req.Role),
		ApartmentNumber: req.ApartmentNumber,
		BuildingName:    req.BuildingName,
		IsActive:        *req.IsActive,
	}
	if err := h.DB.UpdateProfile(c.Request.Context(), profile); err != nil {
		fail(c, err)
		return
	}
	updated, err := h.DB.GetProfile(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func paramID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
