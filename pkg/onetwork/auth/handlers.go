package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/JonGarbayo/o-network-api/pkg/onetwork/models"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/resources"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/storage"
)

// Handler handles session requests
type Handler struct {
	db      *gorm.DB
	storage *storage.Storage
}

// NewHandler creates a new session handler
func NewHandler(db *gorm.DB, st *storage.Storage) *Handler {
	return &Handler{db: db, storage: st}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SessionResponse represents the session creation response
type SessionResponse struct {
	Token string                 `json:"token"`
	User  resources.UserResource `json:"user"`
}

// Login handles session creation
// @Summary Open a session
// @Description Authenticate with email and password to receive a JWT token
// @Tags session
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 201 {object} SessionResponse
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Failure 403 {object} map[string]string "Account disabled"
// @Router /users/session [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Preload("Organization").Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if !CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if user.Disabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "This account is disabled"})
		return
	}

	token, err := GenerateToken(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, SessionResponse{
		Token: token,
		User:  resources.NewUser(user, h.storage),
	})
}

// Logout handles session termination (client-side token invalidation)
// @Summary Close the session
// @Description Logout the current user (client-side token invalidation)
// @Tags session
// @Success 204 "No content"
// @Router /users/session [delete]
func (h *Handler) Logout(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers session routes on the users router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/session", h.Login)
	rg.DELETE("/session", h.Logout)
}
