package invitations

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/JonGarbayo/o-network-api/pkg/onetwork/auth"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/models"
)

// Handler handles invitation-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new invitations handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// StoreInvitationRequest represents the request to invite someone into the
// actor's organization
type StoreInvitationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// InvitationResponse is the created invitation, token included, so the
// caller can forward it to the invitee.
type InvitationResponse struct {
	ID             uint   `json:"id"`
	Email          string `json:"email"`
	Token          string `json:"token"`
	OrganizationID uint   `json:"organizationId"`
}

// Store creates an invitation for the actor's organization. The invited
// email must not already belong to a member, of any organization.
// @Summary Invite someone into the actor's organization
// @Tags invitations
// @Accept json
// @Produce json
// @Param request body StoreInvitationRequest true "Invitee email"
// @Success 201 {object} InvitationResponse
// @Failure 409 {object} map[string]string "Email already taken"
// @Failure 422 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /invitations [post]
func (h *Handler) Store(c *gin.Context) {
	actor, _ := auth.GetActor(c)

	var req StoreInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var existing models.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		message := fmt.Sprintf("'%s' is already a member of another organization.", req.Email)
		if existing.OrganizationID == actor.OrganizationID {
			message = fmt.Sprintf("'%s' is already a member of your organization.", req.Email)
		}
		c.JSON(http.StatusConflict, gin.H{"error": message})
		return
	}

	invitation := models.Invitation{
		Email:          req.Email,
		Token:          uuid.NewString(),
		OrganizationID: actor.OrganizationID,
	}
	if err := h.db.Create(&invitation).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invitation"})
		return
	}

	c.JSON(http.StatusCreated, InvitationResponse{
		ID:             invitation.ID,
		Email:          invitation.Email,
		Token:          invitation.Token,
		OrganizationID: invitation.OrganizationID,
	})
}

// RegisterRoutes registers invitation routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Store)
}
