package reactions

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/JonGarbayo/o-network-api/pkg/onetwork/auth"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/models"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/policy"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/resources"
)

// Handler handles reaction-related requests. Every reaction route lives
// under an organization prefix, so organization mismatches on lookups read
// as 404 throughout, like the nested comment path.
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new reactions handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// StoreReactionRequest represents the request to create a reaction
type StoreReactionRequest struct {
	TypeID uint `json:"typeId" binding:"required"`
}

// UpdateReactionRequest represents the request to change a reaction's type
type UpdateReactionRequest struct {
	TypeID uint `json:"typeId" binding:"required"`
}

// Index returns the reactions put on an organization's posts, for its own
// members.
// @Summary List an organization's reactions
// @Tags reactions
// @Produce json
// @Param id path int true "Organization ID"
// @Success 200 {object} resources.Collection[resources.ReactionResource]
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Organization not found"
// @Security BearerAuth
// @Router /organizations/{id}/reactions [get]
func (h *Handler) Index(c *gin.Context) {
	actor, _ := auth.GetActor(c)

	org, ok := h.findOrganization(c)
	if !ok {
		return
	}

	if err := policy.AuthorizeScoped(actor, policy.EntityReaction, policy.ActionViewAnyFromOrganization, org.ID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var reactions []models.Reaction
	err := h.db.Preload("Type").
		Joins("LEFT JOIN users ON reactions.author_id = users.id").
		Where("users.organization_id = ?", org.ID).
		Select("reactions.*").
		Find(&reactions).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reactions"})
		return
	}

	c.JSON(http.StatusOK, resources.NewReactionCollection(reactions))
}

// ListByPost returns the reactions of a post, in insertion order, for
// members of the post's organization.
// @Summary List a post's reactions
// @Tags reactions
// @Produce json
// @Param id path int true "Organization ID"
// @Param postId path int true "Post ID"
// @Success 200 {object} resources.Collection[resources.ReactionResource]
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Post not found"
// @Security BearerAuth
// @Router /organizations/{id}/posts/{postId}/reactions [get]
func (h *Handler) ListByPost(c *gin.Context) {
	actor, _ := auth.GetActor(c)

	org, ok := h.findOrganization(c)
	if !ok {
		return
	}
	post, ok := h.findPostInOrganization(c, org)
	if !ok {
		return
	}

	if err := policy.AuthorizeScoped(actor, policy.EntityReaction, policy.ActionViewAnyFromPost, post.Author.OrganizationID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var reactions []models.Reaction
	if err := h.db.Preload("Type").Where("post_id = ?", post.ID).Find(&reactions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reactions"})
		return
	}

	c.JSON(http.StatusOK, resources.NewReactionCollection(reactions))
}

// Store creates a reaction on a post. The author is the actor, who must
// belong to the organization of the route.
// @Summary Create a reaction
// @Tags reactions
// @Accept json
// @Produce json
// @Param id path int true "Organization ID"
// @Param postId path int true "Post ID"
// @Param request body StoreReactionRequest true "Reaction details"
// @Success 201 {object} resources.ReactionResource
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Post not found"
// @Failure 422 {object} map[string]string "Unknown reaction type"
// @Security BearerAuth
// @Router /organizations/{id}/posts/{postId}/reactions [post]
func (h *Handler) Store(c *gin.Context) {
	actor, _ := auth.GetActor(c)

	org, ok := h.findOrganization(c)
	if !ok {
		return
	}
	post, ok := h.findPostInOrganization(c, org)
	if !ok {
		return
	}

	if err := policy.Authorize(actor, policy.EntityReaction, policy.ActionCreate, policy.Target{}); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	if actor.OrganizationID != org.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "The authenticated user doesn't belong to this organization"})
		return
	}

	var req StoreReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var reactionType models.ReactionType
	if err := h.db.First(&reactionType, req.TypeID).Error; err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Unknown reaction type"})
		return
	}

	reaction := models.Reaction{
		TypeID:   reactionType.ID,
		AuthorID: actor.ID,
		PostID:   post.ID,
	}
	if err := h.db.Create(&reaction).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create reaction"})
		return
	}

	reaction.Type = reactionType
	c.JSON(http.StatusCreated, resources.NewReaction(reaction))
}

// Show returns a specific reaction within the organization
// @Summary Get a reaction
// @Tags reactions
// @Produce json
// @Param id path int true "Organization ID"
// @Param reactionId path int true "Reaction ID"
// @Success 200 {object} resources.ReactionResource
// @Failure 404 {object} map[string]string "Reaction not found"
// @Security BearerAuth
// @Router /organizations/{id}/reactions/{reactionId} [get]
func (h *Handler) Show(c *gin.Context) {
	actor, _ := auth.GetActor(c)

	org, ok := h.findOrganization(c)
	if !ok {
		return
	}
	reaction, ok := h.findReactionInOrganization(c, org, actor)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, resources.NewReaction(*reaction))
}

// Update changes a reaction's type (its author, or an organization admin)
// @Summary Update a reaction
// @Tags reactions
// @Accept json
// @Produce json
// @Param id path int true "Organization ID"
// @Param reactionId path int true "Reaction ID"
// @Param request body UpdateReactionRequest true "Updated reaction details"
// @Success 200 {object} resources.ReactionResource
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Reaction not found"
// @Security BearerAuth
// @Router /organizations/{id}/reactions/{reactionId} [patch]
func (h *Handler) Update(c *gin.Context) {
	actor, _ := auth.GetActor(c)

	org, ok := h.findOrganization(c)
	if !ok {
		return
	}
	reaction, ok := h.findReactionInOrganization(c, org, actor)
	if !ok {
		return
	}

	if err := policy.Authorize(actor, policy.EntityReaction, policy.ActionUpdate, reactionTarget(reaction)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var req UpdateReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var reactionType models.ReactionType
	if err := h.db.First(&reactionType, req.TypeID).Error; err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Unknown reaction type"})
		return
	}

	reaction.TypeID = reactionType.ID
	reaction.Type = reactionType
	if err := h.db.Save(reaction).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update reaction"})
		return
	}

	c.JSON(http.StatusOK, resources.NewReaction(*reaction))
}

// Destroy deletes a reaction (its author, or an organization admin)
// @Summary Delete a reaction
// @Tags reactions
// @Param id path int true "Organization ID"
// @Param reactionId path int true "Reaction ID"
// @Success 204 "No content"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Reaction not found"
// @Security BearerAuth
// @Router /organizations/{id}/reactions/{reactionId} [delete]
func (h *Handler) Destroy(c *gin.Context) {
	actor, _ := auth.GetActor(c)

	org, ok := h.findOrganization(c)
	if !ok {
		return
	}
	reaction, ok := h.findReactionInOrganization(c, org, actor)
	if !ok {
		return
	}

	if err := policy.Authorize(actor, policy.EntityReaction, policy.ActionDelete, reactionTarget(reaction)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	if err := h.db.Delete(reaction).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete reaction"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) findOrganization(c *gin.Context) (*models.Organization, bool) {
	orgID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return nil, false
	}

	var org models.Organization
	if err := h.db.First(&org, orgID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return nil, false
	}
	return &org, true
}

// findPostInOrganization resolves the post of the route and hides it (404)
// when its derived organization isn't the one of the route.
func (h *Handler) findPostInOrganization(c *gin.Context, org *models.Organization) (*models.Post, bool) {
	postID, err := strconv.ParseUint(c.Param("postId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return nil, false
	}

	var post models.Post
	if err := h.db.Preload("Author").First(&post, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return nil, false
	}

	if post.Author.OrganizationID != org.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return nil, false
	}
	return &post, true
}

// findReactionInOrganization resolves a reaction and hides it (404) when its
// derived organization isn't the route's, or when the actor is outside the
// organization. On these nested routes a cross-tenant lookup must be
// indistinguishable from a missing record.
func (h *Handler) findReactionInOrganization(c *gin.Context, org *models.Organization, actor *policy.Actor) (*models.Reaction, bool) {
	reactionID, err := strconv.ParseUint(c.Param("reactionId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Reaction not found"})
		return nil, false
	}

	var reaction models.Reaction
	if err := h.db.Preload("Type").Preload("Author").First(&reaction, reactionID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Reaction not found"})
		return nil, false
	}

	if reaction.Author.OrganizationID != org.ID || actor.OrganizationID != org.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Reaction not found"})
		return nil, false
	}
	return &reaction, true
}

func reactionTarget(reaction *models.Reaction) policy.Target {
	return policy.Target{OrganizationID: reaction.Author.OrganizationID, OwnerID: reaction.AuthorID}
}

// RegisterOrganizationRoutes registers all reaction routes under the
// organization prefix
func (h *Handler) RegisterOrganizationRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/reactions", h.Index)
	rg.GET("/:id/reactions/:reactionId", h.Show)
	rg.PATCH("/:id/reactions/:reactionId", h.Update)
	rg.DELETE("/:id/reactions/:reactionId", h.Destroy)
	rg.GET("/:id/posts/:postId/reactions", h.ListByPost)
	rg.POST("/:id/posts/:postId/reactions", h.Store)
}
