package comments

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

// Handler handles comment-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new comments handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// StoreCommentRequest represents the request to create a comment
type StoreCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// UpdateCommentRequest represents the request to update a comment
type UpdateCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// Index would return every comment of the platform; the policy denies
// viewAny for every role. The route exists so GET /comments answers cleanly.
// @Summary List comments
// @Tags comments
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /comments [get]
func (h *Handler) Index(c *gin.Context) {
	actor, _ := auth.GetActor(c)
	if err := policy.Authorize(actor, policy.EntityComment, policy.ActionViewAny, policy.Target{}); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}
	c.Status(http.StatusOK)
}

// Store creates a comment on a post. The author is the actor, who must
// belong to the post's (derived) organization.
// @Summary Create a comment
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body StoreCommentRequest true "Comment details"
// @Success 201 {object} resources.CommentResource
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Post not found"
// @Security BearerAuth
// @Router /posts/{id}/comments [post]
func (h *Handler) Store(c *gin.Context) {
	actor, _ := auth.GetActor(c)

	post, ok := h.findPost(c)
	if !ok {
		return
	}

	if err := policy.Authorize(actor, policy.EntityComment, policy.ActionCreate, policy.Target{}); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	if actor.OrganizationID != post.Author.OrganizationID {
		c.JSON(http.StatusForbidden, gin.H{"error": "The authenticated user doesn't belong to this organization"})
		return
	}

	var req StoreCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	comment := models.Comment{
		Text:     req.Text,
		AuthorID: actor.ID,
		PostID:   post.ID,
	}
	if err := h.db.Create(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	c.JSON(http.StatusCreated, resources.NewComment(comment))
}

// Show returns a specific comment. On this bare route a cross-organization
// lookup is an authorization deny (403); the organization-nested route in
// ShowScoped deliberately answers the same mismatch with a 404 instead, and
// both behaviors are kept.
// @Summary Get a comment
// @Tags comments
// @Produce json
// @Param id path int true "Comment ID"
// @Success 200 {object} resources.CommentResource
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Comment not found"
// @Security BearerAuth
// @Router /comments/{id} [get]
func (h *Handler) Show(c *gin.Context) {
	actor, _ := auth.GetActor(c)

	comment, ok := h.findComment(c, "id")
	if !ok {
		return
	}

	if err := policy.Authorize(actor, policy.EntityComment, policy.ActionView, commentTarget(comment)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	c.JSON(http.StatusOK, resources.NewComment(*comment))
}

// ShowScoped returns a comment through the organization-nested route. Here
// an organization mismatch of any kind reads as a missing record: a caller
// outside the organization can't learn that the comment exists at all.
// @Summary Get a comment within an organization
// @Tags comments
// @Produce json
// @Param id path int true "Organization ID"
// @Param postId path int true "Post ID"
// @Param commentId path int true "Comment ID"
// @Success 200 {object} resources.CommentResource
// @Failure 404 {object} map[string]string "Comment not found"
// @Security BearerAuth
// @Router /organizations/{id}/posts/{postId}/comments/{commentId} [get]
func (h *Handler) ShowScoped(c *gin.Context) {
	actor, _ := auth.GetActor(c)
	orgID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}
	postID, err := strconv.ParseUint(c.Param("postId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}

	var org models.Organization
	if err := h.db.First(&org, orgID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}

	comment, ok := h.findComment(c, "commentId")
	if !ok {
		return
	}

	if comment.PostID != uint(postID) ||
		comment.Author.OrganizationID != org.ID ||
		actor.OrganizationID != org.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}

	c.JSON(http.StatusOK, resources.NewComment(*comment))
}

// ListByPost returns the comments of a post, in insertion order, for members
// of the post's organization.
// @Summary List a post's comments
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} resources.Collection[resources.CommentResource]
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Post not found"
// @Security BearerAuth
// @Router /posts/{id}/comments [get]
func (h *Handler) ListByPost(c *gin.Context) {
	actor, _ := auth.GetActor(c)

	post, ok := h.findPost(c)
	if !ok {
		return
	}

	if err := policy.AuthorizeScoped(actor, policy.EntityComment, policy.ActionViewAnyFromPost, post.Author.OrganizationID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var comments []models.Comment
	if err := h.db.Where("post_id = ?", post.ID).Find(&comments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}

	c.JSON(http.StatusOK, resources.NewCommentCollection(comments))
}

// Update edits a comment (its author, or an organization admin)
// @Summary Update a comment
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Comment ID"
// @Param request body UpdateCommentRequest true "Updated comment details"
// @Success 200 {object} resources.CommentResource
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Comment not found"
// @Security BearerAuth
// @Router /comments/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	actor, _ := auth.GetActor(c)

	comment, ok := h.findComment(c, "id")
	if !ok {
		return
	}

	if err := policy.Authorize(actor, policy.EntityComment, policy.ActionUpdate, commentTarget(comment)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var req UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	comment.Text = req.Text
	if err := h.db.Save(comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update comment"})
		return
	}

	c.JSON(http.StatusOK, resources.NewComment(*comment))
}

// Destroy deletes a comment (its author, or an organization admin)
// @Summary Delete a comment
// @Tags comments
// @Param id path int true "Comment ID"
// @Success 204 "No content"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Comment not found"
// @Security BearerAuth
// @Router /comments/{id} [delete]
func (h *Handler) Destroy(c *gin.Context) {
	actor, _ := auth.GetActor(c)

	comment, ok := h.findComment(c, "id")
	if !ok {
		return
	}

	if err := policy.Authorize(actor, policy.EntityComment, policy.ActionDelete, commentTarget(comment)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	if err := h.db.Delete(comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete comment"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) findPost(c *gin.Context) (*models.Post, bool) {
	postID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return nil, false
	}

	var post models.Post
	if err := h.db.Preload("Author").First(&post, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return nil, false
	}
	return &post, true
}

func (h *Handler) findComment(c *gin.Context, param string) (*models.Comment, bool) {
	commentID, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return nil, false
	}

	var comment models.Comment
	if err := h.db.Preload("Author").First(&comment, commentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return nil, false
	}
	return &comment, true
}

// commentTarget builds the policy target from a comment's author (its
// derived organization).
func commentTarget(comment *models.Comment) policy.Target {
	return policy.Target{OrganizationID: comment.Author.OrganizationID, OwnerID: comment.AuthorID}
}

// RegisterRoutes registers the bare comment routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Index)
	rg.GET("/:id", h.Show)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Destroy)
}

// RegisterPostRoutes registers the post-scoped comment routes
func (h *Handler) RegisterPostRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/comments", h.ListByPost)
	rg.POST("/:id/comments", h.Store)
}

// RegisterOrganizationRoutes registers the organization-nested comment
// lookup, the code path where a cross-organization mismatch reads as 404
func (h *Handler) RegisterOrganizationRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/posts/:postId/comments/:commentId", h.ShowScoped)
}
