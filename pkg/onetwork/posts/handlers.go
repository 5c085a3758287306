package posts

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/JonGarbayo/o-network-api/pkg/onetwork/auth"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/models"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/policy"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/resources"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/storage"
)

// Handler handles post-related requests
type Handler struct {
	db      *gorm.DB
	storage *storage.Storage
}

// NewHandler creates a new posts handler
func NewHandler(db *gorm.DB, st *storage.Storage) *Handler {
	return &Handler{db: db, storage: st}
}

// StorePostRequest represents the request to create a post
type StorePostRequest struct {
	Content string `json:"content" binding:"required"`
}

// UpdatePostRequest represents the request to update a post
type UpdatePostRequest struct {
	Content string `json:"content" binding:"required"`
}

// Index would return every post of the platform; the policy denies viewAny
// for every role. The route exists so GET /posts answers cleanly.
// @Summary List posts
// @Tags posts
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /posts [get]
func (h *Handler) Index(c *gin.Context) {
	actor, _ := auth.GetActor(c)
	if err := policy.Authorize(actor, policy.EntityPost, policy.ActionViewAny, policy.Target{}); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}
	c.Status(http.StatusOK)
}

// Store creates a post in an organization's feed. The author is the actor;
// posting into another organization's feed is refused.
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Param id path int true "Organization ID"
// @Param request body StorePostRequest true "Post details"
// @Success 201 {object} resources.PostResource
// @Failure 403 {object} map[string]string "Not a member of this organization"
// @Failure 404 {object} map[string]string "Organization not found"
// @Security BearerAuth
// @Router /organizations/{id}/posts [post]
func (h *Handler) Store(c *gin.Context) {
	actor, _ := auth.GetActor(c)
	orgID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	var org models.Organization
	if err := h.db.First(&org, orgID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	if err := policy.Authorize(actor, policy.EntityPost, policy.ActionCreate, policy.Target{}); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	if actor.OrganizationID != org.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "The authenticated user doesn't belong to this organization"})
		return
	}

	var req StorePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	post := models.Post{
		Content:  req.Content,
		AuthorID: actor.ID,
	}
	if err := h.db.Create(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	if err := h.db.Preload("Author.Organization").First(&post, post.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load post"})
		return
	}

	c.JSON(http.StatusCreated, resources.NewPost(post, h.storage))
}

// Show returns a specific post. Cross-organization access on this bare
// route is an authorization deny, not a 404.
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} resources.PostResource
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Post not found"
// @Security BearerAuth
// @Router /posts/{id} [get]
func (h *Handler) Show(c *gin.Context) {
	actor, _ := auth.GetActor(c)

	post, ok := h.findPost(c)
	if !ok {
		return
	}

	if err := policy.Authorize(actor, policy.EntityPost, policy.ActionView, postTarget(post)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	c.JSON(http.StatusOK, resources.NewPost(*post, h.storage))
}

// Update edits a post (its author, or an organization admin)
// @Summary Update a post
// @Tags posts
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body UpdatePostRequest true "Updated post details"
// @Success 200 {object} resources.PostResource
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Post not found"
// @Security BearerAuth
// @Router /posts/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	actor, _ := auth.GetActor(c)

	post, ok := h.findPost(c)
	if !ok {
		return
	}

	if err := policy.Authorize(actor, policy.EntityPost, policy.ActionUpdate, postTarget(post)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	post.Content = req.Content
	if err := h.db.Save(post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update post"})
		return
	}

	c.JSON(http.StatusOK, resources.NewPost(*post, h.storage))
}

// Destroy deletes a post along with its comments and reactions (its author,
// or an organization admin)
// @Summary Delete a post
// @Tags posts
// @Param id path int true "Post ID"
// @Success 204 "No content"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Post not found"
// @Security BearerAuth
// @Router /posts/{id} [delete]
func (h *Handler) Destroy(c *gin.Context) {
	actor, _ := auth.GetActor(c)

	post, ok := h.findPost(c)
	if !ok {
		return
	}

	if err := policy.Authorize(actor, policy.EntityPost, policy.ActionDelete, postTarget(post)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(post).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}

	c.Status(http.StatusNoContent)
}

// ListByOrganization returns an organization's feed: every post authored by
// one of its members, newest first, ten per page.
// @Summary List an organization's posts
// @Tags posts
// @Produce json
// @Param id path int true "Organization ID"
// @Param page query int false "Page number (default 1)"
// @Success 200 {object} resources.Collection[resources.PostResource]
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Organization not found"
// @Security BearerAuth
// @Router /organizations/{id}/posts [get]
func (h *Handler) ListByOrganization(c *gin.Context) {
	actor, _ := auth.GetActor(c)
	orgID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	var org models.Organization
	if err := h.db.First(&org, orgID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	if err := policy.AuthorizeScoped(actor, policy.EntityPost, policy.ActionViewAnyFromOrganization, org.ID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	page := pageParam(c)
	posts, total, err := models.OrganizationPosts(h.db, org.ID, page, resources.PerPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	c.JSON(http.StatusOK, resources.NewPostCollection(posts, h.storage, page, total))
}

// ListByUser returns a user's own posts, newest first, ten per page. Scoped
// like the rest: only members of the user's organization may read it.
// @Summary List a user's posts
// @Tags posts
// @Produce json
// @Param id path int true "User ID"
// @Param page query int false "Page number (default 1)"
// @Success 200 {object} resources.Collection[resources.PostResource]
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /users/{id}/posts [get]
func (h *Handler) ListByUser(c *gin.Context) {
	actor, _ := auth.GetActor(c)
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err := policy.AuthorizeScoped(actor, policy.EntityPost, policy.ActionViewAnyFromOrganization, user.OrganizationID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	page := pageParam(c)
	posts, total, err := models.UserPosts(h.db, user.ID, page, resources.PerPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	c.JSON(http.StatusOK, resources.NewPostCollection(posts, h.storage, page, total))
}

func (h *Handler) findPost(c *gin.Context) (*models.Post, bool) {
	postID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return nil, false
	}

	var post models.Post
	if err := h.db.Preload("Author.Organization").First(&post, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return nil, false
	}
	return &post, true
}

// postTarget builds the policy target from a post's author (its derived
// organization).
func postTarget(post *models.Post) policy.Target {
	return policy.Target{OrganizationID: post.Author.OrganizationID, OwnerID: post.AuthorID}
}

func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// RegisterRoutes registers the bare post routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Index)
	rg.GET("/:id", h.Show)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Destroy)
}

// RegisterOrganizationRoutes registers the organization-scoped post routes
func (h *Handler) RegisterOrganizationRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/posts", h.ListByOrganization)
	rg.POST("/:id/posts", h.Store)
}

// RegisterUserRoutes registers the user-scoped post listing
func (h *Handler) RegisterUserRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/posts", h.ListByUser)
}
