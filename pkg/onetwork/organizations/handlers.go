package organizations

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

// Handler handles organization-related requests
type Handler struct {
	db      *gorm.DB
	storage *storage.Storage
}

// NewHandler creates a new organizations handler
func NewHandler(db *gorm.DB, st *storage.Storage) *Handler {
	return &Handler{db: db, storage: st}
}

// OrganizationRequest represents the request to create or update an
// organization, and the payload of the validate-only endpoint
type OrganizationRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// checkNameConflict checks whether another organization already holds the
// candidate name. excludeID is only set on update, so renaming an
// organization to its current name is not a conflict with itself. A hit is
// a distinguished conflict outcome (409), not a validation failure (422):
// API consumers rely on telling the two apart.
//
// This is a check-then-insert; the unique index on organizations.name is
// what actually guarantees uniqueness under concurrent creates.
func (h *Handler) checkNameConflict(name string, excludeID uint) (bool, error) {
	query := h.db.Model(&models.Organization{}).Where("name = ?", name)
	if excludeID > 0 {
		query = query.Where("id != ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Index would return all organizations, but no role may access the full
// list in this product: the policy denies viewAny for every actor. The
// route only exists so GET /organizations answers with a clean 403.
// @Summary List organizations
// @Tags organizations
// @Produce json
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /organizations [get]
func (h *Handler) Index(c *gin.Context) {
	actor, _ := auth.GetActor(c)
	if err := policy.Authorize(actor, policy.EntityOrganization, policy.ActionViewAny, policy.Target{}); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var orgs []models.Organization
	if err := h.db.Find(&orgs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch organizations"})
		return
	}

	data := make([]resources.OrganizationResource, len(orgs))
	for i, org := range orgs {
		data[i] = resources.NewOrganization(org)
	}
	c.JSON(http.StatusOK, resources.NewCollection(data))
}

// Store creates a new organization. This route is open: the organization is
// created during signup, before any user exists to authenticate.
// @Summary Create an organization
// @Tags organizations
// @Accept json
// @Produce json
// @Param request body OrganizationRequest true "Organization details"
// @Success 201 {object} resources.OrganizationResource
// @Failure 409 {object} map[string]string "Name already taken"
// @Failure 422 {object} map[string]string "Validation error"
// @Router /organizations [post]
func (h *Handler) Store(c *gin.Context) {
	var req OrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	taken, err := h.checkNameConflict(req.Name, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check organization name"})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "This organization already exists. Please choose another name."})
		return
	}

	org := models.Organization{Name: req.Name}
	if err := h.db.Create(&org).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create organization"})
		return
	}

	c.JSON(http.StatusCreated, resources.NewOrganization(org))
}

// Check validates an organization name without storing anything. Same
// outcomes as Store, minus the write.
// @Summary Validate an organization name
// @Tags organizations
// @Accept json
// @Success 204 "No content"
// @Failure 409 {object} map[string]string "Name already taken"
// @Failure 422 {object} map[string]string "Validation error"
// @Router /organizations/validation [get]
func (h *Handler) Check(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "The name parameter is required"})
		return
	}

	taken, err := h.checkNameConflict(name, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check organization name"})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "This organization already exists. Please choose another name."})
		return
	}

	c.Status(http.StatusNoContent)
}

// Show returns a specific organization
// @Summary Get an organization
// @Tags organizations
// @Produce json
// @Param id path int true "Organization ID"
// @Success 200 {object} resources.OrganizationResource
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Organization not found"
// @Security BearerAuth
// @Router /organizations/{id} [get]
func (h *Handler) Show(c *gin.Context) {
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

	if err := policy.Authorize(actor, policy.EntityOrganization, policy.ActionView, policy.Target{OrganizationID: org.ID}); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	c.JSON(http.StatusOK, resources.NewOrganization(org))
}

// Update renames an organization (organization admin only)
// @Summary Update an organization
// @Tags organizations
// @Accept json
// @Produce json
// @Param id path int true "Organization ID"
// @Param request body OrganizationRequest true "Updated organization details"
// @Success 200 {object} resources.OrganizationResource
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Name already taken"
// @Security BearerAuth
// @Router /organizations/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
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

	if err := policy.Authorize(actor, policy.EntityOrganization, policy.ActionUpdate, policy.Target{OrganizationID: org.ID}); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var req OrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	// Excluding the organization itself permits a no-op rename
	taken, err := h.checkNameConflict(req.Name, org.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check organization name"})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "This organization already exists. Please choose another name."})
		return
	}

	org.Name = req.Name
	if err := h.db.Save(&org).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update organization"})
		return
	}

	c.JSON(http.StatusOK, resources.NewOrganization(org))
}

// Destroy deletes an organization together with its users and their content
// (organization admin only)
// @Summary Delete an organization
// @Tags organizations
// @Param id path int true "Organization ID"
// @Success 204 "No content"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Organization not found"
// @Security BearerAuth
// @Router /organizations/{id} [delete]
func (h *Handler) Destroy(c *gin.Context) {
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

	if err := policy.Authorize(actor, policy.EntityOrganization, policy.ActionDelete, policy.Target{OrganizationID: org.ID}); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var pictures []string
	err = h.db.Transaction(func(tx *gorm.DB) error {
		var userIDs []uint
		if err := tx.Model(&models.User{}).Where("organization_id = ?", org.ID).Pluck("id", &userIDs).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.User{}).Where("organization_id = ? AND profile_picture <> ''", org.ID).Pluck("profile_picture", &pictures).Error; err != nil {
			return err
		}

		if len(userIDs) > 0 {
			var postIDs []uint
			if err := tx.Model(&models.Post{}).Where("author_id IN ?", userIDs).Pluck("id", &postIDs).Error; err != nil {
				return err
			}

			if len(postIDs) > 0 {
				if err := tx.Where("post_id IN ?", postIDs).Delete(&models.Reaction{}).Error; err != nil {
					return err
				}
				if err := tx.Where("post_id IN ?", postIDs).Delete(&models.Comment{}).Error; err != nil {
					return err
				}
				if err := tx.Where("id IN ?", postIDs).Delete(&models.Post{}).Error; err != nil {
					return err
				}
			}

			if err := tx.Where("author_id IN ?", userIDs).Delete(&models.Reaction{}).Error; err != nil {
				return err
			}
			if err := tx.Where("author_id IN ?", userIDs).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", userIDs).Delete(&models.User{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("organization_id = ?", org.ID).Delete(&models.Invitation{}).Error; err != nil {
			return err
		}

		return tx.Delete(&org).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete organization"})
		return
	}

	// Best effort; the rows are already gone.
	for _, name := range pictures {
		_ = h.storage.Delete(name)
	}

	c.Status(http.StatusNoContent)
}

// RegisterPublicRoutes registers the routes reachable without a session:
// organization creation happens during signup, before any user exists.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Store)
	rg.GET("/validation", h.Check)
}

// RegisterRoutes registers the authenticated organization routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Index)
	rg.GET("/:id", h.Show)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Destroy)
}
