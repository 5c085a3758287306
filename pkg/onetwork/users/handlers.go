package users

import (
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/JonGarbayo/o-network-api/pkg/onetwork/auth"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/models"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/policy"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/resources"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/storage"
)

// Handler handles user-related requests
type Handler struct {
	db      *gorm.DB
	storage *storage.Storage
}

// NewHandler creates a new users handler
func NewHandler(db *gorm.DB, st *storage.Storage) *Handler {
	return &Handler{db: db, storage: st}
}

// StoreUserRequest represents the signup request. It binds from JSON or from
// a multipart form when a profile picture is attached. Either organizationId
// (open signup, first member of a fresh organization) or invitation (token
// issued to this email) must be provided.
type StoreUserRequest struct {
	Email          string `json:"email" form:"email" binding:"required,email"`
	Password       string `json:"password" form:"password" binding:"required,min=8"`
	Name           string `json:"name" form:"name" binding:"required"`
	Surname        string `json:"surname" form:"surname" binding:"required"`
	Job            string `json:"job" form:"job"`
	OrganizationID uint   `json:"organizationId" form:"organizationId"`
	Invitation     string `json:"invitation" form:"invitation"`
}

// UpdateUserRequest represents the request to update a user. All fields are
// optional; absent fields are left untouched. Role and disabled changes are
// reserved to organization admins.
type UpdateUserRequest struct {
	Name     *string `json:"name" form:"name"`
	Surname  *string `json:"surname" form:"surname"`
	Job      *string `json:"job" form:"job"`
	Password *string `json:"password" form:"password" binding:"omitempty,min=8"`
	Disabled *bool   `json:"disabled" form:"disabled"`
	Role     *string `json:"role" form:"role" binding:"omitempty,oneof=admin user"`
}

// Index would return every user of the platform, but the policy denies
// viewAny for every role. The route exists so GET /users answers cleanly.
// @Summary List users
// @Tags users
// @Produce json
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /users [get]
func (h *Handler) Index(c *gin.Context) {
	actor, _ := auth.GetActor(c)
	if err := policy.Authorize(actor, policy.EntityUser, policy.ActionViewAny, policy.Target{}); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var users []models.User
	if err := h.db.Preload("Organization").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	c.JSON(http.StatusOK, resources.NewUserCollection(users, h.storage))
}

// Store handles signup. The route is open: the first user of a freshly
// created organization cannot be authenticated yet, and invited users don't
// have an account either. The first user created in an organization with no
// members is elevated to admin; the count-then-insert runs in a transaction
// but two simultaneous first signups can still both elevate, a known race
// accepted by the design.
// @Summary Create a user
// @Tags users
// @Accept json
// @Accept mpfd
// @Produce json
// @Param request body StoreUserRequest true "User details"
// @Success 201 {object} resources.UserResource
// @Failure 409 {object} map[string]string "Email already registered"
// @Failure 422 {object} map[string]string "Validation error"
// @Router /users [post]
func (h *Handler) Store(c *gin.Context) {
	var req StoreUserRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var invitation *models.Invitation
	orgID := req.OrganizationID

	if req.Invitation != "" {
		var inv models.Invitation
		if err := h.db.Where("token = ? AND used = ?", req.Invitation, false).First(&inv).Error; err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid or already used invitation"})
			return
		}
		if inv.Email != req.Email {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "This invitation was issued for another email address"})
			return
		}
		invitation = &inv
		orgID = inv.OrganizationID
	}

	if orgID == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Either organizationId or an invitation token is required"})
		return
	}

	var org models.Organization
	if err := h.db.First(&org, orgID).Error; err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "This organization does not exist"})
		return
	}

	var existing models.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	user := models.User{
		Email:          req.Email,
		PasswordHash:   hashedPassword,
		Name:           req.Name,
		Surname:        req.Surname,
		Job:            req.Job,
		Role:           models.RoleUser,
		OrganizationID: org.ID,
	}

	// The picture write is a synchronous external call; a database failure
	// afterwards orphans the file, which is accepted.
	if file, err := c.FormFile("profilePicture"); err == nil {
		name, err := h.storeProfilePicture(file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store profile picture"})
			return
		}
		user.ProfilePicture = name
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("organization_id = ?", org.ID).Count(&count).Error; err != nil {
			return err
		}

		// The first user of an organization is considered the admin. This
		// is a one-time, creation-time check, never re-evaluated.
		if count == 0 {
			user.Role = models.RoleAdmin
		}

		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		if invitation != nil {
			invitation.Used = true
			return tx.Save(invitation).Error
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	user.Organization = org
	c.JSON(http.StatusCreated, resources.NewUser(user, h.storage))
}

// Show returns a specific user
// @Summary Get a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} resources.UserResource
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /users/{id} [get]
func (h *Handler) Show(c *gin.Context) {
	actor, _ := auth.GetActor(c)

	user, ok := h.findUser(c)
	if !ok {
		return
	}

	if err := policy.Authorize(actor, policy.EntityUser, policy.ActionView, userTarget(user)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	c.JSON(http.StatusOK, resources.NewUser(*user, h.storage))
}

// Update updates a user. Users edit themselves; organization admins may edit
// any member, and only admins may touch role or disabled. A new profile
// picture replaces the stored one: the old file is deleted first, then the
// new one written, so a failure in between leaves the row pointing at a
// missing file until the next successful update (accepted inconsistency
// window). Omitting the file leaves the picture untouched.
// @Summary Update a user
// @Tags users
// @Accept json
// @Accept mpfd
// @Produce json
// @Param id path int true "User ID"
// @Param request body UpdateUserRequest true "Updated user details"
// @Success 200 {object} resources.UserResource
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /users/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	actor, _ := auth.GetActor(c)

	user, ok := h.findUser(c)
	if !ok {
		return
	}

	if err := policy.Authorize(actor, policy.EntityUser, policy.ActionUpdate, userTarget(user)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	// Role and account status are administration, not self-service: without
	// this gate a member could grant themselves the elevated role.
	if (req.Role != nil || req.Disabled != nil) && !actor.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	if file, err := c.FormFile("profilePicture"); err == nil {
		if user.ProfilePicture != "" {
			if err := h.storage.Delete(user.ProfilePicture); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to replace profile picture"})
				return
			}
		}
		name, err := h.storeProfilePicture(file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store profile picture"})
			return
		}
		user.ProfilePicture = name
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Surname != nil {
		user.Surname = *req.Surname
	}
	if req.Job != nil {
		user.Job = *req.Job
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
			return
		}
		user.PasswordHash = hash
	}
	if req.Disabled != nil {
		user.Disabled = *req.Disabled
	}
	if req.Role != nil {
		user.Role = models.Role(*req.Role)
	}

	if err := h.db.Save(user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	c.JSON(http.StatusOK, resources.NewUser(*user, h.storage))
}

// Destroy removes a user and everything they authored (organization admin
// only)
// @Summary Delete a user
// @Tags users
// @Param id path int true "User ID"
// @Success 204 "No content"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /users/{id} [delete]
func (h *Handler) Destroy(c *gin.Context) {
	actor, _ := auth.GetActor(c)

	user, ok := h.findUser(c)
	if !ok {
		return
	}

	if err := policy.Authorize(actor, policy.EntityUser, policy.ActionDelete, userTarget(user)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		var postIDs []uint
		if err := tx.Model(&models.Post{}).Where("author_id = ?", user.ID).Pluck("id", &postIDs).Error; err != nil {
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
		if err := tx.Where("author_id = ?", user.ID).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", user.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	if user.ProfilePicture != "" {
		// Best effort; the row is already gone.
		_ = h.storage.Delete(user.ProfilePicture)
	}

	c.Status(http.StatusNoContent)
}

// ShowProfilePicture returns the user's profile picture as a binary file.
// Answers 404 both when the user never set one and when the stored file has
// gone missing.
// @Summary Get a user's profile picture
// @Tags users
// @Produce octet-stream
// @Param id path int true "User ID"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string "No picture"
// @Security BearerAuth
// @Router /users/{id}/profile-picture [get]
func (h *Handler) ShowProfilePicture(c *gin.Context) {
	actor, _ := auth.GetActor(c)

	user, ok := h.findUser(c)
	if !ok {
		return
	}

	if err := policy.Authorize(actor, policy.EntityUser, policy.ActionView, userTarget(user)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	if user.ProfilePicture == "" || !h.storage.Exists(user.ProfilePicture) {
		c.Status(http.StatusNotFound)
		return
	}

	f, size, err := h.storage.Open(user.ProfilePicture)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	defer f.Close()

	contentType := mime.TypeByExtension(path.Ext(user.ProfilePicture))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, size, contentType, f, nil)
}

// ListByOrganization returns the users of an organization, for its own
// members. The unscoped listing stays denied; viewAnyFromOrganization is the
// only way to list users.
// @Summary List an organization's users
// @Tags users
// @Produce json
// @Param id path int true "Organization ID"
// @Success 200 {object} resources.Collection[resources.UserResource]
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Organization not found"
// @Security BearerAuth
// @Router /organizations/{id}/users [get]
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

	if err := policy.AuthorizeScoped(actor, policy.EntityUser, policy.ActionViewAnyFromOrganization, org.ID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var users []models.User
	if err := h.db.Preload("Organization").Where("organization_id = ?", org.ID).Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	c.JSON(http.StatusOK, resources.NewUserCollection(users, h.storage))
}

func (h *Handler) findUser(c *gin.Context) (*models.User, bool) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return nil, false
	}

	var user models.User
	if err := h.db.Preload("Organization").First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return nil, false
	}
	return &user, true
}

func (h *Handler) storeProfilePicture(file *multipart.FileHeader) (string, error) {
	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return h.storage.Store(f, file.Filename)
}

// userTarget builds the policy target for a user record: the owner of a user
// record is the user themself.
func userTarget(user *models.User) policy.Target {
	return policy.Target{OrganizationID: user.OrganizationID, OwnerID: user.ID}
}

// RegisterPublicRoutes registers the open signup route
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Store)
}

// RegisterRoutes registers the authenticated user routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Index)
	rg.GET("/:id", h.Show)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Destroy)
	rg.GET("/:id/profile-picture", h.ShowProfilePicture)
}

// RegisterOrganizationRoutes registers the organization-scoped user listing
func (h *Handler) RegisterOrganizationRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/users", h.ListByOrganization)
}
