package comments

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/JonGarbayo/o-network-api/pkg/onetwork/auth"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/models"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/resources"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

func createTestOrg(t *testing.T, db *gorm.DB, name string) models.Organization {
	org := models.Organization{Name: name}
	if err := db.Create(&org).Error; err != nil {
		t.Fatalf("Failed to create test organization: %v", err)
	}
	return org
}

func createTestUser(t *testing.T, db *gorm.DB, email string, orgID uint, role models.Role) models.User {
	hash, _ := auth.HashPassword("password123")
	user := models.User{
		Email:          email,
		PasswordHash:   hash,
		Name:           "Test",
		Surname:        "User",
		Role:           role,
		OrganizationID: orgID,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func createTestPost(t *testing.T, db *gorm.DB, authorID uint) models.Post {
	post := models.Post{Content: "a post", AuthorID: authorID}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("Failed to create test post: %v", err)
	}
	return post
}

func createTestComment(t *testing.T, db *gorm.DB, authorID, postID uint, text string) models.Comment {
	comment := models.Comment{Text: text, AuthorID: authorID, PostID: postID}
	if err := db.Create(&comment).Error; err != nil {
		t.Fatalf("Failed to create test comment: %v", err)
	}
	return comment
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth.SetSecret("test-signing-secret")
	r := gin.New()
	handler := NewHandler(db)

	authed := r.Group("", auth.AuthMiddleware(), auth.ActorMiddleware(db))
	handler.RegisterRoutes(authed.Group("/comments"))
	handler.RegisterPostRoutes(authed.Group("/posts"))
	handler.RegisterOrganizationRoutes(authed.Group("/organizations"))

	return r
}

func getAuthHeader(user models.User) string {
	token, _ := auth.GenerateToken(user.ID, user.Email)
	return "Bearer " + token
}

func TestCreateComment(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "Acme Corp")
	author := createTestUser(t, db, "ada@acme.test", org.ID, models.RoleUser)
	commenter := createTestUser(t, db, "bob@acme.test", org.ID, models.RoleUser)
	post := createTestPost(t, db, author.ID)

	body, _ := json.Marshal(StoreCommentRequest{Text: "Nice one"})
	req, _ := http.NewRequest("POST", "/posts/1/comments", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", getAuthHeader(commenter))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response resources.CommentResource
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response.Text != "Nice one" {
		t.Errorf("Expected text 'Nice one', got %s", response.Text)
	}
	if response.AuthorID != commenter.ID || response.PostID != post.ID {
		t.Errorf("Unexpected comment linkage: author=%d post=%d", response.AuthorID, response.PostID)
	}
}

func TestCreateCommentOnForeignPost(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "Acme Corp")
	other := createTestOrg(t, db, "Other Corp")
	author := createTestUser(t, db, "ada@acme.test", org.ID, models.RoleUser)
	outsider := createTestUser(t, db, "eve@other.test", other.ID, models.RoleUser)
	createTestPost(t, db, author.ID)

	body, _ := json.Marshal(StoreCommentRequest{Text: "Sneaky"})
	req, _ := http.NewRequest("POST", "/posts/1/comments", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", getAuthHeader(outsider))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}
}

func TestGetCommentBareRouteCrossOrganization(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "Acme Corp")
	other := createTestOrg(t, db, "Other Corp")
	author := createTestUser(t, db, "ada@acme.test", org.ID, models.RoleUser)
	outsider := createTestUser(t, db, "eve@other.test", other.ID, models.RoleAdmin)
	post := createTestPost(t, db, author.ID)
	createTestComment(t, db, author.ID, post.ID, "internal")

	req, _ := http.NewRequest("GET", "/comments/1", nil)
	req.Header.Set("Authorization", getAuthHeader(outsider))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	// The bare route admits the record exists: the deny is a 403
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}
}

func TestGetCommentScopedRouteCrossOrganization(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "Acme Corp")
	other := createTestOrg(t, db, "Other Corp")
	author := createTestUser(t, db, "ada@acme.test", org.ID, models.RoleUser)
	outsider := createTestUser(t, db, "eve@other.test", other.ID, models.RoleAdmin)
	post := createTestPost(t, db, author.ID)
	createTestComment(t, db, author.ID, post.ID, "internal")

	// Same comment, same caller, same outcome class as a missing record:
	// the nested route hides existence with a 404 instead of a 403
	req, _ := http.NewRequest("GET", "/organizations/1/posts/1/comments/1", nil)
	req.Header.Set("Authorization", getAuthHeader(outsider))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestGetCommentScopedRoute(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "Acme Corp")
	author := createTestUser(t, db, "ada@acme.test", org.ID, models.RoleUser)
	post := createTestPost(t, db, author.ID)
	createTestComment(t, db, author.ID, post.ID, "visible")

	req, _ := http.NewRequest("GET", "/organizations/1/posts/1/comments/1", nil)
	req.Header.Set("Authorization", getAuthHeader(author))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response resources.CommentResource
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response.Text != "visible" {
		t.Errorf("Expected text 'visible', got %s", response.Text)
	}
}

func TestGetCommentScopedRouteWrongPost(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "Acme Corp")
	author := createTestUser(t, db, "ada@acme.test", org.ID, models.RoleUser)
	post := createTestPost(t, db, author.ID)
	createTestPost(t, db, author.ID)
	createTestComment(t, db, author.ID, post.ID, "on the first post")

	// The comment exists but not under the post of the route
	req, _ := http.NewRequest("GET", "/organizations/1/posts/2/comments/1", nil)
	req.Header.Set("Authorization", getAuthHeader(author))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestListPostComments(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "Acme Corp")
	author := createTestUser(t, db, "ada@acme.test", org.ID, models.RoleUser)
	commenter := createTestUser(t, db, "bob@acme.test", org.ID, models.RoleUser)
	post := createTestPost(t, db, author.ID)
	createTestComment(t, db, author.ID, post.ID, "first")
	createTestComment(t, db, commenter.ID, post.ID, "second")

	req, _ := http.NewRequest("GET", "/posts/1/comments", nil)
	req.Header.Set("Authorization", getAuthHeader(commenter))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.Code)
	}

	var response resources.Collection[resources.CommentResource]
	json.Unmarshal(resp.Body.Bytes(), &response)
	if len(response.Data) != 2 {
		t.Fatalf("Expected 2 comments, got %d", len(response.Data))
	}
	// Insertion order, no pagination
	if response.Data[0].Text != "first" || response.Data[1].Text != "second" {
		t.Errorf("Unexpected ordering: %s, %s", response.Data[0].Text, response.Data[1].Text)
	}
	if response.Meta != nil {
		t.Error("Expected no pagination metadata on the comment listing")
	}
}

func TestListPostCommentsFromOutside(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "Acme Corp")
	other := createTestOrg(t, db, "Other Corp")
	author := createTestUser(t, db, "ada@acme.test", org.ID, models.RoleUser)
	outsider := createTestUser(t, db, "eve@other.test", other.ID, models.RoleUser)
	post := createTestPost(t, db, author.ID)
	createTestComment(t, db, author.ID, post.ID, "private")

	req, _ := http.NewRequest("GET", "/posts/1/comments", nil)
	req.Header.Set("Authorization", getAuthHeader(outsider))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}
}

func TestUpdateCommentAsAuthor(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "Acme Corp")
	author := createTestUser(t, db, "ada@acme.test", org.ID, models.RoleUser)
	post := createTestPost(t, db, author.ID)
	comment := createTestComment(t, db, author.ID, post.ID, "typo")

	body, _ := json.Marshal(UpdateCommentRequest{Text: "fixed"})
	req, _ := http.NewRequest("PATCH", "/comments/1", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", getAuthHeader(author))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var updated models.Comment
	db.First(&updated, comment.ID)
	if updated.Text != "fixed" {
		t.Errorf("Expected text 'fixed', got %s", updated.Text)
	}
}

func TestUpdateCommentAsColleague(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "Acme Corp")
	author := createTestUser(t, db, "ada@acme.test", org.ID, models.RoleUser)
	colleague := createTestUser(t, db, "bob@acme.test", org.ID, models.RoleUser)
	post := createTestPost(t, db, author.ID)
	createTestComment(t, db, author.ID, post.ID, "mine")

	body, _ := json.Marshal(UpdateCommentRequest{Text: "hijacked"})
	req, _ := http.NewRequest("PATCH", "/comments/1", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", getAuthHeader(colleague))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}
}

func TestDeleteCommentAsAdmin(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "Acme Corp")
	admin := createTestUser(t, db, "admin@acme.test", org.ID, models.RoleAdmin)
	author := createTestUser(t, db, "ada@acme.test", org.ID, models.RoleUser)
	post := createTestPost(t, db, author.ID)
	createTestComment(t, db, author.ID, post.ID, "inappropriate")

	req, _ := http.NewRequest("DELETE", "/comments/1", nil)
	req.Header.Set("Authorization", getAuthHeader(admin))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", resp.Code)
	}

	var count int64
	db.Model(&models.Comment{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected comment deleted, found %d", count)
	}
}

func TestDeleteCommentFromOtherOrganization(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "Acme Corp")
	other := createTestOrg(t, db, "Other Corp")
	author := createTestUser(t, db, "ada@acme.test", org.ID, models.RoleUser)
	foreignAdmin := createTestUser(t, db, "eve@other.test", other.ID, models.RoleAdmin)
	post := createTestPost(t, db, author.ID)
	createTestComment(t, db, author.ID, post.ID, "safe")

	req, _ := http.NewRequest("DELETE", "/comments/1", nil)
	req.Header.Set("Authorization", getAuthHeader(foreignAdmin))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}
}
