package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/JonGarbayo/o-network-api/pkg/onetwork/models"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/storage"
)

func TestMain(m *testing.M) {
	SetSecret("test-signing-secret")
	os.Exit(m.Run())
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

func setupTestStorage(t *testing.T) *storage.Storage {
	st, err := storage.NewWithFs(afero.NewMemMapFs(), "pictures", "http://localhost:8080")
	if err != nil {
		t.Fatalf("Failed to set up test storage: %v", err)
	}
	return st
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string) models.User {
	org := models.Organization{Name: "Acme Corp"}
	if err := db.Create(&org).Error; err != nil {
		t.Fatalf("Failed to create test organization: %v", err)
	}

	hash, _ := HashPassword(password)
	user := models.User{
		Email:          email,
		PasswordHash:   hash,
		Name:           "Test",
		Surname:        "User",
		Role:           models.RoleAdmin,
		OrganizationID: org.ID,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func setupTestRouter(db *gorm.DB, st *storage.Storage) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db, st)
	handler.RegisterRoutes(r.Group("/users"))
	return r
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-passw0rd")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	if hash == "s3cret-passw0rd" {
		t.Error("Expected the hash to differ from the plaintext")
	}
	if !CheckPassword("s3cret-passw0rd", hash) {
		t.Error("Expected the right password to verify")
	}
	if CheckPassword("wrong", hash) {
		t.Error("Expected a wrong password to fail")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken(42, "ada@acme.test")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("Expected user ID 42, got %d", claims.UserID)
	}
	if claims.Email != "ada@acme.test" {
		t.Errorf("Expected email ada@acme.test, got %s", claims.Email)
	}
}

func TestValidateGarbageToken(t *testing.T) {
	if _, err := ValidateToken("not-a-jwt"); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestTokensRequireASecret(t *testing.T) {
	SetSecret("")
	defer SetSecret("test-signing-secret")

	if _, err := GenerateToken(1, "ada@acme.test"); !errors.Is(err, ErrNoSecret) {
		t.Errorf("Expected ErrNoSecret from GenerateToken, got %v", err)
	}
	if _, err := ValidateToken("whatever"); !errors.Is(err, ErrNoSecret) {
		t.Errorf("Expected ErrNoSecret from ValidateToken, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, setupTestStorage(t))
	user := createTestUser(t, db, "ada@acme.test", "password123")

	body, _ := json.Marshal(LoginRequest{Email: "ada@acme.test", Password: "password123"})
	req, _ := http.NewRequest("POST", "/users/session", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response SessionResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.Token == "" {
		t.Fatal("Expected a token in the response")
	}
	claims, err := ValidateToken(response.Token)
	if err != nil {
		t.Fatalf("Expected a valid token, got %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("Expected token for user %d, got %d", user.ID, claims.UserID)
	}
	if response.User.Email != user.Email {
		t.Errorf("Expected embedded user %s, got %s", user.Email, response.User.Email)
	}
	if response.User.Organization.Name != "Acme Corp" {
		t.Errorf("Expected embedded organization, got %s", response.User.Organization.Name)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, setupTestStorage(t))
	createTestUser(t, db, "ada@acme.test", "password123")

	body, _ := json.Marshal(LoginRequest{Email: "ada@acme.test", Password: "wrong-password"})
	req, _ := http.NewRequest("POST", "/users/session", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, setupTestStorage(t))

	body, _ := json.Marshal(LoginRequest{Email: "nobody@acme.test", Password: "password123"})
	req, _ := http.NewRequest("POST", "/users/session", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, setupTestStorage(t))
	user := createTestUser(t, db, "ada@acme.test", "password123")
	db.Model(&user).Update("disabled", true)

	body, _ := json.Marshal(LoginRequest{Email: "ada@acme.test", Password: "password123"})
	req, _ := http.NewRequest("POST", "/users/session", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}
}

func TestLogout(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, setupTestStorage(t))

	req, _ := http.NewRequest("DELETE", "/users/session", nil)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", resp.Code)
	}
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	db := setupTestDB(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", AuthMiddleware(), ActorMiddleware(db), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest("GET", "/protected", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func TestActorMiddlewareReflectsCurrentRole(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "ada@acme.test", "password123")
	token, _ := GenerateToken(user.ID, user.Email)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", AuthMiddleware(), ActorMiddleware(db), func(c *gin.Context) {
		actor, _ := GetActor(c)
		c.JSON(http.StatusOK, gin.H{"role": string(actor.Role)})
	})

	// Demote after the token was issued; the actor must carry the new role
	db.Model(&user).Update("role", models.RoleUser)

	req, _ := http.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var response map[string]string
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response["role"] != string(models.RoleUser) {
		t.Errorf("Expected role read from the database, got %s", response["role"])
	}
}
