package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func seedOrgWithUser(t *testing.T, db *gorm.DB, orgName, email string) (Organization, User) {
	org := Organization{Name: orgName}
	require.NoError(t, db.Create(&org).Error)
	user := User{
		Email:          email,
		PasswordHash:   "irrelevant",
		Name:           "Test",
		Surname:        "User",
		Role:           RoleUser,
		OrganizationID: org.ID,
	}
	require.NoError(t, db.Create(&user).Error)
	return org, user
}

func TestOrganizationNameUnique(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.Create(&Organization{Name: "Acme Corp"}).Error)
	err := db.Create(&Organization{Name: "Acme Corp"}).Error
	assert.Error(t, err, "the unique index is the real uniqueness guarantee")
}

func TestUserEmailUnique(t *testing.T) {
	db := setupTestDB(t)
	org, _ := seedOrgWithUser(t, db, "Acme Corp", "ada@acme.test")

	dup := User{
		Email:          "ada@acme.test",
		PasswordHash:   "irrelevant",
		Name:           "Dup",
		Surname:        "User",
		Role:           RoleUser,
		OrganizationID: org.ID,
	}
	assert.Error(t, db.Create(&dup).Error)
}

func TestPostDerivedOrganization(t *testing.T) {
	db := setupTestDB(t)
	org, user := seedOrgWithUser(t, db, "Acme Corp", "ada@acme.test")

	post := Post{Content: "hello", AuthorID: user.ID}
	require.NoError(t, db.Create(&post).Error)

	got, err := post.Organization(db)
	require.NoError(t, err)
	assert.Equal(t, org.ID, got.ID)
	assert.Equal(t, "Acme Corp", got.Name)
}

func TestDerivedOrganizationFollowsAuthor(t *testing.T) {
	db := setupTestDB(t)
	_, user := seedOrgWithUser(t, db, "Acme Corp", "ada@acme.test")
	newOrg := Organization{Name: "New Corp"}
	require.NoError(t, db.Create(&newOrg).Error)

	post := Post{Content: "hello", AuthorID: user.ID}
	require.NoError(t, db.Create(&post).Error)
	comment := Comment{Text: "hi", AuthorID: user.ID, PostID: post.ID}
	require.NoError(t, db.Create(&comment).Error)

	// Moving the author moves all their content, with no row updates on
	// posts or comments
	require.NoError(t, db.Model(&user).Update("organization_id", newOrg.ID).Error)

	postOrg, err := post.Organization(db)
	require.NoError(t, err)
	assert.Equal(t, newOrg.ID, postOrg.ID)

	commentOrg, err := comment.Organization(db)
	require.NoError(t, err)
	assert.Equal(t, newOrg.ID, commentOrg.ID)
}

func TestOrganizationPostsNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	org, alice := seedOrgWithUser(t, db, "Acme Corp", "alice@acme.test")
	bob := User{
		Email:          "bob@acme.test",
		PasswordHash:   "irrelevant",
		Name:           "Bob",
		Surname:        "User",
		Role:           RoleUser,
		OrganizationID: org.ID,
	}
	require.NoError(t, db.Create(&bob).Error)

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		authorID := alice.ID
		if i%2 == 1 {
			authorID = bob.ID
		}
		post := Post{
			Content:   fmt.Sprintf("post %d", i),
			AuthorID:  authorID,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&post).Error)
	}

	page1, total, err := OrganizationPosts(db, org.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	require.Len(t, page1, 10)
	assert.Equal(t, "post 11", page1[0].Content)
	assert.Equal(t, "post 2", page1[9].Content)
	// Authors come back preloaded with their organization
	assert.Equal(t, org.ID, page1[0].Author.Organization.ID)

	page2, total, err := OrganizationPosts(db, org.ID, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	require.Len(t, page2, 2)
	assert.Equal(t, "post 1", page2[0].Content)
	assert.Equal(t, "post 0", page2[1].Content)
}

func TestOrganizationPostsExcludesOtherOrganizations(t *testing.T) {
	db := setupTestDB(t)
	org, alice := seedOrgWithUser(t, db, "Acme Corp", "alice@acme.test")
	_, eve := seedOrgWithUser(t, db, "Other Corp", "eve@other.test")

	require.NoError(t, db.Create(&Post{Content: "ours", AuthorID: alice.ID}).Error)
	require.NoError(t, db.Create(&Post{Content: "theirs", AuthorID: eve.ID}).Error)

	posts, total, err := OrganizationPosts(db, org.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, posts, 1)
	assert.Equal(t, "ours", posts[0].Content)
}

func TestUserPosts(t *testing.T) {
	db := setupTestDB(t)
	org, alice := seedOrgWithUser(t, db, "Acme Corp", "alice@acme.test")
	bob := User{
		Email:          "bob@acme.test",
		PasswordHash:   "irrelevant",
		Name:           "Bob",
		Surname:        "User",
		Role:           RoleUser,
		OrganizationID: org.ID,
	}
	require.NoError(t, db.Create(&bob).Error)

	require.NoError(t, db.Create(&Post{Content: "alice's", AuthorID: alice.ID}).Error)
	require.NoError(t, db.Create(&Post{Content: "bob's", AuthorID: bob.ID}).Error)

	posts, total, err := UserPosts(db, alice.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, posts, 1)
	assert.Equal(t, "alice's", posts[0].Content)
}

func TestSeedReactionTypesIdempotent(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, SeedReactionTypes(db))
	require.NoError(t, SeedReactionTypes(db))

	var count int64
	db.Model(&ReactionType{}).Count(&count)
	assert.Equal(t, int64(len(DefaultReactionTypes)), count)

	var labels []string
	db.Model(&ReactionType{}).Order("id").Pluck("label", &labels)
	assert.Equal(t, DefaultReactionTypes, labels)
}
