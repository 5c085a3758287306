package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is content published by a user. It carries no organization foreign
// key: its organization is always the author's current one, resolved
// through the Organization accessor. If the author is ever moved to another
// organization, their posts move with them.
type Post struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`

	// Relationships
	Author    User       `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Comments  []Comment  `gorm:"foreignKey:PostID" json:"comments,omitempty"`
	Reactions []Reaction `gorm:"foreignKey:PostID" json:"reactions,omitempty"`
}

// Organization resolves the post's owning organization through its author.
// Deliberately a query, not a stored column, so the "moves with the author"
// invariant holds by construction.
func (p *Post) Organization(db *gorm.DB) (*Organization, error) {
	var org Organization
	err := db.Joins("JOIN users ON users.organization_id = organizations.id").
		Where("users.id = ?", p.AuthorID).
		First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// OrganizationPosts returns one page of the organization's feed: posts whose
// author belongs to the organization, newest first. Page numbering starts
// at 1; pageSize is fixed by the caller (10 across the API).
func OrganizationPosts(db *gorm.DB, orgID uint, page, pageSize int) ([]Post, int64, error) {
	var total int64
	err := db.Model(&Post{}).
		Joins("LEFT JOIN users ON posts.author_id = users.id").
		Where("users.organization_id = ?", orgID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var posts []Post
	err = db.Model(&Post{}).
		Joins("LEFT JOIN users ON posts.author_id = users.id").
		Where("users.organization_id = ?", orgID).
		Select("posts.*").
		Preload("Author.Organization").
		Order("posts.created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&posts).Error
	return posts, total, err
}

// UserPosts returns one page of a single user's posts, newest first.
func UserPosts(db *gorm.DB, userID uint, page, pageSize int) ([]Post, int64, error) {
	var total int64
	if err := db.Model(&Post{}).Where("author_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []Post
	err := db.Model(&Post{}).
		Where("author_id = ?", userID).
		Preload("Author.Organization").
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&posts).Error
	return posts, total, err
}
