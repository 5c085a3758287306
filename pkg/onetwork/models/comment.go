package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment is a reply on a post. Like posts, comments have no organization
// column of their own; the owning organization is the author's.
type Comment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`

	// Relationships
	Author User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Post   Post `gorm:"foreignKey:PostID" json:"post,omitempty"`
}

// Organization resolves the comment's owning organization through its author.
func (c *Comment) Organization(db *gorm.DB) (*Organization, error) {
	var org Organization
	err := db.Joins("JOIN users ON users.organization_id = organizations.id").
		Where("users.id = ?", c.AuthorID).
		First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}
