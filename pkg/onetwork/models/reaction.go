package models

import (
	"time"

	"gorm.io/gorm"
)

// ReactionType is a fixed label a reaction points at ("like", "love", ...).
// The set is seeded at startup and never managed through the API.
type ReactionType struct {
	ID    uint   `gorm:"primarykey" json:"id"`
	Label string `gorm:"uniqueIndex;not null" json:"label"`
}

// Reaction is a typed mark a user puts on a post.
type Reaction struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	TypeID    uint      `gorm:"not null" json:"type_id"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`

	// Relationships
	Type   ReactionType `gorm:"foreignKey:TypeID" json:"type,omitempty"`
	Author User         `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Post   Post         `gorm:"foreignKey:PostID" json:"post,omitempty"`
}

// Organization resolves the reaction's owning organization through its author.
func (r *Reaction) Organization(db *gorm.DB) (*Organization, error) {
	var org Organization
	err := db.Joins("JOIN users ON users.organization_id = organizations.id").
		Where("users.id = ?", r.AuthorID).
		First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// DefaultReactionTypes is the seed set created at startup when missing.
var DefaultReactionTypes = []string{"like", "love", "laugh", "applause"}

// SeedReactionTypes inserts the default reaction types that don't exist yet.
func SeedReactionTypes(db *gorm.DB) error {
	for _, label := range DefaultReactionTypes {
		var existing ReactionType
		if err := db.Where("label = ?", label).First(&existing).Error; err == nil {
			continue
		}
		if err := db.Create(&ReactionType{Label: label}).Error; err != nil {
			return err
		}
	}
	return nil
}
