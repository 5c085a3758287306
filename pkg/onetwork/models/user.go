package models

import (
	"time"
)

// Role represents a user's role within their organization
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User represents a member of an organization. The organization is required
// and set at creation; the first user created in an empty organization is
// elevated to the admin role at that moment only.
type User struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Email          string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash   string    `json:"-"`
	Name           string    `gorm:"not null" json:"name"`
	Surname        string    `gorm:"not null" json:"surname"`
	Job            string    `json:"job"`
	ProfilePicture string    `json:"profile_picture,omitempty"` // stored filename, never exposed raw
	Disabled       bool      `gorm:"default:false" json:"disabled"`
	Role           Role      `gorm:"type:varchar(20);default:'user'" json:"role"`
	OrganizationID uint      `gorm:"not null;index" json:"organization_id"`

	// Relationships
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Posts        []Post       `gorm:"foreignKey:AuthorID" json:"posts,omitempty"`
	Comments     []Comment    `gorm:"foreignKey:AuthorID" json:"comments,omitempty"`
}
