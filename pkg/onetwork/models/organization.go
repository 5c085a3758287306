package models

import (
	"time"
)

// Organization is the tenant unit of the platform. Every user belongs to
// exactly one organization, and all content visibility is scoped by it.
// The name is unique across the whole system; the uniqueness check before
// create/update is backed by the index here, since check-then-insert can
// race under concurrent requests.
type Organization struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`

	// Relationships
	Users []User `gorm:"foreignKey:OrganizationID" json:"users,omitempty"`
}
