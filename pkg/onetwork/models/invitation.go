package models

import (
	"time"
)

// Invitation lets an organization member bring a new user in. The token is
// handed out once and consumed by the signup that redeems it; redeeming pins
// the new user's email and organization to the invitation's.
type Invitation struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Email          string    `gorm:"not null;index" json:"email"`
	Token          string    `gorm:"uniqueIndex;not null" json:"token"`
	OrganizationID uint      `gorm:"not null;index" json:"organization_id"`
	Used           bool      `gorm:"default:false" json:"used"`

	// Relationships
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}
