/**
 * @description
 * Profile and file database models.
 * Maps to the 'user_profiles' and 'files' tables.
 *
 * The unique index on user_profiles.user_id is the authoritative enforcement
 * of the at-most-one-profile-per-user invariant. Concurrent bootstrap creates
 * race on the INSERT and the losers observe a duplicate-key error.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/google/uuid
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProfile is the one-to-one companion record for a user, holding
// product-specific attributes the users table does not carry.
type UserProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	// Name fields are nullable: an empty submission unsets the value
	FirstName *string `gorm:"column:first_name" json:"first_name"`
	LastName  *string `gorm:"column:last_name" json:"last_name"`

	AvatarFileID *uuid.UUID `gorm:"type:uuid" json:"avatar_file_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	User   *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Avatar *File `gorm:"foreignKey:AvatarFileID" json:"avatar,omitempty"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

func (p *UserProfile) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

// File is a backend-managed blob reference. Profiles may link to one as an
// avatar; application code never creates or mutates rows here.
type File struct {
	ID   uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Path string    `gorm:"uniqueIndex;not null" json:"path"`
	URL  string    `json:"url"`

	CreatedAt time.Time `json:"created_at"`
}

func (File) TableName() string {
	return "files"
}

func (f *File) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return
}
