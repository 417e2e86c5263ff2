/**
 * @description
 * User database model.
 * Maps to the 'users' table in PostgreSQL.
 * Users are owned by the auth subsystem: they are created on the first
 * successful magic-code verification and never deleted by application code.
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

// User represents an identity record managed by the auth subsystem
type User struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	// Email is optional: a user row may exist before the address is verified
	Email *string `gorm:"uniqueIndex" json:"email"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Profile *UserProfile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

// TableName overrides the table name used by User to `users`
func (User) TableName() string {
	return "users"
}

// BeforeCreate ensures UUID is generated if not present (though DB usually handles this)
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}
