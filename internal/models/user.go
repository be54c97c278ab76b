package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string     `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email     string     `gorm:"type:varchar(254);uniqueIndex;not null" json:"email"`
	Role      Role       `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	Bio       string     `gorm:"type:text" json:"bio"`
	FirstName string     `gorm:"type:varchar(150)" json:"first_name"`
	LastName  string     `gorm:"type:varchar(150)" json:"last_name"`
	LastLogin *time.Time `json:"-"` // part of the confirmation-code state
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
