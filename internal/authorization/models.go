package authorization

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role is an assignable role. A disabled role contributes no grants.
type Role struct {
	Code      string    `gorm:"primaryKey;type:varchar(64)"`
	Name      string    `gorm:"type:varchar(128);not null"`
	Disabled  bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Role) TableName() string { return "roles" }

// Permission is a grantable action. A disabled permission is never granted.
type Permission struct {
	Code        string    `gorm:"primaryKey;type:varchar(64)"`
	Description string    `gorm:"type:varchar(255);not null"`
	Disabled    bool      `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (Permission) TableName() string { return "permissions" }

type UserRole struct {
	UserID    snowflake.ID `gorm:"primaryKey"`
	RoleCode  string       `gorm:"primaryKey;type:varchar(64)"`
	CreatedAt time.Time    `gorm:"not null"`
}

func (UserRole) TableName() string { return "user_roles" }

type UserPermission struct {
	UserID         snowflake.ID `gorm:"primaryKey"`
	PermissionCode string       `gorm:"primaryKey;type:varchar(64)"`
	CreatedAt      time.Time    `gorm:"not null"`
}

func (UserPermission) TableName() string { return "user_permissions" }
