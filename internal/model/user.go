package model

import (
	"time"
)

type UserRole string

const (
	Student    UserRole = "student"
	Instructor UserRole = "instructor"
	Admin      UserRole = "admin"
)

// Valid 角色是封闭集合，未知值一律视为非法
func (r UserRole) Valid() bool {
	switch r {
	case Student, Instructor, Admin:
		return true
	default:
		return false
	}
}

// swagger:model User
type User struct {
	BaseModel
	Username    string     `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email       string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password    string     `gorm:"size:100;not null" json:"-"`
	FirstName   string     `gorm:"size:150" json:"first_name"`
	LastName    string     `gorm:"size:150" json:"last_name"`
	Role        UserRole   `gorm:"size:20;default:'student';index" json:"role"`
	Bio         string     `gorm:"type:text" json:"bio"`
	Avatar      string     `gorm:"size:255" json:"avatar"`
	Phone       string     `gorm:"size:20" json:"phone"`
	Address     string     `gorm:"type:text" json:"address"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Points      int        `gorm:"default:0" json:"points"`
	Level       int        `gorm:"default:1" json:"level"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	LastLogin   *time.Time `json:"last_login"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Username
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
