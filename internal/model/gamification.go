package model

import (
	"time"

	"gorm.io/datatypes"
)

// 徽章条件键，值为达到的最小数量
const (
	CriteriaLessonsCompleted = "lessons_completed"
	CriteriaCoursesCompleted = "courses_completed"
	CriteriaQuizzesPassed    = "quizzes_passed"
	CriteriaPoints           = "points"
)

// swagger:model Badge
type Badge struct {
	BaseModel
	Name        string            `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string            `gorm:"type:text" json:"description"`
	Icon        string            `gorm:"size:50" json:"icon"`
	Color       string            `gorm:"size:7;default:'#3B82F6'" json:"color"`
	Criteria    datatypes.JSONMap `json:"criteria"`
}

func (Badge) TableName() string {
	return "badges"
}

// swagger:model UserBadge
type UserBadge struct {
	BaseModel
	UserID   uint      `gorm:"uniqueIndex:idx_user_badge;not null" json:"user_id"`
	BadgeID  uint      `gorm:"uniqueIndex:idx_user_badge;not null" json:"badge_id"`
	Badge    *Badge    `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	EarnedAt time.Time `json:"earned_at"`
}

func (UserBadge) TableName() string {
	return "user_badges"
}
