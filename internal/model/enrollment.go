package model

import (
	"time"
)

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

// swagger:model Enrollment
type Enrollment struct {
	BaseModel
	StudentID         uint             `gorm:"not null;uniqueIndex:idx_enrollment_student_course" json:"student_id"`
	CourseID          uint             `gorm:"not null;uniqueIndex:idx_enrollment_student_course;index" json:"course_id"`
	Course            *Course          `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Student           *User            `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Status            EnrollmentStatus `gorm:"size:20;default:'active'" json:"status"`
	Progress          float64          `gorm:"default:0" json:"progress"`
	CompletedAt       *time.Time       `json:"completed_at"`
	CertificateEarned bool             `gorm:"default:false" json:"certificate_earned"`
	LastAccessed      time.Time        `json:"last_accessed"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// Progress 课程级进度，百分比始终由 LessonProgress 计数重算
// swagger:model Progress
type Progress struct {
	BaseModel
	StudentID        uint    `gorm:"not null;uniqueIndex:idx_progress_student_course" json:"student_id"`
	CourseID         uint    `gorm:"not null;uniqueIndex:idx_progress_student_course;index" json:"course_id"`
	PercentComplete  float64 `gorm:"default:0" json:"percent_complete"`
	LessonsCompleted int     `gorm:"default:0" json:"lessons_completed"`
	TotalLessons     int     `gorm:"default:0" json:"total_lessons"`
	TimeSpent        int     `gorm:"default:0" json:"time_spent"`
}

func (Progress) TableName() string {
	return "progress"
}

// swagger:model LessonProgress
type LessonProgress struct {
	BaseModel
	StudentID       uint       `gorm:"not null;uniqueIndex:idx_lesson_progress_student_lesson" json:"student_id"`
	LessonID        uint       `gorm:"not null;uniqueIndex:idx_lesson_progress_student_lesson;index" json:"lesson_id"`
	IsCompleted     bool       `gorm:"default:false" json:"is_completed"`
	WatchedDuration int        `gorm:"default:0" json:"watched_duration"`
	CompletedAt     *time.Time `json:"completed_at"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}

// swagger:model Certificate
type Certificate struct {
	BaseModel
	CertificateID string    `gorm:"size:100;uniqueIndex;not null" json:"certificate_id"`
	StudentID     uint      `gorm:"not null;uniqueIndex:idx_certificate_student_course" json:"student_id"`
	CourseID      uint      `gorm:"not null;uniqueIndex:idx_certificate_student_course" json:"course_id"`
	Course        *Course   `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Student       *User     `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	IssuedDate    time.Time `json:"issued_date"`
	FileURL       string    `gorm:"size:255" json:"file_url"`
	IsValid       bool      `gorm:"default:true" json:"is_valid"`
}

func (Certificate) TableName() string {
	return "certificates"
}
