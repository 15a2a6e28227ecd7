package model

import (
	"time"
)

// swagger:model Assignment
type Assignment struct {
	BaseModel
	CourseID     uint      `gorm:"index;not null" json:"course_id"`
	LessonID     *uint     `gorm:"index" json:"lesson_id"`
	Title        string    `gorm:"size:200;not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	Instructions string    `gorm:"type:text" json:"instructions"`
	DueDate      time.Time `json:"due_date"`
	MaxPoints    int       `gorm:"default:100" json:"max_points"`
	Attachment   string    `gorm:"size:255" json:"attachment"`
}

func (Assignment) TableName() string {
	return "assignments"
}

type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionLate      SubmissionStatus = "late"
	SubmissionGraded    SubmissionStatus = "graded"
)

// swagger:model AssignmentSubmission
type AssignmentSubmission struct {
	BaseModel
	AssignmentID uint             `gorm:"uniqueIndex:idx_submission_assignment_student;not null" json:"assignment_id"`
	Assignment   *Assignment      `gorm:"foreignKey:AssignmentID" json:"assignment,omitempty"`
	StudentID    uint             `gorm:"uniqueIndex:idx_submission_assignment_student;not null" json:"student_id"`
	Student      *User            `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Content      string           `gorm:"type:text" json:"content"`
	FileURL      string           `gorm:"size:255" json:"file_url"`
	Status       SubmissionStatus `gorm:"size:20;default:'submitted'" json:"status"`
	Grade        *int             `json:"grade"`
	Feedback     string           `gorm:"type:text" json:"feedback"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	GradedAt     *time.Time       `json:"graded_at"`
	GradedBy     *uint            `json:"graded_by"`
}

func (AssignmentSubmission) TableName() string {
	return "assignment_submissions"
}
