package model

import (
	"gorm.io/datatypes"
)

type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePublished CourseStatus = "published"
	CourseArchived  CourseStatus = "archived"
)

type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

type LessonType string

const (
	LessonVideo      LessonType = "video"
	LessonText       LessonType = "text"
	LessonQuiz       LessonType = "quiz"
	LessonAssignment LessonType = "assignment"
	LessonFile       LessonType = "file"
)

// swagger:model Category
type Category struct {
	BaseModel
	Name        string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Icon        string `gorm:"size:50" json:"icon"`
}

func (Category) TableName() string {
	return "categories"
}

// swagger:model Course
type Course struct {
	BaseModel
	Title            string                      `gorm:"size:200;not null" json:"title"`
	Slug             string                      `gorm:"size:200;uniqueIndex;not null" json:"slug"`
	Description      string                      `gorm:"type:text" json:"description"`
	ShortDescription string                      `gorm:"size:300" json:"short_description"`
	InstructorID     uint                        `gorm:"index;not null" json:"instructor_id"`
	Instructor       *User                       `gorm:"foreignKey:InstructorID" json:"instructor,omitempty"`
	CategoryID       *uint                       `gorm:"index" json:"category_id"`
	Category         *Category                   `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Thumbnail        string                      `gorm:"size:255" json:"thumbnail"`
	VideoIntro       string                      `gorm:"size:255" json:"video_intro"`
	Price            float64                     `gorm:"type:decimal(10,2);default:0" json:"price"`
	OriginalPrice    *float64                    `gorm:"type:decimal(10,2)" json:"original_price"`
	Difficulty       Difficulty                  `gorm:"size:20;default:'beginner'" json:"difficulty"`
	Status           CourseStatus                `gorm:"size:20;default:'draft';index" json:"status"`
	Language         string                      `gorm:"size:50;default:'English'" json:"language"`
	Duration         int                         `gorm:"default:0" json:"duration"`
	TotalLessons     int                         `gorm:"default:0" json:"total_lessons"`
	Rating           float64                     `gorm:"default:0" json:"rating"`
	TotalRatings     int                         `gorm:"default:0" json:"total_ratings"`
	IsFeatured       bool                        `gorm:"default:false" json:"is_featured"`
	Tags             datatypes.JSONSlice[string] `json:"tags"`
	Requirements     datatypes.JSONSlice[string] `json:"requirements"`
	LearningOutcomes datatypes.JSONSlice[string] `json:"learning_outcomes"`
	Modules          []Module                    `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"modules,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

func (c *Course) IsFree() bool {
	return c.Price <= 0
}

// swagger:model Module
type Module struct {
	BaseModel
	CourseID    uint     `gorm:"not null;uniqueIndex:idx_module_course_order" json:"course_id"`
	Title       string   `gorm:"size:200;not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	SortOrder   int      `gorm:"column:sort_order;not null;uniqueIndex:idx_module_course_order" json:"order"`
	Duration    int      `gorm:"default:0" json:"duration"`
	IsFree      bool     `gorm:"default:false" json:"is_free"`
	Lessons     []Lesson `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
}

func (Module) TableName() string {
	return "modules"
}

// swagger:model Lesson
type Lesson struct {
	BaseModel
	ModuleID   uint       `gorm:"not null;uniqueIndex:idx_lesson_module_order" json:"module_id"`
	Title      string     `gorm:"size:200;not null" json:"title"`
	Content    string     `gorm:"type:text" json:"content"`
	LessonType LessonType `gorm:"size:20;default:'video'" json:"lesson_type"`
	VideoURL   string     `gorm:"size:255" json:"video_url"`
	FileURL    string     `gorm:"size:255" json:"file_url"`
	Duration   int        `gorm:"default:0" json:"duration"`
	SortOrder  int        `gorm:"column:sort_order;not null;uniqueIndex:idx_lesson_module_order" json:"order"`
	IsFree     bool       `gorm:"default:false" json:"is_free"`
}

func (Lesson) TableName() string {
	return "lessons"
}
