package model

import (
	"time"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
)

// AutoGraded 选择题与判断题按选项集合自动判分，其余题型需人工批改
func (t QuestionType) AutoGraded() bool {
	switch t {
	case MultipleChoice, TrueFalse:
		return true
	case ShortAnswer, Essay:
		return false
	default:
		return false
	}
}

// swagger:model Quiz
type Quiz struct {
	BaseModel
	LessonID        uint       `gorm:"uniqueIndex;not null" json:"lesson_id"`
	Lesson          *Lesson    `gorm:"foreignKey:LessonID" json:"lesson,omitempty"`
	Title           string     `gorm:"size:200;not null" json:"title"`
	Description     string     `gorm:"type:text" json:"description"`
	TimeLimit       *int       `json:"time_limit"`
	// 0 分及格与不限次数（<= 0）都是合法取值，默认值由服务层填充
	PassingScore    int        `gorm:"not null" json:"passing_score"`
	AttemptsAllowed int        `gorm:"not null" json:"attempts_allowed"`
	IsRandomized    bool       `gorm:"not null" json:"is_randomized"`
	Questions       []Question `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// swagger:model Question
type Question struct {
	BaseModel
	QuizID       uint             `gorm:"index;not null" json:"quiz_id"`
	QuestionText string           `gorm:"type:text;not null" json:"question_text"`
	QuestionType QuestionType     `gorm:"size:20;default:'multiple_choice'" json:"question_type"`
	Points       int              `gorm:"default:1" json:"points"`
	SortOrder    int              `gorm:"column:sort_order;default:0" json:"order"`
	Explanation  string           `gorm:"type:text" json:"explanation"`
	Options      []QuestionOption `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"options,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// swagger:model QuestionOption
type QuestionOption struct {
	BaseModel
	QuestionID uint   `gorm:"index;not null" json:"question_id"`
	OptionText string `gorm:"size:500;not null" json:"option_text"`
	IsCorrect  bool   `gorm:"default:false" json:"is_correct"`
	SortOrder  int    `gorm:"column:sort_order;default:0" json:"order"`
}

func (QuestionOption) TableName() string {
	return "question_options"
}

// swagger:model QuizAttempt
type QuizAttempt struct {
	BaseModel
	StudentID   uint           `gorm:"index:idx_attempt_student_quiz;not null" json:"student_id"`
	QuizID      uint           `gorm:"index:idx_attempt_student_quiz;not null" json:"quiz_id"`
	Score       *float64       `json:"score"`
	Passed      *bool          `json:"passed"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	TimeTaken   *int           `json:"time_taken"`
	Responses   []QuizResponse `gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE" json:"responses,omitempty"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

func (a *QuizAttempt) Submitted() bool {
	return a.CompletedAt != nil
}

// swagger:model QuizResponse
type QuizResponse struct {
	BaseModel
	AttemptID       uint             `gorm:"uniqueIndex:idx_response_attempt_question;not null" json:"attempt_id"`
	QuestionID      uint             `gorm:"uniqueIndex:idx_response_attempt_question;not null" json:"question_id"`
	Question        *Question        `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
	SelectedOptions []QuestionOption `gorm:"many2many:quiz_response_options" json:"selected_options,omitempty"`
	TextAnswer      string           `gorm:"type:text" json:"text_answer"`
	IsCorrect       *bool            `json:"is_correct"`
	PointsEarned    int              `gorm:"default:0" json:"points_earned"`
}

func (QuizResponse) TableName() string {
	return "quiz_responses"
}
