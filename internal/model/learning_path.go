package model

// LearningPath 一组按顺序学习的课程
// swagger:model LearningPath
type LearningPath struct {
	BaseModel
	Title       string   `gorm:"size:200;not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	CreatedByID uint     `gorm:"index;not null" json:"created_by"`
	IsPublic    bool     `gorm:"not null" json:"is_public"`
	Courses     []Course `gorm:"many2many:learning_path_courses" json:"courses,omitempty"`
}

func (LearningPath) TableName() string {
	return "learning_paths"
}
