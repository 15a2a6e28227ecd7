package model

// swagger:model CourseRating
type CourseRating struct {
	BaseModel
	StudentID uint   `gorm:"uniqueIndex:idx_rating_student_course;not null" json:"student_id"`
	Student   *User  `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	CourseID  uint   `gorm:"uniqueIndex:idx_rating_student_course;index;not null" json:"course_id"`
	Rating    int    `gorm:"not null" json:"rating"`
	Review    string `gorm:"type:text" json:"review"`
}

func (CourseRating) TableName() string {
	return "course_ratings"
}

// swagger:model Wishlist
type Wishlist struct {
	BaseModel
	StudentID uint    `gorm:"uniqueIndex:idx_wishlist_student_course;not null" json:"student_id"`
	CourseID  uint    `gorm:"uniqueIndex:idx_wishlist_student_course;not null" json:"course_id"`
	Course    *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (Wishlist) TableName() string {
	return "wishlists"
}

// swagger:model LessonNote
type LessonNote struct {
	BaseModel
	UserID   uint   `gorm:"uniqueIndex:idx_note_user_lesson;not null" json:"user_id"`
	LessonID uint   `gorm:"uniqueIndex:idx_note_user_lesson;not null" json:"lesson_id"`
	Notes    string `gorm:"type:text" json:"notes"`
}

func (LessonNote) TableName() string {
	return "lesson_notes"
}
