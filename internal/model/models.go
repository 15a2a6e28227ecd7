package model

// AllModels 迁移顺序：被引用的表在前
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&Course{},
		&Module{},
		&Lesson{},
		&Enrollment{},
		&Progress{},
		&LessonProgress{},
		&Certificate{},
		&Quiz{},
		&Question{},
		&QuestionOption{},
		&QuizAttempt{},
		&QuizResponse{},
		&Assignment{},
		&AssignmentSubmission{},
		&Notification{},
		&Announcement{},
		&Message{},
		&DiscussionThread{},
		&DiscussionPost{},
		&PostLike{},
		&Payment{},
		&Badge{},
		&UserBadge{},
		&CourseRating{},
		&Wishlist{},
		&LessonNote{},
		&LearningPath{},
	}
}
