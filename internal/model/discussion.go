package model

// swagger:model DiscussionThread
type DiscussionThread struct {
	BaseModel
	CourseID  uint   `gorm:"index;not null" json:"course_id"`
	LessonID  *uint  `gorm:"index" json:"lesson_id"`
	AuthorID  uint   `gorm:"index;not null" json:"author_id"`
	Author    *User  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Title     string `gorm:"size:200;not null" json:"title"`
	Content   string `gorm:"type:text" json:"content"`
	IsPinned  bool   `gorm:"default:false" json:"is_pinned"`
	IsLocked  bool   `gorm:"default:false" json:"is_locked"`
	Views     int    `gorm:"default:0" json:"views"`
	PostCount int    `gorm:"default:0" json:"post_count"`
}

func (DiscussionThread) TableName() string {
	return "discussion_threads"
}

// swagger:model DiscussionPost
type DiscussionPost struct {
	BaseModel
	ThreadID   uint   `gorm:"index;not null" json:"thread_id"`
	AuthorID   uint   `gorm:"index;not null" json:"author_id"`
	Author     *User  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Content    string `gorm:"type:text;not null" json:"content"`
	Likes      int    `gorm:"default:0" json:"likes"`
	IsSolution bool   `gorm:"default:false" json:"is_solution"`
}

func (DiscussionPost) TableName() string {
	return "discussion_posts"
}

// PostLike 点赞记录，(post, user) 唯一
type PostLike struct {
	BaseModel
	PostID uint `gorm:"uniqueIndex:idx_post_like_post_user;not null" json:"post_id"`
	UserID uint `gorm:"uniqueIndex:idx_post_like_post_user;not null" json:"user_id"`
}

func (PostLike) TableName() string {
	return "discussion_post_likes"
}
