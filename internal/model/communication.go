package model

type NotificationType string

const (
	NotifyEnrollment   NotificationType = "enrollment"
	NotifyAssignment   NotificationType = "assignment"
	NotifyAnnouncement NotificationType = "announcement"
	NotifyGrade        NotificationType = "grade"
	NotifyMessage      NotificationType = "message"
	NotifySystem       NotificationType = "system"
)

// swagger:model Notification
type Notification struct {
	BaseModel
	UserID     uint             `gorm:"index:idx_notification_user_read;not null" json:"user_id"`
	Title      string           `gorm:"size:200;not null" json:"title"`
	Message    string           `gorm:"type:text" json:"message"`
	Type       NotificationType `gorm:"size:20;default:'system'" json:"notification_type"`
	RelatedURL string           `gorm:"size:255" json:"related_url"`
	IsRead     bool             `gorm:"index:idx_notification_user_read;default:false" json:"is_read"`
}

func (Notification) TableName() string {
	return "notifications"
}

// swagger:model Announcement
type Announcement struct {
	BaseModel
	CourseID     uint   `gorm:"index;not null" json:"course_id"`
	InstructorID uint   `gorm:"index;not null" json:"instructor_id"`
	Title        string `gorm:"size:200;not null" json:"title"`
	Content      string `gorm:"type:text" json:"content"`
	IsPinned     bool   `gorm:"default:false" json:"is_pinned"`
}

func (Announcement) TableName() string {
	return "announcements"
}

// swagger:model Message
type Message struct {
	BaseModel
	SenderID    uint   `gorm:"index;not null" json:"sender_id"`
	Sender      *User  `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	RecipientID uint   `gorm:"index:idx_message_recipient_read;not null" json:"recipient_id"`
	Recipient   *User  `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
	CourseID    *uint  `gorm:"index" json:"course_id"`
	Subject     string `gorm:"size:200" json:"subject"`
	Content     string `gorm:"type:text;not null" json:"content"`
	IsRead      bool   `gorm:"index:idx_message_recipient_read;default:false" json:"is_read"`
}

func (Message) TableName() string {
	return "messages"
}
