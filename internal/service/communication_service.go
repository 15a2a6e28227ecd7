package service

import (
	"context"
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
)

// CommunicationService 私信与课程公告
type CommunicationService struct {
	Repo           *repository.CommunicationRepository
	UserRepo       *repository.UserRepository
	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
	Notifier       Notifier
}

func NewCommunicationService(
	repo *repository.CommunicationRepository,
	userRepo *repository.UserRepository,
	courseRepo *repository.CourseRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	notifier Notifier,
) *CommunicationService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &CommunicationService{
		Repo:           repo,
		UserRepo:       userRepo,
		CourseRepo:     courseRepo,
		EnrollmentRepo: enrollmentRepo,
		Notifier:       notifier,
	}
}

type MessageRequest struct {
	RecipientID uint   `json:"recipient_id" binding:"required"`
	CourseID    *uint  `json:"course_id"`
	Subject     string `json:"subject" binding:"max=200"`
	Content     string `json:"content" binding:"required"`
}

// SendMessage 私信只在学生与教师之间往来，管理员不受限
func (s *CommunicationService) SendMessage(ctx context.Context, actor Actor, req MessageRequest) (*model.Message, error) {
	if req.RecipientID == actor.ID {
		return nil, util.ValidationError("cannot message yourself")
	}
	recipient, err := s.UserRepo.FindByID(ctx, req.RecipientID)
	if err != nil {
		return nil, err
	}
	if !canMessage(actor.Role, recipient.Role) {
		return nil, util.ErrPermissionDenied
	}
	if req.CourseID != nil {
		if _, err := s.CourseRepo.FindByID(ctx, *req.CourseID); err != nil {
			return nil, err
		}
	}

	msg := &model.Message{
		SenderID:    actor.ID,
		RecipientID: recipient.ID,
		CourseID:    req.CourseID,
		Subject:     req.Subject,
		Content:     req.Content,
	}
	if err := s.Repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.Notifier.Notify(ctx, []uint{recipient.ID}, model.Notification{
		Title:      "New message",
		Message:    truncate(req.Content, 120),
		Type:       model.NotifyMessage,
		RelatedURL: fmt.Sprintf("/messages/%d", actor.ID),
	})
	return msg, nil
}

func canMessage(from, to model.UserRole) bool {
	switch from {
	case model.Admin:
		return true
	case model.Student:
		return to == model.Instructor || to == model.Admin
	case model.Instructor:
		return to == model.Student || to == model.Instructor || to == model.Admin
	default:
		return false
	}
}

func (s *CommunicationService) Inbox(ctx context.Context, userID uint) ([]model.Message, error) {
	return s.Repo.Inbox(ctx, userID)
}

// Conversation 打开会话即把对方发来的消息标记为已读
func (s *CommunicationService) Conversation(ctx context.Context, userID, otherID uint) ([]model.Message, error) {
	if _, err := s.UserRepo.FindByID(ctx, otherID); err != nil {
		return nil, err
	}
	list, err := s.Repo.Conversation(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.MarkConversationRead(ctx, userID, otherID); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *CommunicationService) UnreadMessages(ctx context.Context, userID uint) (int64, error) {
	return s.Repo.CountUnreadMessages(ctx, userID)
}

type AnnouncementRequest struct {
	Title    string `json:"title" binding:"required,max=200"`
	Content  string `json:"content" binding:"required"`
	IsPinned bool   `json:"is_pinned"`
}

func (s *CommunicationService) Announce(ctx context.Context, actor Actor, courseID uint, req AnnouncementRequest) (*model.Announcement, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageCourse(course) {
		return nil, util.ErrNotCourseOwner
	}
	a := &model.Announcement{
		CourseID:     courseID,
		InstructorID: actor.ID,
		Title:        req.Title,
		Content:      req.Content,
		IsPinned:     req.IsPinned,
	}
	if err := s.Repo.CreateAnnouncement(ctx, a); err != nil {
		return nil, err
	}

	students, err := s.EnrollmentRepo.StudentIDs(ctx, courseID)
	if err != nil {
		return a, nil
	}
	s.Notifier.Notify(ctx, students, model.Notification{
		Title:      fmt.Sprintf("%s: %s", course.Title, a.Title),
		Message:    truncate(a.Content, 200),
		Type:       model.NotifyAnnouncement,
		RelatedURL: fmt.Sprintf("/courses/%d/announcements", courseID),
	})
	return a, nil
}

func (s *CommunicationService) ListAnnouncements(ctx context.Context, actor Actor, courseID uint) ([]model.Announcement, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageCourse(course) {
		ok, err := s.EnrollmentRepo.Exists(ctx, actor.ID, courseID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, util.ErrEnrollmentNeeded
		}
	}
	return s.Repo.ListAnnouncements(ctx, courseID)
}
