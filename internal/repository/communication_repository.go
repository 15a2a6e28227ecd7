package repository

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

// CommunicationRepository 站内通知、私信与课程公告
type CommunicationRepository struct {
	DB *gorm.DB
}

func NewCommunicationRepository(db *gorm.DB) *CommunicationRepository {
	return &CommunicationRepository{DB: db}
}

func (r *CommunicationRepository) CreateNotifications(ctx context.Context, list []model.Notification) error {
	if len(list) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Create(&list).Error
}

func (r *CommunicationRepository) ListNotifications(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]model.Notification, error) {
	var list []model.Notification
	query := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&list).Error
	return list, err
}

func (r *CommunicationRepository) CountUnreadNotifications(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *CommunicationRepository) MarkNotificationRead(ctx context.Context, userID, id uint) error {
	res := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		r.DB.WithContext(ctx).Model(&model.Notification{}).Where("id = ? AND user_id = ?", id, userID).Count(&count)
		if count == 0 {
			return util.ErrNotificationGone
		}
	}
	return nil
}

func (r *CommunicationRepository) MarkAllNotificationsRead(ctx context.Context, userID uint) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *CommunicationRepository) CreateMessage(ctx context.Context, m *model.Message) error {
	return r.DB.WithContext(ctx).Create(m).Error
}

func (r *CommunicationRepository) Inbox(ctx context.Context, userID uint) ([]model.Message, error) {
	var list []model.Message
	err := r.DB.WithContext(ctx).
		Preload("Sender").
		Where("recipient_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

// Conversation 双方往来消息，按时间正序
func (r *CommunicationRepository) Conversation(ctx context.Context, userID, otherID uint) ([]model.Message, error) {
	var list []model.Message
	err := r.DB.WithContext(ctx).
		Preload("Sender").
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)", userID, otherID, otherID, userID).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	return list, err
}

func (r *CommunicationRepository) MarkConversationRead(ctx context.Context, userID, otherID uint) error {
	return r.DB.WithContext(ctx).Model(&model.Message{}).
		Where("recipient_id = ? AND sender_id = ? AND is_read = ?", userID, otherID, false).
		Update("is_read", true).Error
}

func (r *CommunicationRepository) CountUnreadMessages(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Message{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *CommunicationRepository) CreateAnnouncement(ctx context.Context, a *model.Announcement) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

func (r *CommunicationRepository) ListAnnouncements(ctx context.Context, courseID uint) ([]model.Announcement, error) {
	var list []model.Announcement
	err := r.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("is_pinned DESC, created_at DESC").
		Find(&list).Error
	return list, err
}
