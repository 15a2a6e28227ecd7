package service

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/pkg/logger"

	"go.uber.org/zap"
)

// Notifier 站内通知出口。必须在事务提交之后调用
type Notifier interface {
	Notify(ctx context.Context, userIDs []uint, n model.Notification)
}

type NotificationService struct {
	Repo *repository.CommunicationRepository
	Hub  *NotificationHub
}

func NewNotificationService(repo *repository.CommunicationRepository, hub *NotificationHub) *NotificationService {
	return &NotificationService{Repo: repo, Hub: hub}
}

// Notify 持久化后推送给在线用户。通知属于旁路，失败只记日志
func (s *NotificationService) Notify(ctx context.Context, userIDs []uint, n model.Notification) {
	if len(userIDs) == 0 {
		return
	}
	list := make([]model.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		item := n
		item.UserID = id
		list = append(list, item)
	}
	if err := s.Repo.CreateNotifications(ctx, list); err != nil {
		logger.Log.Error("create notifications failed", zap.Error(err), zap.String("type", string(n.Type)))
		return
	}
	for _, item := range list {
		s.Hub.PushToUser(item.UserID, WSMessage{Type: "NOTIFICATION", Data: item})
	}
}

func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool) ([]model.Notification, error) {
	return s.Repo.ListNotifications(ctx, userID, unreadOnly, 100)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.Repo.CountUnreadNotifications(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	return s.Repo.MarkNotificationRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.Repo.MarkAllNotificationsRead(ctx, userID)
}

// nopNotifier 测试与未配置推送时使用
type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, []uint, model.Notification) {}
