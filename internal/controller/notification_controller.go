package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	NotificationService *service.NotificationService
	Hub                 *service.NotificationHub
}

func NewNotificationController(notificationService *service.NotificationService, hub *service.NotificationHub) *NotificationController {
	return &NotificationController{NotificationService: notificationService, Hub: hub}
}

// ListNotifications godoc
// @Summary 站内通知
// @Tags 通知
// @Produce  json
// @Security ApiKeyAuth
// @Param   unread query bool false "只看未读"
// @Success 200 {object} util.Response{data=[]model.Notification} "成功"
// @Router /api/notifications [get]
func (c *NotificationController) ListNotifications(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	list, err := c.NotificationService.List(ctx.Request.Context(), actor.ID, ctx.Query("unread") == "true")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// UnreadCount godoc
// @Summary 未读通知数
// @Tags 通知
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/notifications/unread-count [get]
func (c *NotificationController) UnreadCount(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	n, err := c.NotificationService.UnreadCount(ctx.Request.Context(), actor.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"count": n})
}

// MarkRead godoc
// @Summary 标记通知已读
// @Tags 通知
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "通知ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "通知不存在"
// @Router /api/notifications/{id}/read [patch]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.NotificationService.MarkRead(ctx.Request.Context(), actor.ID, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"id": id})
}

// MarkAllRead godoc
// @Summary 全部标为已读
// @Tags 通知
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/notifications/read-all [patch]
func (c *NotificationController) MarkAllRead(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	n, err := c.NotificationService.MarkAllRead(ctx.Request.Context(), actor.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"updated": n})
}

// Connect godoc
// @Summary 通知 WebSocket
// @Description 浏览器无法设置请求头，token 可通过查询参数传递
// @Tags 通知
// @Param   token query string false "访问令牌"
// @Success 101 "切换协议"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/ws [get]
func (c *NotificationController) Connect(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	service.ServeWs(c.Hub, ctx.Writer, ctx.Request, actor.ID)
}
