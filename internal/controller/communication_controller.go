package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// CommunicationController 私信与课程公告
type CommunicationController struct {
	CommunicationService *service.CommunicationService
}

func NewCommunicationController(communicationService *service.CommunicationService) *CommunicationController {
	return &CommunicationController{CommunicationService: communicationService}
}

// SendMessage godoc
// @Summary 发送私信
// @Description 学生只能联系教师，教师可联系学生与其他教师
// @Tags 消息
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.MessageRequest true "私信内容"
// @Success 201 {object} util.Response{data=model.Message} "发送成功"
// @Failure 403 {object} util.Response "无权联系该用户"
// @Router /api/messages [post]
func (c *CommunicationController) SendMessage(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req service.MessageRequest
	if !bindJSON(ctx, &req) {
		return
	}

	msg, err := c.CommunicationService.SendMessage(ctx.Request.Context(), actor, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, msg)
}

// Inbox godoc
// @Summary 收件箱
// @Tags 消息
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Message} "成功"
// @Router /api/messages [get]
func (c *CommunicationController) Inbox(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	list, err := c.CommunicationService.Inbox(ctx.Request.Context(), actor.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// Conversation godoc
// @Summary 与某用户的对话
// @Description 拉取时把对方发来的消息标为已读
// @Tags 消息
// @Produce  json
// @Security ApiKeyAuth
// @Param   userId path int true "对方用户ID"
// @Success 200 {object} util.Response{data=[]model.Message} "成功"
// @Router /api/messages/conversations/{userId} [get]
func (c *CommunicationController) Conversation(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	otherID, ok := pathID(ctx, "userId")
	if !ok {
		return
	}

	list, err := c.CommunicationService.Conversation(ctx.Request.Context(), actor.ID, otherID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// UnreadMessages godoc
// @Summary 未读私信数
// @Tags 消息
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/messages/unread-count [get]
func (c *CommunicationController) UnreadMessages(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	n, err := c.CommunicationService.UnreadMessages(ctx.Request.Context(), actor.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"count": n})
}

// Announce godoc
// @Summary 发布课程公告
// @Description 所有选课学生收到站内通知
// @Tags 公告
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   body body service.AnnouncementRequest true "公告内容"
// @Success 201 {object} util.Response{data=model.Announcement} "发布成功"
// @Failure 403 {object} util.Response "非课程教师"
// @Router /api/courses/{id}/announcements [post]
func (c *CommunicationController) Announce(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.AnnouncementRequest
	if !bindJSON(ctx, &req) {
		return
	}

	a, err := c.CommunicationService.Announce(ctx.Request.Context(), actor, courseID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, a)
}

// ListAnnouncements godoc
// @Summary 课程公告列表
// @Tags 公告
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.Announcement} "成功"
// @Router /api/courses/{id}/announcements [get]
func (c *CommunicationController) ListAnnouncements(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	list, err := c.CommunicationService.ListAnnouncements(ctx.Request.Context(), actor, courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}
