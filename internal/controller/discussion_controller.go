package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// DiscussionController 课程讨论区
type DiscussionController struct {
	DiscussionService *service.DiscussionService
}

func NewDiscussionController(discussionService *service.DiscussionService) *DiscussionController {
	return &DiscussionController{DiscussionService: discussionService}
}

// CreateThread godoc
// @Summary 发起讨论
// @Tags 讨论
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   body body service.ThreadRequest true "帖子内容"
// @Success 201 {object} util.Response{data=model.DiscussionThread} "成功"
// @Failure 403 {object} util.Response "需要选课"
// @Router /api/courses/{id}/discussions [post]
func (c *DiscussionController) CreateThread(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.ThreadRequest
	if !bindJSON(ctx, &req) {
		return
	}

	t, err := c.DiscussionService.CreateThread(ctx.Request.Context(), actor, courseID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, t)
}

// ListThreads godoc
// @Summary 讨论列表
// @Description 置顶帖在前
// @Tags 讨论
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.DiscussionThread} "成功"
// @Router /api/courses/{id}/discussions [get]
func (c *DiscussionController) ListThreads(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	list, err := c.DiscussionService.ListThreads(ctx.Request.Context(), actor, courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// GetThread godoc
// @Summary 讨论详情
// @Tags 讨论
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "帖子ID"
// @Success 200 {object} util.Response{data=service.ThreadView} "成功"
// @Router /api/discussions/{id} [get]
func (c *DiscussionController) GetThread(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	view, err := c.DiscussionService.GetThread(ctx.Request.Context(), actor, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// Reply godoc
// @Summary 回复讨论
// @Tags 讨论
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "帖子ID"
// @Param   body body service.PostRequest true "回复内容"
// @Success 201 {object} util.Response{data=model.DiscussionPost} "成功"
// @Failure 403 {object} util.Response "帖子已锁定"
// @Router /api/discussions/{id}/posts [post]
func (c *DiscussionController) Reply(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.PostRequest
	if !bindJSON(ctx, &req) {
		return
	}

	p, err := c.DiscussionService.Reply(ctx.Request.Context(), actor, id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, p)
}

// SetFlags godoc
// @Summary 置顶或锁定讨论
// @Tags 讨论
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "帖子ID"
// @Param   body body service.ThreadFlags true "状态"
// @Success 200 {object} util.Response "成功"
// @Failure 403 {object} util.Response "非课程教师"
// @Router /api/discussions/{id}/flags [patch]
func (c *DiscussionController) SetFlags(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var flags service.ThreadFlags
	if !bindJSON(ctx, &flags) {
		return
	}

	if err := c.DiscussionService.SetFlags(ctx.Request.Context(), actor, id, flags); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, flags)
}

// ToggleLike godoc
// @Summary 点赞或取消点赞
// @Tags 讨论
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "回复ID"
// @Success 200 {object} util.Response{data=service.LikeResult} "成功"
// @Router /api/posts/{id}/like [post]
func (c *DiscussionController) ToggleLike(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	result, err := c.DiscussionService.ToggleLike(ctx.Request.Context(), actor, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// MarkSolution godoc
// @Summary 标记最佳回复
// @Tags 讨论
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "回复ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/posts/{id}/solution [post]
func (c *DiscussionController) MarkSolution(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.DiscussionService.MarkSolution(ctx.Request.Context(), actor, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"id": id, "is_solution": true})
}
