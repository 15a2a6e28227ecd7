package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

// EngagementController 评分、收藏与课时笔记
type EngagementController struct {
	EngagementService *service.EngagementService
}

func NewEngagementController(engagementService *service.EngagementService) *EngagementController {
	return &EngagementController{EngagementService: engagementService}
}

// RateCourse godoc
// @Summary 课程评分
// @Description 需已选课，每人每课一次
// @Tags 评价
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   body body service.RatingRequest true "评分 1-5"
// @Success 201 {object} util.Response{data=model.CourseRating} "成功"
// @Failure 403 {object} util.Response "需要选课"
// @Failure 409 {object} util.Response "已评价"
// @Router /api/courses/{id}/ratings [post]
func (c *EngagementController) RateCourse(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.RatingRequest
	if !bindJSON(ctx, &req) {
		return
	}

	r, err := c.EngagementService.RateCourse(ctx.Request.Context(), actor.ID, courseID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, r)
}

// UpdateRating godoc
// @Summary 修改评分
// @Tags 评价
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   body body service.RatingRequest true "评分 1-5"
// @Success 200 {object} util.Response{data=model.CourseRating} "成功"
// @Failure 404 {object} util.Response "尚未评价"
// @Router /api/courses/{id}/ratings [put]
func (c *EngagementController) UpdateRating(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.RatingRequest
	if !bindJSON(ctx, &req) {
		return
	}

	r, err := c.EngagementService.UpdateRating(ctx.Request.Context(), actor.ID, courseID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, r)
}

// ListRatings godoc
// @Summary 课程评价列表
// @Tags 评价
// @Produce  json
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.CourseRating} "成功"
// @Router /api/courses/{id}/ratings [get]
func (c *EngagementController) ListRatings(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	list, err := c.EngagementService.ListRatings(ctx.Request.Context(), courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// AddToWishlist godoc
// @Summary 加入心愿单
// @Tags 心愿单
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 201 {object} util.Response "成功"
// @Failure 409 {object} util.Response "已在心愿单"
// @Router /api/wishlist/{id} [post]
func (c *EngagementController) AddToWishlist(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.EngagementService.AddToWishlist(ctx.Request.Context(), actor.ID, courseID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"course_id": courseID})
}

// RemoveFromWishlist godoc
// @Summary 移出心愿单
// @Tags 心愿单
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 204 "已移除"
// @Router /api/wishlist/{id} [delete]
func (c *EngagementController) RemoveFromWishlist(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.EngagementService.RemoveFromWishlist(ctx.Request.Context(), actor.ID, courseID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// Wishlist godoc
// @Summary 我的心愿单
// @Tags 心愿单
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Wishlist} "成功"
// @Router /api/wishlist [get]
func (c *EngagementController) Wishlist(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	list, err := c.EngagementService.Wishlist(ctx.Request.Context(), actor.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// SaveNote godoc
// @Summary 保存课时笔记
// @Tags 笔记
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Param   body body service.NoteRequest true "笔记"
// @Success 200 {object} util.Response{data=model.LessonNote} "成功"
// @Router /api/lessons/{id}/notes [put]
func (c *EngagementController) SaveNote(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	lessonID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.NoteRequest
	if !bindJSON(ctx, &req) {
		return
	}

	note, err := c.EngagementService.SaveNote(ctx.Request.Context(), actor.ID, lessonID, req.Notes)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, note)
}

// GetNote godoc
// @Summary 课时笔记
// @Tags 笔记
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response{data=model.LessonNote} "成功"
// @Router /api/lessons/{id}/notes [get]
func (c *EngagementController) GetNote(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	lessonID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	note, err := c.EngagementService.GetNote(ctx.Request.Context(), actor.ID, lessonID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, note)
}
