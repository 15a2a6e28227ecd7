package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AssignmentController struct {
	AssignmentService *service.AssignmentService
}

func NewAssignmentController(assignmentService *service.AssignmentService) *AssignmentController {
	return &AssignmentController{AssignmentService: assignmentService}
}

// CreateAssignment godoc
// @Summary 布置作业
// @Description 选课学生会收到通知
// @Tags 作业
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.AssignmentRequest true "作业信息"
// @Success 201 {object} util.Response{data=model.Assignment} "创建成功"
// @Failure 403 {object} util.Response "非课程教师"
// @Router /api/assignments [post]
func (c *AssignmentController) CreateAssignment(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req service.AssignmentRequest
	if !bindJSON(ctx, &req) {
		return
	}

	a, err := c.AssignmentService.Create(ctx.Request.Context(), actor, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, a)
}

// UpdateAssignment godoc
// @Summary 更新作业
// @Tags 作业
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "作业ID"
// @Param   body body service.AssignmentRequest true "作业信息"
// @Success 200 {object} util.Response{data=model.Assignment} "成功"
// @Router /api/assignments/{id} [put]
func (c *AssignmentController) UpdateAssignment(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.AssignmentRequest
	if !bindJSON(ctx, &req) {
		return
	}

	a, err := c.AssignmentService.Update(ctx.Request.Context(), actor, id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// DeleteAssignment godoc
// @Summary 删除作业
// @Tags 作业
// @Security ApiKeyAuth
// @Param   id path int true "作业ID"
// @Success 204 "已删除"
// @Router /api/assignments/{id} [delete]
func (c *AssignmentController) DeleteAssignment(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.AssignmentService.Delete(ctx.Request.Context(), actor, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// ListCourseAssignments godoc
// @Summary 课程作业列表
// @Tags 作业
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.Assignment} "成功"
// @Failure 403 {object} util.Response "需要选课"
// @Router /api/courses/{id}/assignments [get]
func (c *AssignmentController) ListCourseAssignments(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	list, err := c.AssignmentService.ListByCourse(ctx.Request.Context(), actor, courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// Submit godoc
// @Summary 提交作业
// @Description 每份作业只能提交一次，截止后提交标记为迟交
// @Tags 作业
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "作业ID"
// @Param   body body service.SubmitRequest true "作答内容或文件地址"
// @Success 201 {object} util.Response{data=model.AssignmentSubmission} "成功"
// @Failure 409 {object} util.Response "已提交"
// @Router /api/assignments/{id}/submissions [post]
func (c *AssignmentController) Submit(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.SubmitRequest
	if !bindJSON(ctx, &req) {
		return
	}

	sub, err := c.AssignmentService.Submit(ctx.Request.Context(), actor.ID, id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, sub)
}

// UploadSubmissionFile godoc
// @Summary 上传作业文件
// @Description 返回的 url 作为提交时的 file_url
// @Tags 作业
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   file formData file true "作业文件"
// @Success 200 {object} util.Response{data=service.StoredFile} "成功"
// @Router /api/assignments/upload [post]
func (c *AssignmentController) UploadSubmissionFile(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "File is required")
		return
	}

	stored, err := c.AssignmentService.UploadSubmissionFile(ctx.Request.Context(), file)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, stored)
}

// ListSubmissions godoc
// @Summary 作业提交列表
// @Tags 作业
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "作业ID"
// @Success 200 {object} util.Response{data=[]model.AssignmentSubmission} "成功"
// @Failure 403 {object} util.Response "非课程教师"
// @Router /api/assignments/{id}/submissions [get]
func (c *AssignmentController) ListSubmissions(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	list, err := c.AssignmentService.ListSubmissions(ctx.Request.Context(), actor, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// Grade godoc
// @Summary 批改作业
// @Tags 作业
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "提交ID"
// @Param   body body service.GradeRequest true "分数与评语"
// @Success 200 {object} util.Response{data=model.AssignmentSubmission} "成功"
// @Failure 400 {object} util.Response "分数超过满分"
// @Router /api/submissions/{id}/grade [post]
func (c *AssignmentController) Grade(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.GradeRequest
	if !bindJSON(ctx, &req) {
		return
	}

	sub, err := c.AssignmentService.Grade(ctx.Request.Context(), actor, id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// Gradebook godoc
// @Summary 成绩册
// @Description 教师查看全班，学生只看到自己的提交
// @Tags 作业
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.AssignmentSubmission} "成功"
// @Router /api/courses/{id}/gradebook [get]
func (c *AssignmentController) Gradebook(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	list, err := c.AssignmentService.Gradebook(ctx.Request.Context(), actor, courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}
