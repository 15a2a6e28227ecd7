package controller

import (
	"lms_backend/internal/model"
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

// EnrollmentController 选课、学习进度与证书
type EnrollmentController struct {
	EnrollmentService *service.EnrollmentService
	ProgressService   *service.ProgressService
}

func NewEnrollmentController(enrollment *service.EnrollmentService, progress *service.ProgressService) *EnrollmentController {
	return &EnrollmentController{EnrollmentService: enrollment, ProgressService: progress}
}

// Enroll godoc
// @Summary 选课
// @Description 免费课程直接选课；草稿或归档课程不可选
// @Tags 选课
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 201 {object} util.Response{data=model.Enrollment} "选课成功"
// @Failure 400 {object} util.Response "课程未开放"
// @Failure 404 {object} util.Response "课程不存在"
// @Failure 409 {object} util.Response "已选过该课程"
// @Router /api/courses/{id}/enroll [post]
func (c *EnrollmentController) Enroll(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	enrollment, err := c.EnrollmentService.Enroll(ctx.Request.Context(), actor.ID, courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, enrollment)
}

// Unenroll godoc
// @Summary 移除学生
// @Description 课程教师移除学生，课时进度保留以便重新选课后继续
// @Tags 选课
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   studentId path int true "学生ID"
// @Success 204 "已移除"
// @Failure 403 {object} util.Response "非课程教师"
// @Failure 404 {object} util.Response "学生未选课"
// @Router /api/courses/{id}/students/{studentId} [delete]
func (c *EnrollmentController) Unenroll(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	studentID, ok := pathID(ctx, "studentId")
	if !ok {
		return
	}

	if err := c.EnrollmentService.Unenroll(ctx.Request.Context(), actor, studentID, courseID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// ListCourseStudents godoc
// @Summary 课程学生名单
// @Tags 选课
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]service.CourseStudent} "成功"
// @Failure 403 {object} util.Response "非课程教师"
// @Router /api/courses/{id}/students [get]
func (c *EnrollmentController) ListCourseStudents(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	students, err := c.EnrollmentService.ListCourseStudents(ctx.Request.Context(), actor, courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, students)
}

// ListMyEnrollments godoc
// @Summary 我的选课
// @Tags 选课
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Enrollment} "成功"
// @Router /api/enrollments [get]
func (c *EnrollmentController) ListMyEnrollments(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	list, err := c.EnrollmentService.ListForStudent(ctx.Request.Context(), actor.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

type LessonProgressRequest struct {
	WatchedDuration int  `json:"watched_duration" binding:"min=0"`
	Completed       bool `json:"completed"`
}

// RecordLessonProgress godoc
// @Summary 上报课时进度
// @Description 观看时长只增不减；首次完成时重算课程进度，满 100% 颁发证书
// @Tags 学习进度
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Param   body body LessonProgressRequest true "观看进度"
// @Success 200 {object} util.Response{data=service.LessonProgressResult} "成功"
// @Failure 403 {object} util.Response "需要选课"
// @Router /api/lessons/{id}/progress [post]
func (c *EnrollmentController) RecordLessonProgress(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	lessonID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req LessonProgressRequest
	if !bindJSON(ctx, &req) {
		return
	}

	result, err := c.ProgressService.RecordLessonProgress(ctx.Request.Context(), actor.ID, lessonID, req.WatchedDuration, req.Completed)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// GetLessonProgress godoc
// @Summary 课时进度
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response{data=model.LessonProgress} "成功"
// @Router /api/lessons/{id}/progress [get]
func (c *EnrollmentController) GetLessonProgress(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	lessonID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	lp, err := c.ProgressService.GetLessonProgress(ctx.Request.Context(), actor.ID, lessonID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, lp)
}

// GetCourseProgress godoc
// @Summary 课程进度明细
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseProgress} "成功"
// @Failure 404 {object} util.Response "未选课"
// @Router /api/courses/{id}/progress [get]
func (c *EnrollmentController) GetCourseProgress(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	progress, err := c.ProgressService.GetCourseProgress(ctx.Request.Context(), actor.ID, courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// ListProgress godoc
// @Summary 全部课程进度
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Progress} "成功"
// @Router /api/progress [get]
func (c *EnrollmentController) ListProgress(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	list, err := c.ProgressService.ListProgress(ctx.Request.Context(), actor.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if list == nil {
		list = []model.Progress{}
	}
	util.Success(ctx, list)
}

// ListCertificates godoc
// @Summary 我的证书
// @Tags 证书
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Certificate} "成功"
// @Router /api/certificates [get]
func (c *EnrollmentController) ListCertificates(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	list, err := c.EnrollmentService.Certificates(ctx.Request.Context(), actor.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// VerifyCertificate godoc
// @Summary 证书校验
// @Description 公开接口，按证书编号查询
// @Tags 证书
// @Produce  json
// @Param   certificateId path string true "证书编号"
// @Success 200 {object} util.Response{data=model.Certificate} "成功"
// @Failure 404 {object} util.Response "证书不存在"
// @Router /api/certificates/{certificateId} [get]
func (c *EnrollmentController) VerifyCertificate(ctx *gin.Context) {
	cert, err := c.EnrollmentService.VerifyCertificate(ctx.Request.Context(), ctx.Param("certificateId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, cert)
}
