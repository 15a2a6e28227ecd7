package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContentController 章节与课时
type ContentController struct {
	ContentService *service.ContentService
}

func NewContentController(contentService *service.ContentService) *ContentController {
	return &ContentController{ContentService: contentService}
}

// ListModules godoc
// @Summary 课程章节列表
// @Tags 内容
// @Produce  json
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.Module} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id}/modules [get]
func (c *ContentController) ListModules(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	modules, err := c.ContentService.ListModules(ctx.Request.Context(), courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, modules)
}

// CreateModule godoc
// @Summary 新建章节
// @Tags 内容
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   body body service.ModuleRequest true "章节信息"
// @Success 201 {object} util.Response{data=model.Module} "创建成功"
// @Failure 409 {object} util.Response "序号已被占用"
// @Router /api/courses/{id}/modules [post]
func (c *ContentController) CreateModule(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.ModuleRequest
	if !bindJSON(ctx, &req) {
		return
	}

	module, err := c.ContentService.CreateModule(ctx.Request.Context(), actor, courseID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, module)
}

// UpdateModule godoc
// @Summary 更新章节
// @Tags 内容
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "章节ID"
// @Param   body body service.ModuleRequest true "章节信息"
// @Success 200 {object} util.Response{data=model.Module} "成功"
// @Router /api/modules/{id} [put]
func (c *ContentController) UpdateModule(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.ModuleRequest
	if !bindJSON(ctx, &req) {
		return
	}

	module, err := c.ContentService.UpdateModule(ctx.Request.Context(), actor, id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, module)
}

// DeleteModule godoc
// @Summary 删除章节
// @Tags 内容
// @Security ApiKeyAuth
// @Param   id path int true "章节ID"
// @Success 204 "已删除"
// @Router /api/modules/{id} [delete]
func (c *ContentController) DeleteModule(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.ContentService.DeleteModule(ctx.Request.Context(), actor, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// CreateLesson godoc
// @Summary 新建课时
// @Description 课程与进行中进度的课时总数同步更新
// @Tags 内容
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "章节ID"
// @Param   body body service.LessonRequest true "课时信息"
// @Success 201 {object} util.Response{data=model.Lesson} "创建成功"
// @Failure 409 {object} util.Response "序号已被占用"
// @Router /api/modules/{id}/lessons [post]
func (c *ContentController) CreateLesson(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	moduleID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.LessonRequest
	if !bindJSON(ctx, &req) {
		return
	}

	lesson, err := c.ContentService.CreateLesson(ctx.Request.Context(), actor, moduleID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, lesson)
}

// GetLesson godoc
// @Summary 课时详情
// @Description 免费课时所有登录用户可见，其余需要选课
// @Tags 内容
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response{data=model.Lesson} "成功"
// @Failure 403 {object} util.Response "需要选课"
// @Router /api/lessons/{id} [get]
func (c *ContentController) GetLesson(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	lesson, err := c.ContentService.GetLesson(ctx.Request.Context(), actor, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// UpdateLesson godoc
// @Summary 更新课时
// @Tags 内容
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Param   body body service.LessonRequest true "课时信息"
// @Success 200 {object} util.Response{data=model.Lesson} "成功"
// @Router /api/lessons/{id} [put]
func (c *ContentController) UpdateLesson(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.LessonRequest
	if !bindJSON(ctx, &req) {
		return
	}

	lesson, err := c.ContentService.UpdateLesson(ctx.Request.Context(), actor, id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// DeleteLesson godoc
// @Summary 删除课时
// @Tags 内容
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Success 204 "已删除"
// @Router /api/lessons/{id} [delete]
func (c *ContentController) DeleteLesson(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.ContentService.DeleteLesson(ctx.Request.Context(), actor, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

type lessonUpload func(ctx *gin.Context, actor service.Actor, lessonID uint, fh *multipart.FileHeader) (interface{}, error)

func (c *ContentController) upload(ctx *gin.Context, fn lessonUpload) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "File is required")
		return
	}

	result, err := fn(ctx, actor, id, file)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// UploadVideo godoc
// @Summary 上传课时视频
// @Description 上传后用 ffprobe 读取时长写回课时
// @Tags 内容
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Param   file formData file true "视频文件"
// @Success 200 {object} util.Response{data=model.Lesson} "成功"
// @Failure 400 {object} util.Response "文件格式不支持"
// @Router /api/lessons/{id}/video [post]
func (c *ContentController) UploadVideo(ctx *gin.Context) {
	c.upload(ctx, func(ctx *gin.Context, actor service.Actor, id uint, fh *multipart.FileHeader) (interface{}, error) {
		return c.ContentService.UploadLessonVideo(ctx.Request.Context(), actor, id, fh)
	})
}

// UploadAttachment godoc
// @Summary 上传课时附件
// @Tags 内容
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Param   file formData file true "附件"
// @Success 200 {object} util.Response{data=model.Lesson} "成功"
// @Router /api/lessons/{id}/attachment [post]
func (c *ContentController) UploadAttachment(ctx *gin.Context) {
	c.upload(ctx, func(ctx *gin.Context, actor service.Actor, id uint, fh *multipart.FileHeader) (interface{}, error) {
		return c.ContentService.UploadAttachment(ctx.Request.Context(), actor, id, fh)
	})
}
