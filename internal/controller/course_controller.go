package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// ListCourses godoc
// @Summary 课程目录
// @Description 只返回已发布课程，支持分类、难度、关键词与精选筛选
// @Tags 课程
// @Produce  json
// @Param   category query int false "分类ID"
// @Param   difficulty query string false "难度" Enums(beginner, intermediate, advanced)
// @Param   search query string false "关键词"
// @Param   featured query bool false "只看精选"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse{list=[]model.Course}} "成功"
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	var q service.CourseQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	q.Page, q.Limit = util.Pagination(ctx)

	courses, total, err := c.CourseService.ListCourses(ctx.Request.Context(), q)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: courses, Total: total, Page: q.Page, Limit: q.Limit})
}

// GetCourse godoc
// @Summary 课程详情
// @Description 包含章节与课时；未发布课程仅对课程教师和管理员可见
// @Tags 课程
// @Produce  json
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	course, err := c.CourseService.GetCourse(ctx.Request.Context(), optionalActor(ctx), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// ListMyCourses godoc
// @Summary 我开设的课程
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Course} "成功"
// @Failure 403 {object} util.Response "仅教师可用"
// @Router /api/instructor/courses [get]
func (c *CourseController) ListMyCourses(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	courses, err := c.CourseService.ListInstructorCourses(ctx.Request.Context(), actor)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// CreateCourse godoc
// @Summary 创建课程
// @Description tags/requirements/learning_outcomes 接受 JSON 数组或数组的 JSON 字符串
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CourseRequest true "课程信息"
// @Success 201 {object} util.Response{data=model.Course} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "slug 冲突"
// @Router /api/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req service.CourseRequest
	if !bindJSON(ctx, &req) {
		return
	}

	course, err := c.CourseService.CreateCourse(ctx.Request.Context(), actor, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// UpdateCourse godoc
// @Summary 更新课程
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   body body service.CourseRequest true "课程信息"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 403 {object} util.Response "非课程教师"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id} [put]
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.CourseRequest
	if !bindJSON(ctx, &req) {
		return
	}

	course, err := c.CourseService.UpdateCourse(ctx.Request.Context(), actor, id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// DeleteCourse godoc
// @Summary 删除课程
// @Tags 课程
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 204 "已删除"
// @Failure 403 {object} util.Response "非课程教师"
// @Router /api/courses/{id} [delete]
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.CourseService.DeleteCourse(ctx.Request.Context(), actor, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// UploadThumbnail godoc
// @Summary 上传课程封面
// @Tags 课程
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   file formData file true "封面图片"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Router /api/courses/{id}/thumbnail [post]
func (c *CourseController) UploadThumbnail(ctx *gin.Context) {
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

	course, err := c.CourseService.UploadThumbnail(ctx.Request.Context(), actor, id, file)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// ListCategories godoc
// @Summary 分类列表
// @Tags 分类
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.Category} "成功"
// @Router /api/categories [get]
func (c *CourseController) ListCategories(ctx *gin.Context) {
	categories, err := c.CourseService.ListCategories(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, categories)
}

// CreateCategory godoc
// @Summary 创建分类(管理员)
// @Tags 分类
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CategoryRequest true "分类信息"
// @Success 201 {object} util.Response{data=model.Category} "创建成功"
// @Failure 409 {object} util.Response "分类已存在"
// @Router /api/admin/categories [post]
func (c *CourseController) CreateCategory(ctx *gin.Context) {
	var req service.CategoryRequest
	if !bindJSON(ctx, &req) {
		return
	}

	category, err := c.CourseService.CreateCategory(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, category)
}

// UpdateCategory godoc
// @Summary 更新分类(管理员)
// @Tags 分类
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "分类ID"
// @Param   body body service.CategoryRequest true "分类信息"
// @Success 200 {object} util.Response{data=model.Category} "成功"
// @Router /api/admin/categories/{id} [put]
func (c *CourseController) UpdateCategory(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.CategoryRequest
	if !bindJSON(ctx, &req) {
		return
	}

	category, err := c.CourseService.UpdateCategory(ctx.Request.Context(), id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, category)
}

// DeleteCategory godoc
// @Summary 删除分类(管理员)
// @Tags 分类
// @Security ApiKeyAuth
// @Param   id path int true "分类ID"
// @Success 204 "已删除"
// @Router /api/admin/categories/{id} [delete]
func (c *CourseController) DeleteCategory(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.CourseService.DeleteCategory(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
