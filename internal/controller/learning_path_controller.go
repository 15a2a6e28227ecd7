package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type LearningPathController struct {
	Service *service.LearningPathService
}

func NewLearningPathController(svc *service.LearningPathService) *LearningPathController {
	return &LearningPathController{Service: svc}
}

// @Summary 学习路径列表
// @Description 公开路径加上自己创建的私有路径
// @Tags 学习路径
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.LearningPath}
// @Router /api/learning-paths [get]
func (c *LearningPathController) List(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	paths, err := c.Service.List(ctx.Request.Context(), actor.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, paths)
}

// @Summary 学习路径详情
// @Tags 学习路径
// @Produce json
// @Security BearerAuth
// @Param id path int true "路径ID"
// @Success 200 {object} util.Response{data=model.LearningPath}
// @Router /api/learning-paths/{id} [get]
func (c *LearningPathController) Get(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	path, err := c.Service.Get(ctx.Request.Context(), actor, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, path)
}

// @Summary 创建学习路径
// @Tags 学习路径
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.LearningPathRequest true "路径信息，课程按数组顺序排列"
// @Success 201 {object} util.Response{data=model.LearningPath}
// @Router /api/learning-paths [post]
func (c *LearningPathController) Create(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req service.LearningPathRequest
	if !bindJSON(ctx, &req) {
		return
	}

	path, err := c.Service.Create(ctx.Request.Context(), actor, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, path)
}

// @Summary 删除学习路径
// @Tags 学习路径
// @Security BearerAuth
// @Param id path int true "路径ID"
// @Success 204
// @Router /api/learning-paths/{id} [delete]
func (c *LearningPathController) Delete(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.Service.Delete(ctx.Request.Context(), actor, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// @Summary 选修整条学习路径
// @Description 已选课程与未开放课程会被跳过
// @Tags 学习路径
// @Produce json
// @Security BearerAuth
// @Param id path int true "路径ID"
// @Success 200 {object} util.Response{data=service.PathEnrollResult}
// @Router /api/learning-paths/{id}/enroll [post]
func (c *LearningPathController) Enroll(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	result, err := c.Service.EnrollPath(ctx.Request.Context(), actor, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
