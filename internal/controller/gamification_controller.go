package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GamificationController 积分排行与徽章
type GamificationController struct {
	GamificationService *service.GamificationService
}

func NewGamificationController(gamificationService *service.GamificationService) *GamificationController {
	return &GamificationController{GamificationService: gamificationService}
}

// @Summary 积分排行榜
// @Tags 激励
// @Produce json
// @Security BearerAuth
// @Param limit query int false "条数" default(10)
// @Success 200 {object} util.Response{data=[]service.LeaderboardEntry}
// @Router /api/leaderboard [get]
func (c *GamificationController) Leaderboard(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	entries, err := c.GamificationService.Leaderboard(ctx.Request.Context(), limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

// @Summary 徽章列表
// @Tags 激励
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Badge}
// @Router /api/badges [get]
func (c *GamificationController) ListBadges(ctx *gin.Context) {
	badges, err := c.GamificationService.ListBadges(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, badges)
}

// @Summary 我的徽章
// @Tags 激励
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.UserBadge}
// @Router /api/badges/mine [get]
func (c *GamificationController) MyBadges(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	badges, err := c.GamificationService.UserBadges(ctx.Request.Context(), actor.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, badges)
}

// @Summary 创建徽章(管理员)
// @Description criteria 形如 {"lessons_completed": 10}
// @Tags 激励
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.BadgeRequest true "徽章"
// @Success 201 {object} util.Response{data=model.Badge}
// @Router /api/admin/badges [post]
func (c *GamificationController) CreateBadge(ctx *gin.Context) {
	var req service.BadgeRequest
	if !bindJSON(ctx, &req) {
		return
	}

	badge, err := c.GamificationService.CreateBadge(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, badge)
}

// @Summary 删除徽章(管理员)
// @Tags 激励
// @Security BearerAuth
// @Param id path int true "徽章ID"
// @Success 204
// @Router /api/admin/badges/{id} [delete]
func (c *GamificationController) DeleteBadge(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.GamificationService.DeleteBadge(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
