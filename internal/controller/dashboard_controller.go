package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	DashboardService *service.DashboardService
}

func NewDashboardController(dashboardService *service.DashboardService) *DashboardController {
	return &DashboardController{DashboardService: dashboardService}
}

// @Summary 学生仪表盘
// @Description 选课与完成情况、证书、积分等级、徽章和最近学习的课程
// @Tags 仪表盘
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.StudentDashboard}
// @Router /api/dashboard/student [get]
func (c *DashboardController) StudentDashboard(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	dashboard, err := c.DashboardService.StudentDashboard(ctx.Request.Context(), actor.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, dashboard)
}

// @Summary 教师仪表盘
// @Description 每门课程的学生数、平均进度、评分以及汇总统计
// @Tags 仪表盘
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.InstructorDashboard}
// @Router /api/dashboard/instructor [get]
func (c *DashboardController) InstructorDashboard(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	dashboard, err := c.DashboardService.InstructorDashboard(ctx.Request.Context(), actor.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, dashboard)
}

// @Summary 教师收入统计
// @Description 学生数与已完成支付的收入，按月汇总
// @Tags 仪表盘
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.InstructorStats}
// @Router /api/dashboard/instructor/stats [get]
func (c *DashboardController) InstructorStats(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	stats, err := c.DashboardService.InstructorStats(ctx.Request.Context(), actor.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}
