package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PaymentController struct {
	PaymentService *service.PaymentService
}

func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{PaymentService: paymentService}
}

// Checkout godoc
// @Summary 购买课程
// @Description 免费课程直接选课；付费课程创建待支付订单并返回收银台 token 与跳转地址
// @Tags 支付
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CheckoutResult} "成功"
// @Failure 409 {object} util.Response "已选过该课程"
// @Router /api/courses/{id}/checkout [post]
func (c *PaymentController) Checkout(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	result, err := c.PaymentService.Checkout(ctx.Request.Context(), actor.ID, courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Notification godoc
// @Summary 支付网关回调
// @Description 校验 sha512 签名后更新订单状态，支付完成自动选课。重复回调幂等
// @Tags 支付
// @Accept  json
// @Produce  json
// @Param   body body service.GatewayNotification true "网关通知"
// @Success 200 {object} util.Response{data=model.Payment} "成功"
// @Failure 400 {object} util.Response "签名错误"
// @Failure 404 {object} util.Response "订单不存在"
// @Router /api/payments/notification [post]
func (c *PaymentController) Notification(ctx *gin.Context) {
	var n service.GatewayNotification
	if !bindJSON(ctx, &n) {
		return
	}

	payment, err := c.PaymentService.HandleNotification(ctx.Request.Context(), n)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, payment)
}

// ListPayments godoc
// @Summary 我的订单
// @Tags 支付
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Payment} "成功"
// @Router /api/payments [get]
func (c *PaymentController) ListPayments(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	list, err := c.PaymentService.ListPayments(ctx.Request.Context(), actor.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}
