package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// actorFrom 受保护路由上 claims 一定存在，缺失时按未登录处理
func actorFrom(ctx *gin.Context) (service.Actor, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return service.Actor{}, false
	}
	return service.Actor{ID: claims.UserID, Role: claims.Role}, true
}

// optionalActor 公开路由上可能携带身份
func optionalActor(ctx *gin.Context) *service.Actor {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		return nil
	}
	return &service.Actor{ID: claims.UserID, Role: claims.Role}
}

func bindJSON(ctx *gin.Context, req interface{}) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		util.BadRequest(ctx, err.Error())
		return false
	}
	return true
}

// pathID 解析失败时已写回 400
func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, err := util.ParamID(ctx, name)
	if err != nil {
		util.HandleError(ctx, err)
		return 0, false
	}
	return id, true
}
