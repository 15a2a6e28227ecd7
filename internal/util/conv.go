package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParamID 读取路径参数中的 ID，非法或为 0 时返回校验错误
func ParamID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, Validationf("invalid %s", name)
	}
	return uint(id), nil
}

// Pagination 读取 page/limit 查询参数，limit 上限 100
func Pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
