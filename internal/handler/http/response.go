package http

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

func SuccessResponse(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}

// currentUserID 从 gin 上下文取认证中间件写入的用户 ID。
func currentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("userID")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// parseUintParam 解析路径参数为 uint。
func parseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
