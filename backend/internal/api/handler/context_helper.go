package handler

import (
	"github.com/gin-gonic/gin"

	pkgerrors "shiftclock/backend/pkg/errors"
	"shiftclock/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, "未认证")
		return "", false
	}
	return s, true
}

// orgAndActor 读取路径中的组织 ID 与当前用户
func orgAndActor(c *gin.Context) (orgID, actorID string, ok bool) {
	actorID, ok = MustGetUserID(c)
	if !ok {
		return "", "", false
	}
	orgID = c.Param("orgId")
	if orgID == "" {
		response.BadRequest(c, "组织ID不能为空")
		return "", "", false
	}
	return orgID, actorID, true
}

// requireParam 读取必填路径参数
func requireParam(c *gin.Context, name, label string) (string, bool) {
	v := c.Param(name)
	if v == "" {
		response.BadRequest(c, label+"不能为空")
		return "", false
	}
	return v, true
}

// handleError 业务错误按错误码输出，其余一律 500
func handleError(c *gin.Context, err error) {
	if appErr, ok := pkgerrors.As(err); ok {
		response.Fail(c, appErr)
		return
	}
	_ = c.Error(err)
	response.InternalError(c)
}
