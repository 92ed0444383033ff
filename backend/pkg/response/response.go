package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "shiftclock/backend/pkg/errors"
)

// Response 统一响应结构
// code=0 表示成功；失败时 reason 为稳定的机器可读错误码
type Response struct {
	Code    int         `json:"code"`
	Reason  string      `json:"reason,omitempty"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// Pagination 分页元数据
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PageData 分页响应数据
type PageData struct {
	List       interface{} `json:"list"`
	Pagination Pagination  `json:"pagination"`
}

// ── 成功响应 ──

// OK 200 成功响应
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 201 创建成功
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// OKPage 200 分页成功
func OKPage(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data: PageData{
			List: list,
			Pagination: Pagination{
				Page:       page,
				PageSize:   pageSize,
				Total:      total,
				TotalPages: totalPages,
			},
		},
	})
}

// ── 错误响应 ──

// Fail 按业务错误码输出错误响应
func Fail(c *gin.Context, appErr *pkgerrors.AppError) {
	c.JSON(appErr.Code.HTTPStatus(), Response{
		Code:    appErr.Code.Number(),
		Reason:  string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	})
}

// Error 通用错误响应
func Error(c *gin.Context, code pkgerrors.Code, message string) {
	Fail(c, pkgerrors.New(code, message))
}

// ── 常见快捷方式 ──

// BadRequest 400
func BadRequest(c *gin.Context, message string) {
	Error(c, pkgerrors.CodeValidation, message)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, message string) {
	Error(c, pkgerrors.CodeUnauthorized, message)
}

// Forbidden 403
func Forbidden(c *gin.Context, message string) {
	Error(c, pkgerrors.CodeForbidden, message)
}

// TooManyRequests 429
func TooManyRequests(c *gin.Context) {
	Error(c, pkgerrors.CodeRateLimited, "请求过于频繁，请稍后再试")
}

// InternalError 500
func InternalError(c *gin.Context) {
	Error(c, pkgerrors.CodeInternal, "服务器内部错误")
}
