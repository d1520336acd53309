package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// DetailResponse 仅包含说明文字的响应
type DetailResponse struct {
	Detail string `json:"detail"`
}

// Success 成功响应 (200)，直接返回数据本身
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Detail 返回 {"detail": msg}
func Detail(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, DetailResponse{Detail: msg})
}

// NoContent 无内容响应 (204)
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest 400 错误响应
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Msg: msg})
}

// Unauthorized 401 错误响应
func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{Code: 401, Msg: msg})
}

// Forbidden 403 错误响应
func Forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, ErrorResponse{Code: 403, Msg: msg})
}

// NotFound 404 错误响应
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Code: 404, Msg: msg})
}

// InternalServerError 500 错误响应
func InternalServerError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Msg: msg})
}

// Error 按错误类型映射状态码
func Error(c *gin.Context, err error) {
	if err == nil {
		return
	}
	switch {
	case isBadRequest(err):
		BadRequest(c, err.Error())
	case isUnauthorized(err):
		Unauthorized(c, err.Error())
	case isForbidden(err):
		Forbidden(c, err.Error())
	case isNotFound(err):
		NotFound(c, err.Error())
	default:
		InternalServerError(c, "internal server error")
	}
}
