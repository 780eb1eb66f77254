package restapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"media-transcode-service/pkg/errno"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, Response{
		Code:    errno.OK.Code,
		Message: errno.OK.Message,
		Data:    data,
	})
}

// Accepted 已受理（异步任务入队）
func Accepted(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusAccepted, Response{
		Code:    errno.OK.Code,
		Message: "Accepted",
		Data:    data,
	})
}

// Failed 失败响应，根据业务错误码映射HTTP状态。
func Failed(ctx *gin.Context, err error) {
	code, msg := errno.Decode(err)
	ctx.JSON(httpStatus(code), Response{
		Code:    code,
		Message: msg,
	})
}

func httpStatus(code int) int {
	switch {
	case code == errno.OK.Code:
		return http.StatusOK
	case code == errno.ErrNotFound.Code || code == errno.ErrVideoNotFound.Code:
		return http.StatusNotFound
	case code == errno.ErrUnauthorized.Code:
		return http.StatusUnauthorized
	case code == errno.ErrQueueFull.Code:
		return http.StatusTooManyRequests
	case code == errno.ErrInlineDisabled.Code || code == errno.ErrStorageConfig.Code:
		return http.StatusConflict
	case code >= 400 && code < 500:
		return code
	case code >= 20000:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
