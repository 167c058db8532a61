package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	appErrors "sudooom.collab/pkg/errors"
	"sudooom.collab/pkg/response"
)

// fail 统一错误响应：业务错误按错误码返回，其他按服务器错误处理
func fail(c *gin.Context, err error) {
	var appErr *appErrors.AppError
	if errors.As(err, &appErr) {
		response.ErrorFromAppError(c, appErr)
		return
	}
	response.Error(c, response.CodeServerError)
}

// parseIDParam 解析路径中的 ID 参数
func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, response.CodeInvalidParams)
		return 0, false
	}
	return id, true
}
