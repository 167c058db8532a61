package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "sudooom.collab/pkg/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// 错误码常量（使用 pkg/errors 包的定义）
const (
	CodeSuccess = appErrors.CodeSuccess

	// 认证相关 10000-10999
	CodeUsernameExists     = appErrors.CodeUsernameExists
	CodeInvalidCredentials = appErrors.CodeInvalidCredentials
	CodeTokenInvalid       = appErrors.CodeTokenInvalid
	CodeTokenExpired       = appErrors.CodeTokenExpired
	CodeUserDisabled       = appErrors.CodeUserDisabled
	CodeEmailExists        = appErrors.CodeEmailExists
	CodeResetTokenInvalid  = appErrors.CodeResetTokenInvalid

	// 用户相关 11000-11999
	CodeUserNotFound  = appErrors.CodeUserNotFound
	CodeInvalidParams = appErrors.CodeInvalidParams

	// 频道相关 13000-13999
	CodeChannelNotFound     = appErrors.CodeChannelNotFound
	CodeAlreadyMember       = appErrors.CodeAlreadyMember
	CodeNotAMember          = appErrors.CodeNotAMember
	CodeInvalidInviteCode   = appErrors.CodeInvalidInviteCode
	CodeWrongChannelType    = appErrors.CodeWrongChannelType
	CodeCreatorCannotLeave  = appErrors.CodeCreatorCannotLeave
	CodeCannotDemoteCreator = appErrors.CodeCannotDemoteCreator
	CodeCannotRemoveCreator = appErrors.CodeCannotRemoveCreator
	CodePermissionDenied    = appErrors.CodePermissionDenied

	// 任务相关 14000-14999
	CodeTaskNotFound    = appErrors.CodeTaskNotFound
	CodeItemNotFound    = appErrors.CodeItemNotFound
	CodeDuplicateItemID = appErrors.CodeDuplicateItemID

	// 消息相关 15000-15999
	CodeCannotMessageUser = appErrors.CodeCannotMessageUser
	CodeMessageNotFound   = appErrors.CodeMessageNotFound

	// 系统错误 50000-50999
	CodeServerError = appErrors.CodeServerError
	CodeDBError     = appErrors.CodeDBError
)

// 错误信息
var codeMessages = map[int]string{
	CodeSuccess:             "success",
	CodeUsernameExists:      "用户名已存在",
	CodeInvalidCredentials:  "用户名或密码错误",
	CodeTokenInvalid:        "Token 无效",
	CodeTokenExpired:        "Token 已过期",
	CodeUserDisabled:        "用户已被禁用",
	CodeEmailExists:         "邮箱已被注册",
	CodeResetTokenInvalid:   "重置令牌无效或已过期",
	CodeUserNotFound:        "用户不存在",
	CodeInvalidParams:       "参数校验失败",
	CodeChannelNotFound:     "频道不存在",
	CodeAlreadyMember:       "已经是频道成员",
	CodeNotAMember:          "对方不是频道成员",
	CodeInvalidInviteCode:   "邀请码无效",
	CodeWrongChannelType:    "频道类型不匹配",
	CodeCreatorCannotLeave:  "创建者不能退出频道",
	CodeCannotDemoteCreator: "不能取消创建者的管理员身份",
	CodeCannotRemoveCreator: "不能移除频道创建者",
	CodePermissionDenied:    "没有操作权限",
	CodeTaskNotFound:        "任务不存在",
	CodeItemNotFound:        "购物项不存在",
	CodeDuplicateItemID:     "购物项 ID 重复",
	CodeCannotMessageUser:   "无法给对方发送私信",
	CodeMessageNotFound:     "消息不存在",
	CodeServerError:         "服务器内部错误",
	CodeDBError:             "数据库错误",
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int) {
	message := codeMessages[code]
	if message == "" {
		message = "unknown error"
	}
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// ErrorWithMsg 自定义错误消息
func ErrorWithMsg(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// ErrorFromAppError 从 AppError 生成错误响应
func ErrorFromAppError(c *gin.Context, err error) {
	code := appErrors.GetCode(err)
	message := appErrors.GetMessage(err)
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// Unauthorized 未认证
func Unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, Response{
		Code:    CodeTokenInvalid,
		Message: codeMessages[CodeTokenInvalid],
		Data:    nil,
	})
}

// TooManyRequests 请求过多
func TooManyRequests(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, Response{
		Code:    appErrors.CodeTooManyReqest,
		Message: "请求过于频繁，请稍后再试",
		Data:    nil,
	})
}
