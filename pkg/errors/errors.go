package errors

import (
	"errors"
	"fmt"
)

// AppError 应用错误类型
// 用于统一管理业务错误，包含错误码和错误消息
type AppError struct {
	Code    int    // 错误码
	Message string // 用户可见的错误消息
	Err     error  // 原始错误（可选，用于调试）
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError 创建新错误
func NewError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装原始错误
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Is 判断是否为指定错误
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

// GetCode 获取错误码，如果不是 AppError 返回默认错误码
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeServerError // 默认返回服务器错误
}

// GetMessage 获取错误消息
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "服务器内部错误"
}

// ============== 错误码定义 ==============

const (
	CodeSuccess = 0

	// 认证相关 10000-10999
	CodeUsernameExists     = 10001
	CodeInvalidCredentials = 10002
	CodeTokenInvalid       = 10003
	CodeTokenExpired       = 10004
	CodeUserDisabled       = 10005
	CodeEmailExists        = 10006
	CodeResetTokenInvalid  = 10007

	// 用户相关 11000-11999
	CodeUserNotFound  = 11001
	CodeInvalidParams = 11002

	// 频道相关 13000-13999
	CodeChannelNotFound     = 13001
	CodeAlreadyMember       = 13002
	CodeNotAMember          = 13003
	CodeInvalidInviteCode   = 13004
	CodeWrongChannelType    = 13005
	CodeCreatorCannotLeave  = 13006
	CodeCannotDemoteCreator = 13007
	CodeCannotRemoveCreator = 13008
	CodePermissionDenied    = 13009

	// 任务相关 14000-14999
	CodeTaskNotFound    = 14001
	CodeItemNotFound    = 14002
	CodeDuplicateItemID = 14003

	// 消息相关 15000-15999
	CodeCannotMessageUser = 15001
	CodeMessageNotFound   = 15002

	// 系统错误 50000-50999
	CodeServerError   = 50001
	CodeDBError       = 50002
	CodeTooManyReqest = 50003
)

// ============== 预定义错误 ==============

// 认证相关
var (
	ErrUsernameExists     = NewError(CodeUsernameExists, "用户名已存在")
	ErrInvalidCredentials = NewError(CodeInvalidCredentials, "用户名或密码错误")
	ErrTokenInvalid       = NewError(CodeTokenInvalid, "Token 无效")
	ErrTokenExpired       = NewError(CodeTokenExpired, "Token 已过期")
	ErrUserDisabled       = NewError(CodeUserDisabled, "用户已被禁用")
	ErrEmailExists        = NewError(CodeEmailExists, "邮箱已被注册")
	ErrResetTokenInvalid  = NewError(CodeResetTokenInvalid, "重置令牌无效或已过期")
)

// 用户相关
var (
	ErrUserNotFound  = NewError(CodeUserNotFound, "用户不存在")
	ErrInvalidParams = NewError(CodeInvalidParams, "参数校验失败")
)

// 频道相关
var (
	ErrChannelNotFound     = NewError(CodeChannelNotFound, "频道不存在")
	ErrAlreadyMember       = NewError(CodeAlreadyMember, "已经是频道成员")
	ErrNotAMember          = NewError(CodeNotAMember, "对方不是频道成员")
	ErrInvalidInviteCode   = NewError(CodeInvalidInviteCode, "邀请码无效")
	ErrWrongChannelType    = NewError(CodeWrongChannelType, "频道类型不匹配")
	ErrCreatorCannotLeave  = NewError(CodeCreatorCannotLeave, "创建者不能退出频道")
	ErrCannotDemoteCreator = NewError(CodeCannotDemoteCreator, "不能取消创建者的管理员身份")
	ErrCannotRemoveCreator = NewError(CodeCannotRemoveCreator, "不能移除频道创建者")
	ErrPermissionDenied    = NewError(CodePermissionDenied, "没有操作权限")
)

// 任务相关
var (
	ErrTaskNotFound    = NewError(CodeTaskNotFound, "任务不存在")
	ErrItemNotFound    = NewError(CodeItemNotFound, "购物项不存在")
	ErrDuplicateItemID = NewError(CodeDuplicateItemID, "购物项 ID 重复")
)

// 消息相关
var (
	ErrCannotMessageUser = NewError(CodeCannotMessageUser, "无法给对方发送私信")
	ErrMessageNotFound   = NewError(CodeMessageNotFound, "消息不存在")
)

// 系统相关
var (
	ErrServerError    = NewError(CodeServerError, "服务器内部错误")
	ErrDBError        = NewError(CodeDBError, "数据库错误")
	ErrTooManyRequest = NewError(CodeTooManyReqest, "请求过于频繁，请稍后再试")
)
