package handler

import (
	"github.com/gin-gonic/gin"

	"sudooom.collab/internal/middleware"
	"sudooom.collab/internal/service"
	appErrors "sudooom.collab/pkg/errors"
	"sudooom.collab/pkg/response"
	"sudooom.collab/pkg/snowflake"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register 用户注册
// @Summary      用户注册
// @Description  创建新用户账号
// @Tags         认证
// @Accept       json
// @Produce      json
// @Param        request body service.RegisterRequest true "注册信息"
// @Success      200  {object}  response.Response{data=object{user_id=string,username=string,nickname=string}}
// @Failure      200  {object}  response.Response
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{
		"user_id":  snowflake.Int64ToString(user.ID),
		"username": user.Username,
		"nickname": user.Nickname,
	})
}

// Login 用户登录
// @Summary      用户登录
// @Description  用户登录获取 Token
// @Tags         认证
// @Accept       json
// @Produce      json
// @Param        request body service.LoginRequest true "登录信息"
// @Success      200  {object}  response.Response{data=service.LoginResponse}
// @Failure      200  {object}  response.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, resp)
}

// Logout 用户登出
// @Summary      用户登出
// @Description  用户登出，Token 失效
// @Tags         认证
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID := middleware.GetUserID(c)
	platform := middleware.GetPlatform(c)
	accessToken := middleware.GetAccessToken(c)

	if err := h.authService.Logout(c.Request.Context(), userID, platform, accessToken); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, nil)
}

// RefreshToken 刷新 Token
// @Summary      刷新 Token
// @Description  使用 refreshToken 换取新的 Token 对
// @Tags         认证
// @Accept       json
// @Produce      json
// @Param        request body object{refresh_token=string} true "刷新令牌"
// @Success      200  {object}  response.Response{data=service.LoginResponse}
// @Failure      200  {object}  response.Response
// @Router       /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	resp, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, resp)
}

// RequestPasswordReset 申请密码重置
// POST /api/v1/auth/password/forgot
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	// 结果不区分邮箱是否存在，避免账号探测
	err := h.authService.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil && !appErrors.Is(err, appErrors.ErrUserNotFound) {
		fail(c, err)
		return
	}

	response.Success(c, nil)
}

// ResetPassword 重置密码
// POST /api/v1/auth/password/reset
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=6,max=50"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, nil)
}
