package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"sudooom.collab/internal/middleware"
	"sudooom.collab/internal/model"
	"sudooom.collab/internal/service"
	"sudooom.collab/pkg/response"
)

// UserHandler 用户处理器
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler 创建用户处理器
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetMe 获取当前用户信息
// GET /api/v1/users/me
func (h *UserHandler) GetMe(c *gin.Context) {
	userID := middleware.GetUserID(c)

	user, err := h.userService.GetByID(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, user)
}

// UpdateProfile 更新当前用户资料
// PUT /api/v1/users/me
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	if err := h.userService.UpdateProfile(c.Request.Context(), userID, &req); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, nil)
}

// GetUser 获取指定用户信息
// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	targetID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), targetID)
	if err != nil {
		fail(c, err)
		return
	}

	// 查看他人资料只返回公开字段
	response.Success(c, user.Profile())
}

// Search 按用户名/昵称搜索用户
// GET /api/v1/users/search?keyword=xx&page=1&page_size=20
func (h *UserHandler) Search(c *gin.Context) {
	keyword := c.Query("keyword")
	if keyword == "" {
		response.Error(c, response.CodeInvalidParams)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	users, err := h.userService.Search(c.Request.Context(), keyword, page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}

	profiles := make([]*model.UserProfile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, user.Profile())
	}

	response.Success(c, gin.H{"list": profiles})
}
