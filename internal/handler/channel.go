package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"sudooom.collab/internal/middleware"
	"sudooom.collab/internal/service"
	"sudooom.collab/pkg/response"
)

// ChannelHandler 频道处理器
type ChannelHandler struct {
	channelService      *service.ChannelService
	conversationService *service.ConversationService
}

// NewChannelHandler 创建频道处理器
func NewChannelHandler(channelService *service.ChannelService, conversationService *service.ConversationService) *ChannelHandler {
	return &ChannelHandler{
		channelService:      channelService,
		conversationService: conversationService,
	}
}

// Create 创建频道
// POST /api/v1/channels
func (h *ChannelHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req service.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	channel, err := h.channelService.CreateChannel(c.Request.Context(), userID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{
		"channel":     channel,
		"invite_code": channel.InviteCode,
	})
}

// List 获取当前用户加入的频道
// GET /api/v1/channels
func (h *ChannelHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)

	channels, err := h.channelService.GetUserChannels(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"list": channels})
}

// ListPublic 获取公开频道列表
// GET /api/v1/channels/public?page=1&page_size=20
func (h *ChannelHandler) ListPublic(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	channels, err := h.channelService.GetPublicChannels(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"list": channels})
}

// Get 获取频道详情，管理员额外返回邀请码
// GET /api/v1/channels/:id
func (h *ChannelHandler) Get(c *gin.Context) {
	userID := middleware.GetUserID(c)
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	channel, inviteCode, err := h.channelService.GetChannel(c.Request.Context(), userID, channelID)
	if err != nil {
		fail(c, err)
		return
	}

	result := gin.H{"channel": channel}
	if inviteCode != "" {
		result["invite_code"] = inviteCode
	}
	response.Success(c, result)
}

// Update 更新频道信息
// PUT /api/v1/channels/:id
func (h *ChannelHandler) Update(c *gin.Context) {
	userID := middleware.GetUserID(c)
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.UpdateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	channel, err := h.channelService.UpdateChannel(c.Request.Context(), userID, channelID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, channel)
}

// Delete 删除频道
// DELETE /api/v1/channels/:id
func (h *ChannelHandler) Delete(c *gin.Context) {
	userID := middleware.GetUserID(c)
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	// 删除前先取成员快照，删除成功后清理各成员的频道会话
	members, _ := h.channelService.GetMembers(c.Request.Context(), userID, channelID)

	if err := h.channelService.DeleteChannel(c.Request.Context(), userID, channelID); err != nil {
		fail(c, err)
		return
	}

	for _, m := range members {
		_ = h.conversationService.RemoveChannelConversation(c.Request.Context(), m.UserID, channelID)
	}

	response.Success(c, nil)
}

// Join 加入公开频道
// POST /api/v1/channels/:id/join
func (h *ChannelHandler) Join(c *gin.Context) {
	userID := middleware.GetUserID(c)
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.channelService.JoinChannel(c.Request.Context(), userID, channelID); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, nil)
}

// JoinByInvite 通过邀请码加入私有频道
// POST /api/v1/channels/join
func (h *ChannelHandler) JoinByInvite(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req struct {
		InviteCode string `json:"invite_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	channel, err := h.channelService.JoinChannelByInviteCode(c.Request.Context(), userID, req.InviteCode)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, channel)
}

// Leave 退出频道
// POST /api/v1/channels/:id/leave
func (h *ChannelHandler) Leave(c *gin.Context) {
	userID := middleware.GetUserID(c)
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.channelService.LeaveChannel(c.Request.Context(), userID, channelID); err != nil {
		fail(c, err)
		return
	}

	// 退出后清理该频道的会话，失败不影响退出结果
	_ = h.conversationService.RemoveChannelConversation(c.Request.Context(), userID, channelID)

	response.Success(c, nil)
}

// GetMembers 获取频道成员列表
// GET /api/v1/channels/:id/members
func (h *ChannelHandler) GetMembers(c *gin.Context) {
	userID := middleware.GetUserID(c)
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	members, err := h.channelService.GetMembers(c.Request.Context(), userID, channelID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"list": members})
}

// Promote 提升成员为管理员
// POST /api/v1/channels/:id/members/:userId/promote
func (h *ChannelHandler) Promote(c *gin.Context) {
	actorID := middleware.GetUserID(c)
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	targetID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	if err := h.channelService.PromoteToAdmin(c.Request.Context(), actorID, channelID, targetID); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, nil)
}

// Demote 取消成员的管理员身份
// POST /api/v1/channels/:id/members/:userId/demote
func (h *ChannelHandler) Demote(c *gin.Context) {
	actorID := middleware.GetUserID(c)
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	targetID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	if err := h.channelService.DemoteFromAdmin(c.Request.Context(), actorID, channelID, targetID); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, nil)
}

// RemoveMember 移除频道成员
// DELETE /api/v1/channels/:id/members/:userId
func (h *ChannelHandler) RemoveMember(c *gin.Context) {
	actorID := middleware.GetUserID(c)
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	targetID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	if err := h.channelService.RemoveMember(c.Request.Context(), actorID, channelID, targetID); err != nil {
		fail(c, err)
		return
	}

	_ = h.conversationService.RemoveChannelConversation(c.Request.Context(), targetID, channelID)

	response.Success(c, nil)
}

// GenerateInviteCode 重新生成邀请码，旧码立即失效
// POST /api/v1/channels/:id/invite-code
func (h *ChannelHandler) GenerateInviteCode(c *gin.Context) {
	actorID := middleware.GetUserID(c)
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	code, err := h.channelService.GenerateInviteCode(c.Request.Context(), actorID, channelID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"invite_code": code})
}
