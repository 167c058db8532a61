package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"sudooom.collab/internal/middleware"
	"sudooom.collab/internal/service"
	"sudooom.collab/pkg/response"
)

// ConversationHandler 会话处理器
type ConversationHandler struct {
	conversationService *service.ConversationService
}

// NewConversationHandler 创建会话处理器
func NewConversationHandler(conversationService *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

// List 获取会话列表（按最近更新排序）
// GET /api/v1/conversations?offset=0&limit=50
func (h *ConversationHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)

	offset, _ := strconv.ParseInt(c.DefaultQuery("offset", "0"), 10, 64)
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	conversations, err := h.conversationService.GetUserConversations(c.Request.Context(), userID, offset, limit)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"list": conversations})
}

// UnreadCount 获取总未读数
// GET /api/v1/conversations/unread
func (h *ConversationHandler) UnreadCount(c *gin.Context) {
	userID := middleware.GetUserID(c)

	total, err := h.conversationService.GetTotalUnreadCount(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"total": total})
}

// MarkRead 标记会话已读
// POST /api/v1/conversations/read
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req struct {
		PeerID        int64 `json:"peer_id,string"`
		ChannelID     int64 `json:"channel_id,string"`
		LastReadMsgID int64 `json:"last_read_msg_id,string"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}
	if (req.PeerID == 0) == (req.ChannelID == 0) {
		response.Error(c, response.CodeInvalidParams)
		return
	}

	if err := h.conversationService.MarkRead(c.Request.Context(), userID, req.PeerID, req.ChannelID, req.LastReadMsgID); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, nil)
}
