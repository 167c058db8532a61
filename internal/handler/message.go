package handler

import (
	"github.com/gin-gonic/gin"

	"sudooom.collab/internal/middleware"
	"sudooom.collab/internal/service"
	"sudooom.collab/pkg/response"
)

// MessageHandler 消息处理器
type MessageHandler struct {
	messageService *service.MessageService
}

// NewMessageHandler 创建消息处理器
func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// SendChannelMessage 发送频道消息
// POST /api/v1/channels/:id/messages
func (h *MessageHandler) SendChannelMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required,max=4000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	msg, err := h.messageService.SendChannelMessage(c.Request.Context(), userID, channelID, req.Content)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, msg)
}

// GetChannelMessages 获取频道历史消息
// GET /api/v1/channels/:id/messages
func (h *MessageHandler) GetChannelMessages(c *gin.Context) {
	userID := middleware.GetUserID(c)
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	messages, err := h.messageService.GetChannelMessages(c.Request.Context(), userID, channelID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"list": messages})
}

// DeleteChannelMessage 删除自己发送的频道消息
// DELETE /api/v1/messages/channel/:id
func (h *MessageHandler) DeleteChannelMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)
	msgID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.messageService.DeleteChannelMessage(c.Request.Context(), userID, msgID); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, nil)
}

// SendDirectMessage 发送私信
// POST /api/v1/messages/direct/:userId
func (h *MessageHandler) SendDirectMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)
	receiverID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required,max=4000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	msg, err := h.messageService.SendDirectMessage(c.Request.Context(), userID, receiverID, req.Content)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, msg)
}

// GetDirectMessages 获取与指定用户的私信记录
// GET /api/v1/messages/direct/:userId
func (h *MessageHandler) GetDirectMessages(c *gin.Context) {
	userID := middleware.GetUserID(c)
	peerID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	messages, err := h.messageService.GetDirectMessages(c.Request.Context(), userID, peerID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"list": messages})
}

// CanMessage 查询是否可以给指定用户发私信
// GET /api/v1/messages/direct/:userId/allowed
func (h *MessageHandler) CanMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)
	peerID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	allowed, err := h.messageService.CanMessageUser(c.Request.Context(), userID, peerID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"allowed": allowed})
}

// DeleteDirectMessage 删除自己发送的私信
// DELETE /api/v1/messages/direct/message/:id
func (h *MessageHandler) DeleteDirectMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)
	msgID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.messageService.DeleteDirectMessage(c.Request.Context(), userID, msgID); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, nil)
}
