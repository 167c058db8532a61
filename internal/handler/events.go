package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"

	"sudooom.collab/internal/middleware"
	"sudooom.collab/internal/realtime"
	"sudooom.collab/internal/service"
	"sudooom.collab/pkg/response"
)

// 心跳间隔，保持代理和浏览器不断开长连接
const heartbeatInterval = 25 * time.Second

// EventHandler 实时事件处理器（SSE）
type EventHandler struct {
	nc             *nats.Conn
	channelService *service.ChannelService
	logger         *slog.Logger
}

// NewEventHandler 创建实时事件处理器
func NewEventHandler(nc *nats.Conn, channelService *service.ChannelService) *EventHandler {
	return &EventHandler{
		nc:             nc,
		channelService: channelService,
		logger:         slog.Default(),
	}
}

// Stream SSE 事件流
// 订阅用户自身 Subject 和已加入的全部频道 Subject，连接断开时退订
// GET /api/v1/events
func (h *EventHandler) Stream(c *gin.Context) {
	userID := middleware.GetUserID(c)

	channelIDs, err := h.channelService.GetUserChannelIDs(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	hub, err := realtime.NewHub(h.nc, userID)
	if err != nil {
		h.logger.Error("Failed to create event hub", "userId", userID, "error", err)
		response.Error(c, response.CodeServerError)
		return
	}
	defer hub.Close()

	if err := hub.SetChannels(channelIDs); err != nil {
		h.logger.Error("Failed to subscribe channels", "userId", userID, "error", err)
		response.Error(c, response.CodeServerError)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-hub.Events():
			if !ok {
				return false
			}
			// 加入/退出频道后事件集合会变化，刷新订阅
			if event.Type == realtime.EventMemberJoined || event.Type == realtime.EventMemberLeft ||
				event.Type == realtime.EventMemberRemoved || event.Type == realtime.EventChannelDeleted {
				h.refreshSubscriptions(c, hub, userID)
			}
			data, err := json.Marshal(event)
			if err != nil {
				return true
			}
			c.SSEvent(event.Type, string(data))
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().UnixMilli())
			return true
		}
	})
}

func (h *EventHandler) refreshSubscriptions(c *gin.Context, hub *realtime.Hub, userID int64) {
	channelIDs, err := h.channelService.GetUserChannelIDs(c.Request.Context(), userID)
	if err != nil {
		h.logger.Warn("Failed to refresh channel subscriptions", "userId", userID, "error", err)
		return
	}
	if err := hub.SetChannels(channelIDs); err != nil {
		h.logger.Warn("Failed to update channel subscriptions", "userId", userID, "error", err)
	}
}
