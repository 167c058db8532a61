package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
)

// Hub 单个连接的订阅集合。
// 固定订阅用户自身的 Subject，频道订阅按加入的频道集合动态增减：
// 成员集合变化时调用 SetChannels，只对差集做订阅/退订。
// Close 同步释放所有订阅，之后不会再有事件进入 Events 通道。
type Hub struct {
	nc     *nats.Conn
	userID int64
	logger *slog.Logger

	mu       sync.Mutex
	closed   bool
	userSub  *nats.Subscription
	chanSubs map[int64]*nats.Subscription // channelID -> subscription
	events   chan *Event
}

// HubBufferSize 事件缓冲区大小，写满时丢弃最旧之后的事件
const HubBufferSize = 256

// NewHub 创建连接订阅集合并订阅用户 Subject
func NewHub(nc *nats.Conn, userID int64) (*Hub, error) {
	h := &Hub{
		nc:       nc,
		userID:   userID,
		logger:   slog.Default(),
		chanSubs: make(map[int64]*nats.Subscription),
		events:   make(chan *Event, HubBufferSize),
	}

	sub, err := nc.Subscribe(BuildUserSubject(userID), h.handleMsg)
	if err != nil {
		return nil, err
	}
	h.userSub = sub
	return h, nil
}

// Events 事件通道，连接关闭后该通道会被关闭
func (h *Hub) Events() <-chan *Event {
	return h.events
}

// SetChannels 重设订阅的频道集合，只增减发生变化的订阅
func (h *Hub) SetChannels(channelIDs []int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	want := make(map[int64]bool, len(channelIDs))
	for _, id := range channelIDs {
		want[id] = true
	}

	// 退订已离开的频道
	for id, sub := range h.chanSubs {
		if !want[id] {
			if err := sub.Unsubscribe(); err != nil {
				h.logger.Warn("Failed to unsubscribe channel", "channelId", id, "error", err)
			}
			delete(h.chanSubs, id)
		}
	}

	// 订阅新加入的频道
	for id := range want {
		if _, ok := h.chanSubs[id]; ok {
			continue
		}
		sub, err := h.nc.Subscribe(BuildChannelSubject(id), h.handleMsg)
		if err != nil {
			return err
		}
		h.chanSubs[id] = sub
	}

	return nil
}

// AddChannel 订阅单个频道
func (h *Hub) AddChannel(channelID int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	if _, ok := h.chanSubs[channelID]; ok {
		return nil
	}

	sub, err := h.nc.Subscribe(BuildChannelSubject(channelID), h.handleMsg)
	if err != nil {
		return err
	}
	h.chanSubs[channelID] = sub
	return nil
}

// RemoveChannel 退订单个频道
func (h *Hub) RemoveChannel(channelID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.chanSubs[channelID]; ok {
		if err := sub.Unsubscribe(); err != nil {
			h.logger.Warn("Failed to unsubscribe channel", "channelId", channelID, "error", err)
		}
		delete(h.chanSubs, channelID)
	}
}

// Close 同步释放所有订阅并关闭事件通道
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	if h.userSub != nil {
		_ = h.userSub.Unsubscribe()
	}
	for id, sub := range h.chanSubs {
		_ = sub.Unsubscribe()
		delete(h.chanSubs, id)
	}
	close(h.events)
}

// handleMsg NATS 回调，解码后投递到事件通道
func (h *Hub) handleMsg(msg *nats.Msg) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		h.logger.Warn("Failed to unmarshal event", "subject", msg.Subject, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	select {
	case h.events <- &event:
	default:
		// 消费端跟不上时丢弃，避免阻塞 NATS 回调
		h.logger.Warn("Event buffer full, dropping event", "userId", h.userID, "type", event.Type)
	}
}
