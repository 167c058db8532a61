package realtime

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Event 推送事件信封
type Event struct {
	Type      string          `json:"type"`
	ChannelID int64           `json:"channelId,string,omitempty"`
	ActorID   int64           `json:"actorId,string"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// NewEvent 创建事件，payload 会被序列化为 JSON
func NewEvent(eventType string, channelID, actorID int64, payload interface{}) *Event {
	ev := &Event{
		Type:      eventType,
		ChannelID: channelID,
		ActorID:   actorID,
		Timestamp: time.Now().UnixMilli(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err == nil {
			ev.Payload = data
		}
	}
	return ev
}

// Publisher 事件发布器
type Publisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// NewPublisher 创建事件发布器
func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{
		nc:     nc,
		logger: slog.Default(),
	}
}

// PublishToChannel 推送事件到频道 Subject，该频道的所有订阅连接都会收到
func (p *Publisher) PublishToChannel(channelID int64, event *Event) error {
	return p.publish(BuildChannelSubject(channelID), event)
}

// PublishToUser 推送事件到用户 Subject
func (p *Publisher) PublishToUser(userID int64, event *Event) error {
	return p.publish(BuildUserSubject(userID), event)
}

func (p *Publisher) publish(subject string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event", "type", event.Type, "error", err)
		return err
	}

	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Error("Failed to publish event", "subject", subject, "type", event.Type, "error", err)
		return err
	}

	p.logger.Debug("Published event", "subject", subject, "type", event.Type)
	return nil
}
