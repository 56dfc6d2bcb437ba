package natsx

import (
	"context"
	"encoding/json"
	"time"

	"TalkTime/logger"
	"TalkTime/service/chat"

	"go.uber.org/zap"
)

const BizPresence = "presence"

// PresenceMessage 上下线事件，供其它节点或下游服务订阅
type PresenceMessage struct {
	UID       int64  `json:"uid"`
	ConnID    string `json:"connId"`
	Device    string `json:"device,omitempty"`
	Online    bool   `json:"online"`
	Remaining int    `json:"remaining"`
	At        int64  `json:"at"`
	Node      string `json:"node"`
}

// PresencePublisher 把注册表的上下线变化发布到 NATS，失败只记日志
type PresencePublisher struct {
	prod    *NatsxProducer
	node    string
	timeout time.Duration
}

func NewPresencePublisher(c *NatsxClient, subject, node string) (*PresencePublisher, error) {
	if err := c.RegisterRoute(NatsxRoute{Biz: BizPresence, Subject: subject}); err != nil {
		return nil, err
	}
	return &PresencePublisher{prod: NewNatsxProducer(c), node: node, timeout: time.Second}, nil
}

func (p *PresencePublisher) Publish(ctx context.Context, ev chat.PresenceEvent) error {
	b, err := json.Marshal(PresenceMessage{
		UID:       ev.UserID,
		ConnID:    ev.ConnID,
		Device:    string(ev.Device),
		Online:    ev.Online,
		Remaining: ev.Remaining,
		At:        ev.At.UnixMilli(),
		Node:      p.node,
	})
	if err != nil {
		return err
	}
	return p.prod.Publish(ctx, BizPresence, b, map[string]string{"node": p.node})
}

// Listener 挂到 chat.RegistryOptions.Listener
func (p *PresencePublisher) Listener() chat.PresenceListener {
	return func(ev chat.PresenceEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.Publish(ctx, ev); err != nil {
			logger.Warn("[natsx] publish presence failed", zap.Int64("uid", ev.UserID), zap.Error(err))
		}
	}
}
