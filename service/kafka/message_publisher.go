package kafka

import (
	"context"
	"encoding/json"
	"strconv"

	"TalkTime/module/message"

	"github.com/Shopify/sarama"
)

// SavedMessageEvent 落库成功后写入 Kafka 的事件
type SavedMessageEvent struct {
	MsgID      int64           `json:"msgId"`
	RoomID     int64           `json:"roomId"`
	FromUID    int64           `json:"fromUid"`
	Type       message.MsgType `json:"type"`
	Content    string          `json:"content,omitempty"`
	ReplyMsgID int64           `json:"replyMsgId,omitempty"`
	Extra      map[string]any  `json:"extra,omitempty"`
	CreateTime int64           `json:"createTime"`
	Node       string          `json:"node,omitempty"`
}

// MessagePublisher 实现 message.EventPublisher
type MessagePublisher struct {
	prod  sarama.SyncProducer
	topic string
	node  string
}

func NewMessagePublisher(prod sarama.SyncProducer, topic, node string) *MessagePublisher {
	return &MessagePublisher{prod: prod, topic: topic, node: node}
}

func (p *MessagePublisher) PublishMessage(ctx context.Context, msg *message.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(SavedMessageEvent{
		MsgID:      msg.ID,
		RoomID:     msg.RoomID,
		FromUID:    msg.FromUID,
		Type:       msg.Type,
		Content:    msg.Content,
		ReplyMsgID: msg.ReplyMsgID,
		Extra:      msg.Extra,
		CreateTime: msg.CreateTime.UnixMilli(),
		Node:       p.node,
	})
	if err != nil {
		return err
	}
	_, _, err = p.prod.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(msg.RoomID, 10)),
		Value: sarama.ByteEncoder(b),
		Headers: []sarama.RecordHeader{
			{Key: []byte("msg-type"), Value: []byte(strconv.Itoa(int(msg.Type)))},
		},
	})
	return err
}

var _ message.EventPublisher = (*MessagePublisher)(nil)
