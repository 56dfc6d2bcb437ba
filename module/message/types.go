package message

import (
	"encoding/json"
	"time"
)

// MsgType 消息类型
type MsgType int

const (
	TypeText   MsgType = 1
	TypeRecall MsgType = 2
	TypeImage  MsgType = 3
	TypeSystem MsgType = 4
)

// Status 消息状态
type Status int

const (
	StatusNormal   Status = 0
	StatusRecalled Status = 1
)

// Draft 客户端提交的待发送消息，Body 由对应策略解析
type Draft struct {
	RoomID int64           `json:"roomId"`
	Type   MsgType         `json:"type"`
	Body   json.RawMessage `json:"body"`
}

// ChatMessage 持久化的消息记录
type ChatMessage struct {
	ID         int64          `json:"id" bson:"_id"`
	RoomID     int64          `json:"roomId" bson:"room_id"`
	FromUID    int64          `json:"fromUid" bson:"from_uid"`
	Type       MsgType        `json:"type" bson:"type"`
	Content    string         `json:"content,omitempty" bson:"content,omitempty"`
	ReplyMsgID int64          `json:"replyMsgId,omitempty" bson:"reply_msg_id,omitempty"`
	GapCount   int            `json:"gapCount,omitempty" bson:"gap_count,omitempty"`
	Extra      map[string]any `json:"extra,omitempty" bson:"extra,omitempty"`
	Status     Status         `json:"status" bson:"status"`
	CreateTime time.Time      `json:"createTime" bson:"create_time"`
	UpdateTime time.Time      `json:"updateTime" bson:"update_time"`
}

// Payload 策略校验通过后产出的内容部分，由分发器补齐其余字段
type Payload struct {
	Content    string
	ReplyMsgID int64
	GapCount   int
	Extra      map[string]any
}

// MessageView 下发给客户端的完整消息
type MessageView struct {
	ID       int64      `json:"id"`
	RoomID   int64      `json:"roomId"`
	FromUID  int64      `json:"fromUid"`
	Type     MsgType    `json:"type"`
	Body     any        `json:"body"`
	Reply    *ReplyView `json:"reply,omitempty"`
	SendTime int64      `json:"sendTime"`
}

// ReplyView 被回复消息的展示形式
type ReplyView struct {
	ID          int64   `json:"id"`
	FromUID     int64   `json:"fromUid"`
	Type        MsgType `json:"type"`
	Body        any     `json:"body"`
	CanCallback bool    `json:"canCallback"`
	GapCount    int     `json:"gapCount"`
}

// Result 一次发送的产物：持久化记录与三种展示形式
type Result struct {
	Message *ChatMessage
	Full    *MessageView
	Reply   *ReplyView
	Preview string
}
