package message

import (
	"context"
	"time"
)

// MessageStore 消息存储，FindByID 未找到返回 (nil, nil)
type MessageStore interface {
	Save(ctx context.Context, msg *ChatMessage) error
	FindByID(ctx context.Context, id int64) (*ChatMessage, error)
	// CountAfter 房间内 id 之后的消息条数
	CountAfter(ctx context.Context, roomID, afterID int64) (int, error)
	SaveExtra(ctx context.Context, id int64, extra map[string]any) error
	MarkRecalled(ctx context.Context, id, byUID int64, at time.Time) error
}

// MemberStore 群成员关系
type MemberStore interface {
	IsMember(ctx context.Context, roomID, userID int64) (bool, error)
	MemberIDs(ctx context.Context, roomID int64) ([]int64, error)
}

type Storage interface {
	MessageStore
	MemberStore
}

// EventPublisher 消息落库后的旁路通知
type EventPublisher interface {
	PublishMessage(ctx context.Context, msg *ChatMessage) error
}

type composite struct {
	MessageStore
	MemberStore
}

// Compose 消息与成员分属不同存储时拼成一个 Storage
func Compose(ms MessageStore, mb MemberStore) Storage {
	return composite{MessageStore: ms, MemberStore: mb}
}
