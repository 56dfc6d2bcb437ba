package message

import (
	"context"
	"encoding/json"
	"unicode/utf8"

	"TalkTime/tools/errs"
)

// Strategy 单一消息类型的校验、渲染与附加数据落库
type Strategy interface {
	Type() MsgType
	// Validate 校验草稿并产出内容；不得修改任何状态
	Validate(ctx context.Context, d *Draft, senderID int64) (*Payload, error)
	// SaveExtra 在主记录落库后调用，失败不回滚
	SaveExtra(ctx context.Context, msg *ChatMessage) error
	Render(msg *ChatMessage) any
	RenderReply(msg *ChatMessage) any
	RenderPreview(msg *ChatMessage) string
}

func decodeBody[T any](d *Draft) (*T, error) {
	out := new(T)
	if len(d.Body) == 0 {
		return nil, errs.ErrValidation.WrapMsg("empty body")
	}
	if err := json.Unmarshal(d.Body, out); err != nil {
		return nil, errs.ErrValidation.WrapMsg("malformed body", "err", err)
	}
	return out, nil
}

func requireMember(ctx context.Context, store MemberStore, roomID, uid int64) error {
	ok, err := store.IsMember(ctx, roomID, uid)
	if err != nil {
		return errs.ErrInternal.WrapMsg("membership lookup failed", "roomId", roomID, "err", err)
	}
	if !ok {
		return errs.ErrValidation.WrapMsg("sender is not a room member", "roomId", roomID, "uid", uid)
	}
	return nil
}

// findInRoom 取同房间内的目标消息，不存在返回校验错误
func findInRoom(ctx context.Context, store MessageStore, roomID, id int64) (*ChatMessage, error) {
	target, err := store.FindByID(ctx, id)
	if err != nil {
		return nil, errs.ErrInternal.WrapMsg("message lookup failed", "msgId", id, "err", err)
	}
	if target == nil || target.RoomID != roomID {
		return nil, errs.ErrValidation.WrapMsg("target message not found", "msgId", id)
	}
	return target, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
