package message

import (
	"context"
	"time"

	"TalkTime/tools/errs"
)

type RecallBody struct {
	MsgID int64 `json:"msgId"`
}

type RecallOptions struct {
	Window time.Duration
	Now    func() time.Time
}

// Recall 撤回：只能撤回自己在时限内发的消息
type Recall struct {
	store  Storage
	window time.Duration
	now    func() time.Time
}

func NewRecall(store Storage, opts RecallOptions) *Recall {
	if opts.Window <= 0 {
		opts.Window = 2 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Recall{store: store, window: opts.Window, now: opts.Now}
}

func (r *Recall) Type() MsgType { return TypeRecall }

func (r *Recall) Validate(ctx context.Context, d *Draft, senderID int64) (*Payload, error) {
	body, err := decodeBody[RecallBody](d)
	if err != nil {
		return nil, err
	}
	if body.MsgID == 0 {
		return nil, errs.ErrValidation.WrapMsg("msgId is required")
	}
	if err := requireMember(ctx, r.store, d.RoomID, senderID); err != nil {
		return nil, err
	}
	target, err := findInRoom(ctx, r.store, d.RoomID, body.MsgID)
	if err != nil {
		return nil, err
	}
	if target.FromUID != senderID {
		return nil, errs.ErrValidation.WrapMsg("can only recall own message", "msgId", target.ID)
	}
	if target.Status == StatusRecalled {
		return nil, errs.ErrValidation.WrapMsg("message already recalled", "msgId", target.ID)
	}
	if r.now().Sub(target.CreateTime) > r.window {
		return nil, errs.ErrValidation.WrapMsg("recall window passed", "msgId", target.ID)
	}
	return &Payload{Extra: map[string]any{
		"recallMsgId": target.ID,
		"recallUid":   senderID,
	}}, nil
}

func (r *Recall) SaveExtra(ctx context.Context, msg *ChatMessage) error {
	return r.store.MarkRecalled(ctx, recallTarget(msg), msg.FromUID, msg.CreateTime)
}

type recallView struct {
	RecallMsgID int64  `json:"recallMsgId"`
	RecallUID   int64  `json:"recallUid"`
	Text        string `json:"text"`
}

func (r *Recall) Render(msg *ChatMessage) any {
	return recallView{RecallMsgID: recallTarget(msg), RecallUID: msg.FromUID, Text: r.RenderPreview(msg)}
}

func (r *Recall) RenderReply(*ChatMessage) any { return "原消息已撤回" }

func (r *Recall) RenderPreview(*ChatMessage) string { return "撤回了一条消息" }

func recallTarget(msg *ChatMessage) int64 {
	if v, ok := msg.Extra["recallMsgId"]; ok {
		return int64(toInt(v))
	}
	return 0
}
