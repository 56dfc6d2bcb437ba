package message

import (
	"context"
	"strings"
	"unicode/utf8"

	"TalkTime/tools/errs"
)

const previewLen = 30

type TextBody struct {
	Content    string `json:"content"`
	ReplyMsgID int64  `json:"replyMsgId,omitempty"`
}

type TextOptions struct {
	MaxLen      int
	BannedWords []string
}

// Text 文本消息，支持回复
type Text struct {
	store  Storage
	maxLen int
	banned []string
}

func NewText(store Storage, opts TextOptions) *Text {
	if opts.MaxLen <= 0 {
		opts.MaxLen = 500
	}
	banned := make([]string, 0, len(opts.BannedWords))
	for _, w := range opts.BannedWords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			banned = append(banned, w)
		}
	}
	return &Text{store: store, maxLen: opts.MaxLen, banned: banned}
}

func (t *Text) Type() MsgType { return TypeText }

func (t *Text) Validate(ctx context.Context, d *Draft, senderID int64) (*Payload, error) {
	body, err := decodeBody[TextBody](d)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(body.Content)
	if content == "" {
		return nil, errs.ErrValidation.WrapMsg("content is empty")
	}
	if n := utf8.RuneCountInString(content); n > t.maxLen {
		return nil, errs.ErrValidation.WrapMsg("content too long", "len", n, "max", t.maxLen)
	}
	lower := strings.ToLower(content)
	for _, w := range t.banned {
		if strings.Contains(lower, w) {
			return nil, errs.ErrValidation.WrapMsg("content contains banned word")
		}
	}
	if err := requireMember(ctx, t.store, d.RoomID, senderID); err != nil {
		return nil, err
	}

	p := &Payload{Content: content}
	if body.ReplyMsgID != 0 {
		target, err := findInRoom(ctx, t.store, d.RoomID, body.ReplyMsgID)
		if err != nil {
			return nil, err
		}
		if target.Status == StatusRecalled {
			return nil, errs.ErrValidation.WrapMsg("reply target was recalled", "msgId", target.ID)
		}
		gap, err := t.store.CountAfter(ctx, d.RoomID, target.ID)
		if err != nil {
			return nil, errs.ErrInternal.WrapMsg("count gap failed", "err", err)
		}
		p.ReplyMsgID = target.ID
		p.GapCount = gap
	}
	return p, nil
}

func (t *Text) SaveExtra(context.Context, *ChatMessage) error { return nil }

func (t *Text) Render(msg *ChatMessage) any {
	return TextBody{Content: msg.Content, ReplyMsgID: msg.ReplyMsgID}
}

func (t *Text) RenderReply(msg *ChatMessage) any {
	return TextBody{Content: msg.Content}
}

func (t *Text) RenderPreview(msg *ChatMessage) string {
	return truncate(msg.Content, previewLen)
}
