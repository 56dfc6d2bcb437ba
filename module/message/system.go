package message

import (
	"context"
	"strings"

	"TalkTime/tools/errs"
)

type SystemBody struct {
	Content string `json:"content"`
}

// System 系统通知，仅系统账号可发，不校验成员关系
type System struct {
	senderID int64
}

func NewSystem(systemUserID int64) *System { return &System{senderID: systemUserID} }

func (s *System) Type() MsgType { return TypeSystem }

func (s *System) Validate(_ context.Context, d *Draft, senderID int64) (*Payload, error) {
	if senderID != s.senderID {
		return nil, errs.ErrValidation.WrapMsg("system message from non-system user", "uid", senderID)
	}
	body, err := decodeBody[SystemBody](d)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(body.Content)
	if content == "" {
		return nil, errs.ErrValidation.WrapMsg("content is empty")
	}
	return &Payload{Content: content}, nil
}

func (s *System) SaveExtra(context.Context, *ChatMessage) error { return nil }

func (s *System) Render(msg *ChatMessage) any      { return SystemBody{Content: msg.Content} }
func (s *System) RenderReply(msg *ChatMessage) any { return SystemBody{Content: msg.Content} }
func (s *System) RenderPreview(msg *ChatMessage) string {
	return truncate(msg.Content, previewLen)
}
