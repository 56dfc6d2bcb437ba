package message

import (
	"context"
	"net/url"
	"path"
	"strings"

	"TalkTime/tools/errs"
)

type ImageBody struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int64  `json:"size"`
}

type ImageOptions struct {
	Exts     []string // 小写，不带点
	MaxBytes int64
}

// Image 图片消息；尺寸信息写入 extra
type Image struct {
	store    Storage
	exts     map[string]struct{}
	maxBytes int64
}

func NewImage(store Storage, opts ImageOptions) *Image {
	if len(opts.Exts) == 0 {
		opts.Exts = []string{"jpg", "jpeg", "png", "gif", "webp"}
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 10 << 20
	}
	exts := make(map[string]struct{}, len(opts.Exts))
	for _, e := range opts.Exts {
		exts[strings.TrimPrefix(strings.ToLower(e), ".")] = struct{}{}
	}
	return &Image{store: store, exts: exts, maxBytes: opts.MaxBytes}
}

func (m *Image) Type() MsgType { return TypeImage }

func (m *Image) Validate(ctx context.Context, d *Draft, senderID int64) (*Payload, error) {
	body, err := decodeBody[ImageBody](d)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(body.URL) == "" {
		return nil, errs.ErrValidation.WrapMsg("image url is required")
	}
	u, err := url.Parse(body.URL)
	if err != nil {
		return nil, errs.ErrValidation.WrapMsg("image url malformed", "url", body.URL)
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
	if _, ok := m.exts[ext]; !ok {
		return nil, errs.ErrValidation.WrapMsg("image type not allowed", "ext", ext)
	}
	if body.Size < 0 || body.Size > m.maxBytes {
		return nil, errs.ErrValidation.WrapMsg("image too large", "size", body.Size, "max", m.maxBytes)
	}
	if err := requireMember(ctx, m.store, d.RoomID, senderID); err != nil {
		return nil, err
	}
	return &Payload{
		Content: body.URL,
		Extra: map[string]any{
			"url":    body.URL,
			"width":  body.Width,
			"height": body.Height,
			"size":   body.Size,
		},
	}, nil
}

func (m *Image) SaveExtra(ctx context.Context, msg *ChatMessage) error {
	return m.store.SaveExtra(ctx, msg.ID, msg.Extra)
}

func (m *Image) Render(msg *ChatMessage) any { return imageFromExtra(msg) }

func (m *Image) RenderReply(msg *ChatMessage) any {
	return ImageBody{URL: msg.Content}
}

func (m *Image) RenderPreview(*ChatMessage) string { return "[图片]" }

func imageFromExtra(msg *ChatMessage) ImageBody {
	b := ImageBody{URL: msg.Content}
	if v, ok := msg.Extra["width"]; ok {
		b.Width = toInt(v)
	}
	if v, ok := msg.Extra["height"]; ok {
		b.Height = toInt(v)
	}
	if v, ok := msg.Extra["size"]; ok {
		b.Size = int64(toInt(v))
	}
	return b
}

// toInt extra 经过 bson/json 往返后数值类型不固定
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
