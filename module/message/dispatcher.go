package message

import (
	"context"
	"time"

	"TalkTime/logger"
	"TalkTime/tools/errs"
	"TalkTime/tools/ids"

	"go.uber.org/zap"
)

type Options struct {
	Node      *ids.Node
	Publisher EventPublisher // 可选
	Now       func() time.Time
}

// Dispatcher 按消息类型选择策略：校验、落库、附加数据、渲染
type Dispatcher struct {
	store      Storage
	strategies map[MsgType]Strategy
	node       *ids.Node
	pub        EventPublisher
	now        func() time.Time
}

func NewDispatcher(store Storage, opts Options, strategies ...Strategy) *Dispatcher {
	d := &Dispatcher{
		store:      store,
		strategies: make(map[MsgType]Strategy, len(strategies)),
		node:       opts.Node,
		pub:        opts.Publisher,
		now:        opts.Now,
	}
	if d.node == nil {
		d.node = ids.NewNode(1)
	}
	if d.now == nil {
		d.now = time.Now
	}
	for _, s := range strategies {
		d.Register(s)
	}
	return d
}

// Register 启动期调用
func (d *Dispatcher) Register(s Strategy) { d.strategies[s.Type()] = s }

func (d *Dispatcher) Strategy(t MsgType) (Strategy, bool) {
	s, ok := d.strategies[t]
	return s, ok
}

// Send 校验 -> 落库 -> 附加数据（尽力而为）-> 渲染
func (d *Dispatcher) Send(ctx context.Context, draft *Draft, senderID int64) (*Result, error) {
	if draft == nil {
		return nil, errs.ErrArgs.WrapMsg("nil draft")
	}
	s, ok := d.strategies[draft.Type]
	if !ok {
		return nil, errs.ErrUnsupportedType.WrapMsg("", "type", draft.Type)
	}

	p, err := s.Validate(ctx, draft, senderID)
	if err != nil {
		return nil, err
	}

	now := d.now()
	msg := &ChatMessage{
		ID:         d.node.Next(),
		RoomID:     draft.RoomID,
		FromUID:    senderID,
		Type:       draft.Type,
		Content:    p.Content,
		ReplyMsgID: p.ReplyMsgID,
		GapCount:   p.GapCount,
		Extra:      p.Extra,
		Status:     StatusNormal,
		CreateTime: now,
		UpdateTime: now,
	}
	// 落库失败不重试，由客户端重发
	if err := d.store.Save(ctx, msg); err != nil {
		return nil, errs.ErrInternal.WrapMsg("save message failed", "roomId", msg.RoomID, "err", err)
	}

	if err := s.SaveExtra(ctx, msg); err != nil {
		logger.Warn("[message] save extra failed",
			zap.Int64("msgId", msg.ID), zap.Int("type", int(msg.Type)), zap.Error(err))
	}

	if d.pub != nil {
		if err := d.pub.PublishMessage(ctx, msg); err != nil {
			logger.Warn("[message] publish saved event failed", zap.Int64("msgId", msg.ID), zap.Error(err))
		}
	}

	res := &Result{
		Message: msg,
		Reply:   d.renderReply(ctx, msg),
		Preview: s.RenderPreview(msg),
	}
	res.Full = &MessageView{
		ID:       msg.ID,
		RoomID:   msg.RoomID,
		FromUID:  msg.FromUID,
		Type:     msg.Type,
		Body:     s.Render(msg),
		Reply:    res.Reply,
		SendTime: msg.CreateTime.UnixMilli(),
	}
	return res, nil
}

// Recipients 房间成员，用于扇出
func (d *Dispatcher) Recipients(ctx context.Context, roomID int64) ([]int64, error) {
	uids, err := d.store.MemberIDs(ctx, roomID)
	if err != nil {
		return nil, errs.ErrInternal.WrapMsg("load members failed", "roomId", roomID, "err", err)
	}
	return uids, nil
}

func (d *Dispatcher) renderReply(ctx context.Context, msg *ChatMessage) *ReplyView {
	if msg.ReplyMsgID == 0 {
		return nil
	}
	target, err := d.store.FindByID(ctx, msg.ReplyMsgID)
	if err != nil || target == nil {
		if err != nil {
			logger.Warn("[message] load reply target failed", zap.Int64("replyId", msg.ReplyMsgID), zap.Error(err))
		}
		return nil
	}
	rv := &ReplyView{
		ID:       target.ID,
		FromUID:  target.FromUID,
		Type:     target.Type,
		GapCount: msg.GapCount,
	}
	if target.Status == StatusRecalled {
		rv.Body = "原消息已撤回"
		return rv
	}
	ts, ok := d.strategies[target.Type]
	if !ok {
		return rv
	}
	rv.Body = ts.RenderReply(target)
	rv.CanCallback = true
	return rv
}
