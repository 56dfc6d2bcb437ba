package handlers

import (
	"context"

	"TalkTime/module/message"
	"TalkTime/service/chat"
	"TalkTime/tools/errs"
)

// MessageHandler 校验落库后扇出给房间内所有成员的全部在线连接
type MessageHandler struct {
	reg    *chat.Registry
	sender *chat.Sender
	disp   *message.Dispatcher
}

func NewMessageHandler(reg *chat.Registry, sender *chat.Sender, disp *message.Dispatcher) chat.Handler {
	return &MessageHandler{reg: reg, sender: sender, disp: disp}
}

func (h *MessageHandler) Type() chat.ReqType { return chat.ReqMessage }

func (h *MessageHandler) Handle(ctx context.Context, req *chat.Request, conn chat.Conn) error {
	uid, ok := h.userOf(conn)
	if !ok {
		h.reject(conn, errs.ErrNotLoggedIn)
		return nil
	}

	draft, err := chat.DecodeData[message.Draft](req)
	if err != nil {
		h.reject(conn, errs.ErrArgs.WithDetail(err.Error()))
		return nil
	}

	res, err := h.disp.Send(ctx, draft, uid)
	if err != nil {
		h.reject(conn, errs.AsCodeError(err))
		return err
	}

	uids, err := h.disp.Recipients(ctx, res.Message.RoomID)
	if err != nil {
		// 已落库，仅影响本次推送
		return err
	}
	h.sender.DeliverToUsers(uids, chat.NewFrame(chat.EventMessage, res.Full))
	return nil
}

func (h *MessageHandler) userOf(conn chat.Conn) (int64, bool) {
	md, ok := h.reg.Metadata(conn)
	if !ok {
		return 0, false
	}
	return md.UserID()
}

// reject 只回给发送方，Detail 不外露
func (h *MessageHandler) reject(conn chat.Conn, ce errs.CodeError) {
	_ = h.sender.SendOne(conn, chat.ErrorFrame(ce.Code, ce.Msg))
}
