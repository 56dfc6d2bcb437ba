package handlers

import (
	"context"

	"TalkTime/service/chat"
)

// HeartbeatHandler 仅刷新活跃时间，不回包
type HeartbeatHandler struct{ reg *chat.Registry }

func NewHeartbeatHandler(reg *chat.Registry) chat.Handler { return &HeartbeatHandler{reg: reg} }
func (h *HeartbeatHandler) Type() chat.ReqType            { return chat.ReqHeartbeat }

func (h *HeartbeatHandler) Handle(_ context.Context, _ *chat.Request, conn chat.Conn) error {
	h.reg.Touch(conn)
	return nil
}
