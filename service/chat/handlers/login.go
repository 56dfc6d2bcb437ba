package handlers

import (
	"context"

	"TalkTime/module/login"
	"TalkTime/service/chat"
)

// LoginHandler 客户端申请登录二维码
type LoginHandler struct{ hs *login.Handshake }

func NewLoginHandler(hs *login.Handshake) chat.Handler { return &LoginHandler{hs: hs} }
func (h *LoginHandler) Type() chat.ReqType             { return chat.ReqLogin }

func (h *LoginHandler) Handle(ctx context.Context, _ *chat.Request, conn chat.Conn) error {
	// 失败已通过 LoginFailure 告知客户端
	_, err := h.hs.RequestLoginTicket(ctx, conn)
	return err
}

// AuthorizeHandler 携带已有令牌登录
type AuthorizeHandler struct{ hs *login.Handshake }

func NewAuthorizeHandler(hs *login.Handshake) chat.Handler { return &AuthorizeHandler{hs: hs} }
func (h *AuthorizeHandler) Type() chat.ReqType             { return chat.ReqAuthorize }

func (h *AuthorizeHandler) Handle(ctx context.Context, req *chat.Request, conn chat.Conn) error {
	body, err := chat.DecodeData[chat.AuthorizeReq](req)
	if err != nil {
		return err
	}
	return h.hs.Authorize(ctx, conn, body.Token)
}
