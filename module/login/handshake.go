package login

import (
	"context"
	"errors"
	"strconv"
	"time"

	"TalkTime/logger"
	"TalkTime/service/chat"
	"TalkTime/service/ticket"
	"TalkTime/tools/errs"

	"go.uber.org/zap"
)

// 回给客户端的失败原因，只给粗粒度信号
const (
	ReasonProvider   = "provider_unavailable"
	ReasonCredential = "credential_unavailable"
	ReasonInternal   = "internal_error"
)

type Options struct {
	CollaboratorTimeout time.Duration
}

// Handshake 扫码登录：发码 -> 扫码确认 -> 最终确认；另有令牌直登
type Handshake struct {
	tickets *ticket.Cache[chat.Conn]
	reg     *chat.Registry
	sender  *chat.Sender

	idp   IdentityProvider
	cred  CredentialService
	users UserDirectory

	timeout time.Duration
}

func NewHandshake(tickets *ticket.Cache[chat.Conn], reg *chat.Registry, sender *chat.Sender,
	idp IdentityProvider, cred CredentialService, users UserDirectory, opts Options) *Handshake {
	if opts.CollaboratorTimeout <= 0 {
		opts.CollaboratorTimeout = 3 * time.Second
	}
	return &Handshake{
		tickets: tickets,
		reg:     reg,
		sender:  sender,
		idp:     idp,
		cred:    cred,
		users:   users,
		timeout: opts.CollaboratorTimeout,
	}
}

// RequestLoginTicket 发码并把二维码地址推给连接。第三方失败时回 LoginFailure，连接保留。
func (h *Handshake) RequestLoginTicket(ctx context.Context, conn chat.Conn) (string, error) {
	code := h.tickets.Issue(conn)

	cctx, cancel := context.WithTimeout(ctx, h.timeout)
	loginURL, err := h.idp.IssueScannableArtifact(cctx, int64(code), h.tickets.TTL())
	cancel()
	if err != nil {
		h.tickets.Consume(code)
		h.fail(conn, ReasonProvider)
		return "", errs.ErrProvider.WrapMsg("issue scannable artifact failed", "conn", conn.ID(), "err", err)
	}

	if err := h.sender.SendOne(conn, chat.NewFrame(chat.EventLoginQrcode, chat.LoginQrcode{LoginURL: loginURL})); err != nil {
		logger.Info("[login] push qrcode failed", zap.String("conn", conn.ID()), zap.Error(err))
	}
	return loginURL, nil
}

// OnScanConfirmedNotifyOnly 手机端扫码后通知桌面端等待确认；登录码不存在时静默
func (h *Handshake) OnScanConfirmedNotifyOnly(code ticket.Code) bool {
	conn, ok := h.tickets.Resolve(code)
	if !ok {
		return false
	}
	_ = h.sender.SendOne(conn, chat.ScanSuccessFrame())
	return true
}

// OnScanLoginFinal 手机端确认登录。登录码先消费再做任何 I/O，重复回调为空操作。
func (h *Handshake) OnScanLoginFinal(ctx context.Context, code ticket.Code, userID int64) error {
	conn, ok := h.tickets.Take(code)
	if !ok {
		return nil
	}
	return h.complete(ctx, conn, userID, nil, chat.DevicePC)
}

// Authorize 客户端携带已签发令牌直接登录；令牌失效时下发 InvalidateToken，不算错误
func (h *Handshake) Authorize(ctx context.Context, conn chat.Conn, token string) error {
	if token == "" {
		h.invalidate(conn)
		return nil
	}

	cctx, cancel := context.WithTimeout(ctx, h.timeout)
	flag, ok, err := h.cred.LookupPendingAuthFlag(cctx, token)
	cancel()
	if err != nil {
		h.fail(conn, ReasonCredential)
		return errs.ErrCredential.WrapMsg("lookup token flag failed", "err", err)
	}
	if !ok {
		h.invalidate(conn)
		return nil
	}

	cctx, cancel = context.WithTimeout(ctx, h.timeout)
	uid, err := h.cred.Validate(cctx, token)
	cancel()
	if err != nil {
		if errors.Is(err, errs.ErrTokenInvalid) {
			h.invalidate(conn)
			return nil
		}
		h.fail(conn, ReasonCredential)
		return errs.ErrCredential.WrapMsg("validate token failed", "err", err)
	}
	// 标记记录签发时的用户，必须与令牌里的用户一致
	if owner, perr := strconv.ParseInt(flag, 10, 64); perr != nil || owner <= 0 || owner != uid {
		logger.Info("[login] token flag mismatch", zap.String("conn", conn.ID()), zap.Int64("uid", uid))
		h.invalidate(conn)
		return nil
	}

	device := chat.DeviceUnknown
	if md, ok := h.reg.Metadata(conn); ok {
		device = md.Device()
	}
	return h.complete(ctx, conn, uid, &Token{Name: h.cred.TokenName(), Value: token}, device)
}

// complete 加载用户、必要时签发令牌、标记在线、回 LoginSuccess。
// 所有第三方调用都在改动注册表之前完成。
func (h *Handshake) complete(ctx context.Context, conn chat.Conn, userID int64, tok *Token, device chat.DeviceClass) error {
	cctx, cancel := context.WithTimeout(ctx, h.timeout)
	user, err := h.users.GetUserInfo(cctx, userID)
	cancel()
	if err != nil {
		h.fail(conn, ReasonInternal)
		return errs.ErrInternal.WrapMsg("load user failed", "uid", userID, "err", err)
	}
	if user == nil {
		h.fail(conn, ReasonInternal)
		return errs.ErrUserNotFound.WrapMsg("", "uid", userID)
	}

	if tok == nil {
		cctx, cancel = context.WithTimeout(ctx, h.timeout)
		minted, err := h.cred.Mint(cctx, userID, string(device), true, map[string]any{"name": user.Name})
		cancel()
		if err != nil {
			h.fail(conn, ReasonCredential)
			return errs.ErrCredential.WrapMsg("mint token failed", "uid", userID, "err", err)
		}
		tok = &minted
	}

	// 连接在确认期间已断开
	md, ok := h.reg.Metadata(conn)
	if !ok {
		logger.Info("[login] connection gone before online", zap.String("conn", conn.ID()), zap.Int64("uid", userID))
		return nil
	}
	if device != chat.DeviceUnknown {
		md.SetDevice(device)
	}
	if !h.reg.MarkOnline(conn, userID) {
		logger.Info("[login] connection gone before online", zap.String("conn", conn.ID()), zap.Int64("uid", userID))
		return nil
	}

	err = h.sender.SendOne(conn, chat.NewFrame(chat.EventLoginSuccess, chat.LoginSuccess{
		UID:       user.ID,
		Avatar:    user.Avatar,
		Token:     tok.Value,
		TokenName: tok.Name,
		Name:      user.Name,
	}))
	if err != nil {
		logger.Info("[login] push login success failed", zap.String("conn", conn.ID()), zap.Error(err))
	}
	logger.Info("[login] user online", zap.Int64("uid", userID), zap.String("conn", conn.ID()),
		zap.String("device", string(device)))
	return nil
}

func (h *Handshake) fail(conn chat.Conn, reason string) {
	_ = h.sender.SendOne(conn, chat.LoginFailureFrame(reason))
}

func (h *Handshake) invalidate(conn chat.Conn) {
	_ = h.sender.SendOne(conn, chat.InvalidateTokenFrame())
}
