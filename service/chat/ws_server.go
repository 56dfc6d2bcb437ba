package chat

import (
	"context"
	"errors"
	"net"

	"TalkTime/logger"
	"TalkTime/tools/errs"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// HandleWS 升级连接、注册、读循环、退出注销
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 常见：非 WebSocket 请求/握手失败
		logger.Infof("[HandleWS] upgrade websocket error: %v", err)
		return
	}

	conn := NewWsConn(s.node.NextString(), ws, WsOptions{
		SendQueue:    s.opts.SendQueue,
		WriteTimeout: s.opts.WriteTimeout,
		PingInterval: s.opts.PingInterval,
	})
	s.reg.Register(conn)
	s.reg.GetOrCreateMetadata(conn).SetDevice(deviceFromUA(c.Request.UserAgent()))
	log := logger.Named("ws").With(zap.String("conn", conn.ID()), zap.String("remote", conn.RemoteAddr()))
	log.Debug("connected")

	defer func() {
		s.reg.Unregister(conn)
		_ = conn.Close()
		log.Debug("disconnected")
	}()

	ws.SetReadLimit(s.opts.ReadLimit)
	ws.SetPongHandler(func(string) error {
		s.reg.Touch(conn)
		return nil
	})

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	s.readLoop(ctx, ws, conn, log)
}

func (s *Server) readLoop(ctx context.Context, ws *websocket.Conn, conn *WsConn, log *zap.Logger) {
	limiter := s.newLimiter()
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			var ne net.Error
			switch {
			case websocket.IsCloseError(rerr, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
				log.Debug("peer closed", zap.Error(rerr))
			case errors.As(rerr, &ne) && ne.Timeout():
				log.Info("read timeout", zap.Error(rerr))
			case conn.Closed():
				// 被 sweeper 或写失败关闭
			default:
				log.Info("read error", zap.Error(rerr))
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		s.reg.Touch(conn)

		if limiter != nil && !limiter.Allow() {
			_ = s.sender.SendOne(conn, ErrorFrame(errs.TooFrequent, errs.ErrTooFrequent.Msg))
			continue
		}

		req, perr := ParseRequest(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			log.Info("parse request failed", zap.Error(perr), zap.ByteString("sample", sample), zap.Int("len", len(data)))
			_ = s.sender.SendOne(conn, ErrorFrame(errs.ArgsError, errs.ErrArgs.Msg))
			continue
		}

		h := s.disp.GetHandler(req.Type)
		if h == nil {
			_ = s.sender.SendOne(conn, ErrorFrame(errs.UnsupportedType, errs.ErrUnsupportedType.Msg))
			continue
		}
		if err := h.Handle(ctx, req, conn); err != nil {
			log.Info("handle request failed", zap.Int("type", int(req.Type)), zap.Error(err))
		}
	}
}
