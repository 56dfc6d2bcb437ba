package chat

import (
	"net/http"
	"strings"
	"time"

	"TalkTime/logger"
	"TalkTime/tools/ids"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

type ServerOptions struct {
	ReadLimit    int64
	SendQueue    int
	WriteTimeout time.Duration
	PingInterval time.Duration
	MsgRate      float64 // 每连接每秒上行帧数，<=0 不限
	MsgBurst     int
	AllowOrigins []string // 空表示不校验
}

func (o *ServerOptions) norm() {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 64 << 10
	}
	if o.MsgBurst <= 0 {
		o.MsgBurst = 20
	}
}

// Server 网关状态的显式持有者：注册表、上行分发、下行发送
type Server struct {
	reg    *Registry
	disp   *Dispatcher
	sender *Sender
	node   *ids.Node
	opts   ServerOptions

	upgrader websocket.Upgrader
}

func NewServer(reg *Registry, disp *Dispatcher, sender *Sender, node *ids.Node, opts ServerOptions) *Server {
	opts.norm()
	s := &Server{
		reg:    reg,
		disp:   disp,
		sender: sender,
		node:   node,
		opts:   opts,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) Registry() *Registry    { return s.reg }
func (s *Server) Disp() *Dispatcher      { return s.disp }
func (s *Server) Sender() *Sender        { return s.sender }
func (s *Server) Options() ServerOptions { return s.opts }

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.opts.AllowOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func (s *Server) newLimiter() *rate.Limiter {
	if s.opts.MsgRate <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(s.opts.MsgRate), s.opts.MsgBurst)
}

// Close 关闭并注销所有连接，进程退出时调用
func (s *Server) Close() {
	n := 0
	s.reg.Range(func(c Conn, _ *Metadata) bool {
		s.reg.Unregister(c)
		_ = c.Close()
		n++
		return true
	})
	logger.Infof("[server] closed %d connections", n)
}
