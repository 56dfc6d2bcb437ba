package chat

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrConnClosed 连接已关闭：调用方应将其从注册表移除
	ErrConnClosed = errors.New("chat: connection closed")
	// ErrSendQueueFull 慢客户端：本条丢弃，连接保留
	ErrSendQueueFull = errors.New("chat: send queue full")
)

// Conn 一条活跃的双向通道。网关只持有引用，以 ID() 作为身份。
type Conn interface {
	ID() string
	// Write 投递一帧；同一连接上的 Write 按调用顺序送达
	Write(data []byte) error
	Close() error
	RemoteAddr() string
}

type WsOptions struct {
	SendQueue    int           // 每连接发送队列长度
	WriteTimeout time.Duration // 单帧写超时
	PingInterval time.Duration // <=0 不发 ping
}

func (o *WsOptions) norm() {
	if o.SendQueue <= 0 {
		o.SendQueue = 256
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
}

// WsConn gorilla/websocket 连接：独立发送队列 + 单写协程，保证单连接内有序
type WsConn struct {
	id     string
	ws     *websocket.Conn
	remote string
	opts   WsOptions

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewWsConn 包装连接并启动写协程
func NewWsConn(id string, ws *websocket.Conn, opts WsOptions) *WsConn {
	opts.norm()
	c := &WsConn{
		id:   id,
		ws:   ws,
		opts: opts,
		send: make(chan []byte, opts.SendQueue),
		done: make(chan struct{}),
	}
	if ra := ws.RemoteAddr(); ra != nil {
		c.remote = ra.String()
	}
	go c.writeLoop()
	return c
}

func (c *WsConn) ID() string         { return c.id }
func (c *WsConn) RemoteAddr() string { return c.remote }

func (c *WsConn) Write(data []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSendQueueFull
	}
}

func (c *WsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

// Closed 写协程退出或被主动关闭后为 true
func (c *WsConn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *WsConn) writeLoop() {
	var tick <-chan time.Time
	if c.opts.PingInterval > 0 {
		t := time.NewTicker(c.opts.PingInterval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := writeText(c.ws, data, c.opts.WriteTimeout); err != nil {
				// 写失败即视为通道已死
				_ = c.Close()
				return
			}
		case <-tick:
			deadline := time.Now().Add(c.opts.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}

func writeText(conn *websocket.Conn, data []byte, timeout time.Duration) error {
	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
