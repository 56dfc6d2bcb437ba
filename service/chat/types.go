package chat

import "context"

// Handler 按上行帧类型处理；回执由 handler 自己通过 Sender 下发
type Handler interface {
	Type() ReqType
	Handle(ctx context.Context, req *Request, conn Conn) error
}

// HandlerFunc 便于测试和简单处理器
type HandlerFunc struct {
	T  ReqType
	Fn func(ctx context.Context, req *Request, conn Conn) error
}

func (h HandlerFunc) Type() ReqType { return h.T }
func (h HandlerFunc) Handle(ctx context.Context, req *Request, conn Conn) error {
	return h.Fn(ctx, req, conn)
}
