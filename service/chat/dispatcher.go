package chat

import (
	"context"
	"fmt"

	"github.com/golang/glog"
)

type Dispatcher struct {
	handlers map[ReqType]Handler
}

func NewDispatcher(hs ...Handler) *Dispatcher {
	d := &Dispatcher{handlers: make(map[ReqType]Handler)}
	for _, h := range hs {
		d.Register(h)
	}
	return d
}

// Register 启动期调用，非并发安全
func (d *Dispatcher) Register(h Handler) { d.handlers[h.Type()] = h }

func (d *Dispatcher) Dispatch(ctx context.Context, req *Request, conn Conn) error {
	h := d.GetHandler(req.Type)
	if h == nil {
		return fmt.Errorf("no handler for type=%v", req.Type)
	}
	return h.Handle(ctx, req, conn)
}

func (d *Dispatcher) GetHandler(t ReqType) Handler {
	h, ok := d.handlers[t]
	if !ok {
		glog.Infof("no handler for type=%v", t)
		return nil
	}
	return h
}
