package chat

import (
	"errors"

	"TalkTime/logger"
	"TalkTime/tools/safe"

	"go.uber.org/zap"
)

// Failure 单条连接的投递失败
type Failure struct {
	ConnID string
	Err    error
}

// Report 一次扇出的结果
type Report struct {
	Delivered int
	Failed    []Failure
}

// Sender 序列化一次，逐连接独立写；单条失败不影响其它连接
type Sender struct {
	reg *Registry
	// evict 异步清理死连接，测试可替换
	evict func(Conn)
}

func NewSender(reg *Registry) *Sender {
	s := &Sender{reg: reg}
	s.evict = func(c Conn) {
		safe.Go("sender.evict", func() {
			s.reg.Unregister(c)
			_ = c.Close()
		})
	}
	return s
}

// Deliver 扇出到多条连接
func (s *Sender) Deliver(conns []Conn, f *Frame) Report {
	var rep Report
	if len(conns) == 0 {
		return rep
	}
	data, err := f.Marshal()
	if err != nil {
		logger.Error("[sender] marshal frame failed", zap.Int("type", int(f.Type)), zap.Error(err))
		for _, c := range conns {
			rep.Failed = append(rep.Failed, Failure{ConnID: c.ID(), Err: err})
		}
		return rep
	}
	for _, c := range conns {
		if werr := s.write(c, data); werr != nil {
			rep.Failed = append(rep.Failed, Failure{ConnID: c.ID(), Err: werr})
			continue
		}
		rep.Delivered++
	}
	return rep
}

// SendOne 单连接下发，握手回执用
func (s *Sender) SendOne(c Conn, f *Frame) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	return s.write(c, data)
}

// DeliverToUsers 发给若干用户的全部在线连接
func (s *Sender) DeliverToUsers(userIDs []int64, f *Frame) Report {
	var conns []Conn
	for _, uid := range userIDs {
		conns = append(conns, s.reg.ConnectionsFor(uid)...)
	}
	return s.Deliver(conns, f)
}

func (s *Sender) write(c Conn, data []byte) (err error) {
	defer func() {
		// 个别连接实现 panic 时不能拖垮整个扇出
		if r := recover(); r != nil {
			logger.Errorf("[sender] write panic conn=%s: %v", c.ID(), r)
			err = ErrConnClosed
			s.evict(c)
		}
	}()
	err = c.Write(data)
	switch {
	case err == nil:
	case errors.Is(err, ErrConnClosed):
		s.evict(c)
	case errors.Is(err, ErrSendQueueFull):
		logger.Warn("[sender] send queue full, frame dropped", zap.String("conn", c.ID()))
	default:
		logger.Warn("[sender] write failed", zap.String("conn", c.ID()), zap.Error(err))
	}
	return err
}
