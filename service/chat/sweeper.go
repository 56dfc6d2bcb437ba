package chat

import (
	"context"
	"time"

	"TalkTime/logger"

	"go.uber.org/zap"
)

type SweepOptions struct {
	UnauthTimeout time.Duration // 未登录连接最长静默
	IdleTimeout   time.Duration // 已登录连接最长静默
	Every         time.Duration
}

func (o *SweepOptions) norm() {
	if o.UnauthTimeout <= 0 {
		o.UnauthTimeout = 5 * time.Minute
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 2 * time.Minute
	}
	if o.Every <= 0 {
		o.Every = 30 * time.Second
	}
}

// Sweeper 定期清理静默连接，按 LastSeen 判断
type Sweeper struct {
	reg  *Registry
	opts SweepOptions
}

func NewSweeper(reg *Registry, opts SweepOptions) *Sweeper {
	opts.norm()
	return &Sweeper{reg: reg, opts: opts}
}

// Run 阻塞直到 ctx 取消
func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.opts.Every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				logger.Info("[sweeper] evicted idle connections", zap.Int("count", n),
					zap.Int("remain", s.reg.Count()))
			}
		}
	}
}

// Sweep 执行一轮，返回清理数量
func (s *Sweeper) Sweep() int {
	now := s.reg.now()
	var stale []Conn
	s.reg.Range(func(c Conn, md *Metadata) bool {
		_, authed := md.UserID()
		limit := s.opts.IdleTimeout
		if !authed {
			limit = s.opts.UnauthTimeout
		}
		if now.Sub(md.LastSeen()) >= limit {
			stale = append(stale, c)
		}
		return true
	})
	for _, c := range stale {
		s.reg.Unregister(c)
		_ = c.Close()
	}
	return len(stale)
}
