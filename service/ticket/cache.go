package ticket

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
)

// Code 一次性登录码（扫码场景值），取值 [0, MaxInt32)
type Code int64

const (
	DefaultTTL      = time.Hour
	DefaultCapacity = 10000
)

type Options struct {
	TTL      time.Duration
	Capacity int
	Clock    func() time.Time // 可注入时钟（单测用）；nil => time.Now
	Rand     func() int64     // 登录码随机源；nil => [0, MaxInt32) 均匀分布
}

func (o *Options) norm() {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Capacity <= 0 {
		o.Capacity = DefaultCapacity
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Rand == nil {
		o.Rand = func() int64 { return rand.Int64N(math.MaxInt32) }
	}
}

type entry[V any] struct {
	val      V
	issuedAt time.Time
}

// Cache 登录码 -> 待登录连接。容量满按 LRU 淘汰，过期在访问时惰性剔除；
// 调用方对"不存在"和"已淘汰"不做区分。
type Cache[V any] struct {
	mu   sync.Mutex
	lru  *simplelru.LRU
	opts Options
}

func New[V any](opts Options) *Cache[V] {
	opts.norm()
	l, err := simplelru.NewLRU(opts.Capacity, nil)
	if err != nil {
		// 仅在 size<=0 时出错，norm 已保证
		panic(err)
	}
	return &Cache[V]{lru: l, opts: opts}
}

func (c *Cache[V]) TTL() time.Duration { return c.opts.TTL }

// Issue 生成一个当前不在缓存中的登录码并登记 v。
// 码空间远大于容量上限，碰撞重试循环必然收敛。
func (c *Cache[V]) Issue(v V) Code {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.Clock()
	for {
		code := Code(c.opts.Rand())
		if _, ok := c.liveLocked(code, now); ok {
			continue
		}
		c.lru.Add(code, entry[V]{val: v, issuedAt: now})
		return code
	}
}

// Resolve 查询但不消费
func (c *Cache[V]) Resolve(code Code) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveLocked(code, c.opts.Clock())
}

// Consume 无条件移除
func (c *Cache[V]) Consume(code Code) {
	c.mu.Lock()
	c.lru.Remove(code)
	c.mu.Unlock()
}

// Take 查询并消费；并发调用同一 code 时只有一个能拿到值
func (c *Cache[V]) Take(code Code) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.liveLocked(code, c.opts.Clock())
	c.lru.Remove(code)
	return v, ok
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *Cache[V]) Purge() {
	c.mu.Lock()
	c.lru.Purge()
	c.mu.Unlock()
}

// liveLocked 需持锁调用；过期条目顺手删除
func (c *Cache[V]) liveLocked(code Code, now time.Time) (V, bool) {
	var zero V
	raw, ok := c.lru.Get(code)
	if !ok {
		return zero, false
	}
	e := raw.(entry[V])
	if now.Sub(e.issuedAt) >= c.opts.TTL {
		c.lru.Remove(code)
		return zero, false
	}
	return e.val, true
}
