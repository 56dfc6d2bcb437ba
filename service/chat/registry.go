package chat

import (
	"hash/maphash"
	"sync"
	"time"
)

const shardCount = 32

// PresenceEvent 用户上下线变化；Remaining 为变化后该用户剩余的在线连接数
type PresenceEvent struct {
	UserID    int64
	ConnID    string
	Device    DeviceClass
	Online    bool
	Remaining int
	At        time.Time
}

// PresenceListener 在锁外同步回调，实现方不应阻塞
type PresenceListener func(PresenceEvent)

type RegistryOptions struct {
	Now      func() time.Time
	Listener PresenceListener
}

type metaEntry struct {
	conn Conn
	md   *Metadata
}

type metaShard struct {
	mu sync.RWMutex
	m  map[string]*metaEntry // conn id -> entry
}

type presenceShard struct {
	mu sync.RWMutex
	m  map[int64]map[string]Conn // user id -> conn id -> conn
}

// Registry 连接 -> 元数据、用户 -> 连接集合 的双向映射。
// 两张表分别按连接 ID、用户 ID 分片，无全局锁。
// 加锁顺序固定为 Metadata.mu -> presenceShard.mu。
type Registry struct {
	seed     maphash.Seed
	meta     [shardCount]metaShard
	presence [shardCount]presenceShard
	now      func() time.Time
	listener PresenceListener
}

func NewRegistry(opts RegistryOptions) *Registry {
	r := &Registry{
		seed:     maphash.MakeSeed(),
		now:      opts.Now,
		listener: opts.Listener,
	}
	if r.now == nil {
		r.now = time.Now
	}
	for i := range r.meta {
		r.meta[i].m = make(map[string]*metaEntry)
		r.presence[i].m = make(map[int64]map[string]Conn)
	}
	return r
}

func (r *Registry) metaShardOf(id string) *metaShard {
	return &r.meta[maphash.String(r.seed, id)%shardCount]
}

func (r *Registry) presenceShardOf(userID int64) *presenceShard {
	// fibonacci hashing，避免连续 uid 落在同一分片
	h := uint64(userID) * 0x9E3779B97F4A7C15
	return &r.presence[h>>59]
}

// Register 幂等
func (r *Registry) Register(c Conn) {
	r.GetOrCreateMetadata(c)
}

// GetOrCreateMetadata 并发首次访问只会创建一个对象，后来者拿到同一个
func (r *Registry) GetOrCreateMetadata(c Conn) *Metadata {
	id := c.ID()
	s := r.metaShardOf(id)

	s.mu.RLock()
	e, ok := s.m[id]
	s.mu.RUnlock()
	if ok {
		return e.md
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.m[id]; ok {
		return e.md
	}
	e = &metaEntry{conn: c, md: newMetadata(r.now())}
	s.m[id] = e
	return e.md
}

// Metadata 只查不建
func (r *Registry) Metadata(c Conn) (*Metadata, bool) {
	id := c.ID()
	s := r.metaShardOf(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.m[id]
	if !ok {
		return nil, false
	}
	return e.md, true
}

// Unregister 移除元数据，并从所属用户的在线集合里摘掉；集合空了整项删除。
// 返回连接此前是否已注册。
func (r *Registry) Unregister(c Conn) bool {
	id := c.ID()
	s := r.metaShardOf(id)

	s.mu.Lock()
	e, ok := s.m[id]
	if ok {
		delete(s.m, id)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}

	md := e.md
	md.mu.Lock()
	md.detached = true
	uid, authed, dev := md.userID, md.authed, md.device
	remaining := -1
	if authed {
		remaining = r.removePresence(uid, id)
	}
	md.mu.Unlock()

	if remaining >= 0 {
		r.notify(PresenceEvent{UserID: uid, ConnID: id, Device: dev, Online: false, Remaining: remaining})
	}
	return true
}

// MarkOnline 绑定用户并加入在线集合（幂等）。连接若之前属于别的用户，先从旧集合移出。
// 连接未注册或已被注销时返回 false，不会重新建档。
func (r *Registry) MarkOnline(c Conn, userID int64) bool {
	id := c.ID()
	md, ok := r.Metadata(c)
	if !ok {
		return false
	}

	md.mu.Lock()
	if md.detached {
		md.mu.Unlock()
		return false
	}
	var (
		events  []PresenceEvent
		prevUID = md.userID
		rebind  = md.authed && md.userID != userID
	)
	if rebind {
		left := r.removePresence(prevUID, id)
		events = append(events, PresenceEvent{UserID: prevUID, ConnID: id, Device: md.device, Online: false, Remaining: left})
	}
	md.userID = userID
	md.authed = true
	if n, added := r.addPresence(userID, c); added {
		events = append(events, PresenceEvent{UserID: userID, ConnID: id, Device: md.device, Online: true, Remaining: n})
	}
	md.mu.Unlock()

	for _, ev := range events {
		r.notify(ev)
	}
	return true
}

// ConnectionsFor 返回快照，可能为空
func (r *Registry) ConnectionsFor(userID int64) []Conn {
	s := r.presenceShardOf(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.m[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// IsOnline 用户是否至少有一条在线连接
func (r *Registry) IsOnline(userID int64) bool {
	s := r.presenceShardOf(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m[userID]) > 0
}

// Touch 刷新 LastSeen；未注册的连接忽略
func (r *Registry) Touch(c Conn) {
	if md, ok := r.Metadata(c); ok {
		md.touch(r.now())
	}
}

// Count 已注册连接数
func (r *Registry) Count() int {
	n := 0
	for i := range r.meta {
		s := &r.meta[i]
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}

// OnlineUsers 在线用户数
func (r *Registry) OnlineUsers() int {
	n := 0
	for i := range r.presence {
		s := &r.presence[i]
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}

// Range 遍历所有连接；回调在锁外执行，返回 false 停止
func (r *Registry) Range(fn func(Conn, *Metadata) bool) {
	for i := range r.meta {
		s := &r.meta[i]
		s.mu.RLock()
		snap := make([]*metaEntry, 0, len(s.m))
		for _, e := range s.m {
			snap = append(snap, e)
		}
		s.mu.RUnlock()

		for _, e := range snap {
			if !fn(e.conn, e.md) {
				return
			}
		}
	}
}

// addPresence 返回加入后集合大小，以及本次是否新增
func (r *Registry) addPresence(userID int64, c Conn) (int, bool) {
	s := r.presenceShardOf(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.m[userID]
	if set == nil {
		set = make(map[string]Conn, 1)
		s.m[userID] = set
	}
	if _, ok := set[c.ID()]; ok {
		return len(set), false
	}
	set[c.ID()] = c
	return len(set), true
}

// removePresence 返回移除后集合大小
func (r *Registry) removePresence(userID int64, connID string) int {
	s := r.presenceShardOf(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.m[userID]
	if set == nil {
		return 0
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(s.m, userID)
		return 0
	}
	return len(set)
}

func (r *Registry) notify(ev PresenceEvent) {
	if r.listener == nil {
		return
	}
	ev.At = r.now()
	r.listener(ev)
}
