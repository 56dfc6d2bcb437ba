package message

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrDuplicateID = errors.New("message: duplicate id")

// MemStore 内存版 Storage，本地开发与单测使用
type MemStore struct {
	mu      sync.RWMutex
	byID    map[int64]*ChatMessage
	byRoom  map[int64][]int64            // room -> ids，按写入顺序
	members map[int64]map[int64]struct{} // room -> uid set
}

func NewMemStore() *MemStore {
	return &MemStore{
		byID:    make(map[int64]*ChatMessage),
		byRoom:  make(map[int64][]int64),
		members: make(map[int64]map[int64]struct{}),
	}
}

// AddMember 写入成员关系
func (s *MemStore) AddMember(roomID int64, uids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.members[roomID]
	if set == nil {
		set = make(map[int64]struct{})
		s.members[roomID] = set
	}
	for _, uid := range uids {
		set[uid] = struct{}{}
	}
}

func (s *MemStore) Save(_ context.Context, msg *ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[msg.ID]; ok {
		return ErrDuplicateID
	}
	cp := cloneMessage(msg)
	s.byID[msg.ID] = cp
	s.byRoom[msg.RoomID] = append(s.byRoom[msg.RoomID], msg.ID)
	return nil
}

func (s *MemStore) FindByID(_ context.Context, id int64) (*ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.byID[id]; ok {
		return cloneMessage(v), nil
	}
	return nil, nil
}

func (s *MemStore) CountAfter(_ context.Context, roomID, afterID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, id := range s.byRoom[roomID] {
		if id > afterID {
			n++
		}
	}
	return n, nil
}

func (s *MemStore) SaveExtra(_ context.Context, id int64, extra map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.byID[id]
	if !ok {
		return nil
	}
	if v.Extra == nil {
		v.Extra = make(map[string]any, len(extra))
	}
	for k, x := range extra {
		v.Extra[k] = x
	}
	return nil
}

func (s *MemStore) MarkRecalled(_ context.Context, id, byUID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.byID[id]
	if !ok {
		return nil
	}
	v.Status = StatusRecalled
	v.UpdateTime = at
	if v.Extra == nil {
		v.Extra = make(map[string]any)
	}
	v.Extra["recallUid"] = byUID
	return nil
}

func (s *MemStore) IsMember(_ context.Context, roomID, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[roomID][userID]
	return ok, nil
}

func (s *MemStore) MemberIDs(_ context.Context, roomID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.members[roomID]
	out := make([]int64, 0, len(set))
	for uid := range set {
		out = append(out, uid)
	}
	return out, nil
}

// Len 已存消息数
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func cloneMessage(m *ChatMessage) *ChatMessage {
	cp := *m
	if m.Extra != nil {
		cp.Extra = make(map[string]any, len(m.Extra))
		for k, v := range m.Extra {
			cp.Extra[k] = v
		}
	}
	return &cp
}
