package chat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIdempotent(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	c := newFakeConn()

	r.Register(c)
	md := r.GetOrCreateMetadata(c)
	r.Register(c)

	assert.Equal(t, 1, r.Count())
	assert.Same(t, md, r.GetOrCreateMetadata(c))
	_, authed := md.UserID()
	assert.False(t, authed)
}

func TestGetOrCreateMetadataConcurrent(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	c := newFakeConn()

	const n = 64
	got := make([]*Metadata, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			got[i] = r.GetOrCreateMetadata(c)
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Same(t, got[0], got[i])
	}
	assert.Equal(t, 1, r.Count())
}

func TestMarkOnlineIdempotent(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	c := newFakeConn()
	r.Register(c)

	require.True(t, r.MarkOnline(c, 7))
	require.True(t, r.MarkOnline(c, 7))

	conns := r.ConnectionsFor(7)
	require.Len(t, conns, 1)
	assert.Equal(t, c.ID(), conns[0].ID())

	uid, authed := r.GetOrCreateMetadata(c).UserID()
	assert.True(t, authed)
	assert.Equal(t, int64(7), uid)
}

func TestUnregisterCleansPresence(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	c := newFakeConn()
	r.Register(c)
	r.MarkOnline(c, 7)

	assert.True(t, r.Unregister(c))
	assert.Empty(t, r.ConnectionsFor(7))
	assert.False(t, r.IsOnline(7))
	assert.Equal(t, 0, r.OnlineUsers())
	assert.Equal(t, 0, r.Count())

	assert.False(t, r.Unregister(c))
}

func TestMultiDevicePresence(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	pc, phone := newFakeConn(), newFakeConn()
	r.Register(pc)
	r.Register(phone)
	r.MarkOnline(pc, 7)
	r.MarkOnline(phone, 7)

	assert.Len(t, r.ConnectionsFor(7), 2)

	r.Unregister(pc)
	conns := r.ConnectionsFor(7)
	require.Len(t, conns, 1)
	assert.Equal(t, phone.ID(), conns[0].ID())
	assert.Equal(t, 1, r.OnlineUsers())
}

func TestMarkOnlineRebindsUser(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	c := newFakeConn()
	r.Register(c)
	r.MarkOnline(c, 1)
	r.MarkOnline(c, 2)

	assert.Empty(t, r.ConnectionsFor(1))
	assert.Len(t, r.ConnectionsFor(2), 1)
}

func TestMarkOnlineAfterUnregister(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	c := newFakeConn()
	md := r.GetOrCreateMetadata(c)
	r.Unregister(c)

	md.mu.RLock()
	detached := md.detached
	md.mu.RUnlock()
	assert.True(t, detached)

	// 已注销的连接不能再上线，也不留任何条目
	assert.False(t, r.MarkOnline(c, 3))
	assert.Empty(t, r.ConnectionsFor(3))
	assert.False(t, r.IsOnline(3))
	assert.Equal(t, 0, r.Count())
}

func TestMarkOnlineUnregisteredConn(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	c := newFakeConn()
	r.Register(c)
	require.NoError(t, c.Close())
	r.Unregister(c)

	assert.False(t, r.MarkOnline(c, 7))
	assert.Empty(t, r.ConnectionsFor(7))
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, 0, r.OnlineUsers())

	// 从未注册过的连接同样拒绝
	assert.False(t, r.MarkOnline(newFakeConn(), 7))
	assert.Equal(t, 0, r.Count())
}

func TestPresenceListener(t *testing.T) {
	var (
		mu     sync.Mutex
		events []PresenceEvent
	)
	r := NewRegistry(RegistryOptions{Listener: func(ev PresenceEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}})
	c := newFakeConn()
	r.Register(c)
	r.MarkOnline(c, 9)
	r.MarkOnline(c, 9)
	r.Unregister(c)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	assert.True(t, events[0].Online)
	assert.Equal(t, 1, events[0].Remaining)
	assert.False(t, events[1].Online)
	assert.Equal(t, 0, events[1].Remaining)
	assert.Equal(t, int64(9), events[1].UserID)
}

func TestConcurrentOnlineOffline(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := newFakeConn()
			uid := int64(i % 10)
			r.Register(c)
			r.MarkOnline(c, uid)
			r.ConnectionsFor(uid)
			r.Unregister(c)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, r.Count())
	assert.Equal(t, 0, r.OnlineUsers())
}

func TestTouchAdvancesLastSeen(t *testing.T) {
	now := time.Unix(1000, 0)
	r := NewRegistry(RegistryOptions{Now: func() time.Time { return now }})
	c := newFakeConn()
	md := r.GetOrCreateMetadata(c)
	assert.Equal(t, now, md.LastSeen())

	now = now.Add(time.Minute)
	r.Touch(c)
	assert.Equal(t, now, md.LastSeen())
	assert.Equal(t, time.Unix(1000, 0), md.ConnectedAt())
}

func TestDeviceFromUA(t *testing.T) {
	assert.Equal(t, DeviceMobile, deviceFromUA("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0)"))
	assert.Equal(t, DevicePC, deviceFromUA("TalkTime-Desktop/1.0 Electron/28"))
	assert.Equal(t, DeviceWeb, deviceFromUA("Mozilla/5.0 (Windows NT 10.0) Chrome/139"))
	assert.Equal(t, DeviceUnknown, deviceFromUA(""))
}
