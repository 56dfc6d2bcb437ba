package chat

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliverIsolatesFailures(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	s := NewSender(r)
	a, b, c := newFakeConn(), newFakeConn(), newFakeConn()
	for _, x := range []*fakeConn{a, b, c} {
		r.Register(x)
		r.MarkOnline(x, 1)
	}
	b.failWith(ErrConnClosed)

	rep := s.Deliver([]Conn{a, b, c}, ScanSuccessFrame())

	assert.Equal(t, 2, rep.Delivered)
	require.Len(t, rep.Failed, 1)
	assert.Equal(t, b.ID(), rep.Failed[0].ConnID)
	assert.Len(t, a.written(), 1)
	assert.Len(t, c.written(), 1)

	// 死连接异步注销
	require.Eventually(t, func() bool {
		return b.isClosed() && len(r.ConnectionsFor(1)) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestDeliverKeepsSlowConn(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	s := NewSender(r)
	var evicted []string
	s.evict = func(c Conn) { evicted = append(evicted, c.ID()) }

	slow, broken := newFakeConn(), newFakeConn()
	slow.failWith(ErrSendQueueFull)
	broken.failWith(errors.New("boom"))

	rep := s.Deliver([]Conn{slow, broken}, ScanSuccessFrame())
	assert.Equal(t, 0, rep.Delivered)
	assert.Len(t, rep.Failed, 2)
	assert.Empty(t, evicted)
}

func TestSendOneSerializesEnvelope(t *testing.T) {
	s := NewSender(NewRegistry(RegistryOptions{}))
	c := newFakeConn()

	require.NoError(t, s.SendOne(c, NewFrame(EventLoginQrcode, LoginQrcode{LoginURL: "https://qr/x"})))

	frames := c.written()
	require.Len(t, frames, 1)
	var got map[string]any
	require.NoError(t, json.Unmarshal(frames[0], &got))
	assert.EqualValues(t, 1, got["type"])
	assert.Equal(t, "https://qr/x", got["data"].(map[string]any)["loginUrl"])
}

func TestDeliverToUsers(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	s := NewSender(r)
	u1a, u1b, u2, other := newFakeConn(), newFakeConn(), newFakeConn(), newFakeConn()
	for _, x := range []*fakeConn{u1a, u1b, u2, other} {
		r.Register(x)
	}
	r.MarkOnline(u1a, 1)
	r.MarkOnline(u1b, 1)
	r.MarkOnline(u2, 2)
	r.MarkOnline(other, 3)

	rep := s.DeliverToUsers([]int64{1, 2, 4}, NewFrame(EventMessage, map[string]any{"id": 1}))
	assert.Equal(t, 3, rep.Delivered)
	assert.Empty(t, other.written())
}

func TestDeliverEmpty(t *testing.T) {
	s := NewSender(NewRegistry(RegistryOptions{}))
	rep := s.Deliver(nil, ScanSuccessFrame())
	assert.Zero(t, rep.Delivered)
	assert.Empty(t, rep.Failed)
}
