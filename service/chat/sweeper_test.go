package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSweepEvictsStale(t *testing.T) {
	now := time.Unix(0, 0)
	r := NewRegistry(RegistryOptions{Now: func() time.Time { return now }})
	sw := NewSweeper(r, SweepOptions{UnauthTimeout: time.Minute, IdleTimeout: 10 * time.Minute})

	anon, authed, fresh := newFakeConn(), newFakeConn(), newFakeConn()
	r.Register(anon)
	r.Register(authed)
	r.MarkOnline(authed, 5)

	now = now.Add(2 * time.Minute)
	r.Register(fresh)

	assert.Equal(t, 1, sw.Sweep())
	assert.True(t, anon.isClosed())
	assert.False(t, authed.isClosed())
	assert.Equal(t, 2, r.Count())

	now = now.Add(9 * time.Minute)
	r.Touch(fresh)
	assert.Equal(t, 1, sw.Sweep())
	assert.True(t, authed.isClosed())
	assert.False(t, r.IsOnline(5))
	assert.False(t, fresh.isClosed())
}
