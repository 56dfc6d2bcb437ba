package safe

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoRecoversPanic(t *testing.T) {
	var after atomic.Bool
	Go("boom", func() { panic("boom") })
	Go("ok", func() { after.Store(true) })

	require.Eventually(t, after.Load, time.Second, 5*time.Millisecond)
}

func TestRecoverWithoutPanic(t *testing.T) {
	ran := false
	func() {
		defer Recover("noop")
		ran = true
	}()
	assert.True(t, ran)
}
