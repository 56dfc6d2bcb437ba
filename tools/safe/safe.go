package safe

import (
	"runtime/debug"

	"TalkTime/logger"

	"go.uber.org/zap"
)

// Go starts f on a new goroutine that recovers from panic,
// so that one bad task can't crash the whole gateway.
func Go(name string, f func()) {
	go func() {
		defer Recover(name)
		f()
	}()
}

// Recover logs a recovered panic; call it deferred.
func Recover(name string) {
	if r := recover(); r != nil {
		logger.Error("[safe] panic recovered",
			zap.String("task", name),
			zap.Any("panic", r),
			zap.ByteString("stack", debug.Stack()))
	}
}
