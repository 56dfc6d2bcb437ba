package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
)

// Chain 运行期可追加的全局中间件链，挂在 Engine 最外层
type Chain struct {
	mu   sync.RWMutex
	mids []gin.HandlerFunc
}

func NewManager(hs ...gin.HandlerFunc) *Chain {
	return &Chain{mids: append([]gin.HandlerFunc(nil), hs...)}
}

func (m *Chain) Add(h gin.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mids = append(m.mids, h)
}

func (m *Chain) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.mids)
}

// Use 依次执行链上中间件，任一 Abort 即停止
func (m *Chain) Use() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.mu.RLock()
		snapshot := append([]gin.HandlerFunc(nil), m.mids...)
		m.mu.RUnlock()

		for _, h := range snapshot {
			h(c)
			if c.IsAborted() {
				return
			}
		}
		c.Next()
	}
}
