package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
)

var (
	globalMgr *Manager
	once      sync.Once
)

// Manager holds the middleware chain mounted on the engine. Handlers
// can be added during bootstrap before routes register.
type Manager struct {
	mu   sync.RWMutex
	mids []gin.HandlerFunc
}

func NewManager() *Manager { return &Manager{} }

func Default() *Manager {
	once.Do(func() {
		globalMgr = NewManager()
	})
	return globalMgr
}

func (m *Manager) Add(h gin.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mids = append(m.mids, h)
}

// Use returns one handler running the current chain snapshot.
func (m *Manager) Use() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.mu.RLock()
		handlers := append([]gin.HandlerFunc{}, m.mids...)
		m.mu.RUnlock()

		for _, h := range handlers {
			h(c)
			if c.IsAborted() {
				return
			}
		}
		c.Next()
	}
}
