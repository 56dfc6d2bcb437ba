package chat

import (
	"strings"
	"sync"
	"time"
)

// DeviceClass 登录端类型
type DeviceClass string

const (
	DeviceUnknown DeviceClass = ""
	DevicePC      DeviceClass = "PC"
	DeviceMobile  DeviceClass = "MOBILE"
	DeviceWeb     DeviceClass = "WEB"
)

// deviceFromUA 粗略按 User-Agent 判断端类型，登录时可被覆盖
func deviceFromUA(ua string) DeviceClass {
	ua = strings.ToLower(ua)
	switch {
	case ua == "":
		return DeviceUnknown
	case strings.Contains(ua, "android"), strings.Contains(ua, "iphone"), strings.Contains(ua, "mobile"):
		return DeviceMobile
	case strings.Contains(ua, "electron"), strings.Contains(ua, "talktime-desktop"):
		return DevicePC
	default:
		return DeviceWeb
	}
}

// Metadata 与一条连接一一对应的附加信息，原地修改，随连接一起移除
type Metadata struct {
	mu          sync.RWMutex
	userID      int64
	authed      bool
	device      DeviceClass
	attrs       map[string]any
	connectedAt time.Time
	lastSeen    time.Time
	detached    bool // 已从注册表移除
}

func newMetadata(now time.Time) *Metadata {
	return &Metadata{
		attrs:       make(map[string]any),
		connectedAt: now,
		lastSeen:    now,
	}
}

// UserID 未登录时 ok=false
func (m *Metadata) UserID() (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userID, m.authed
}

func (m *Metadata) Device() DeviceClass {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.device
}

func (m *Metadata) SetDevice(d DeviceClass) {
	m.mu.Lock()
	m.device = d
	m.mu.Unlock()
}

func (m *Metadata) Attr(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.attrs[key]
	return v, ok
}

func (m *Metadata) SetAttr(key string, v any) {
	m.mu.Lock()
	m.attrs[key] = v
	m.mu.Unlock()
}

// Attrs 返回属性快照
func (m *Metadata) Attrs() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]any, len(m.attrs))
	for k, v := range m.attrs {
		out[k] = v
	}
	return out
}

func (m *Metadata) ConnectedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connectedAt
}

func (m *Metadata) LastSeen() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSeen
}

func (m *Metadata) touch(now time.Time) {
	m.mu.Lock()
	if now.After(m.lastSeen) {
		m.lastSeen = now
	}
	m.mu.Unlock()
}
