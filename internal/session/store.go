// Package session 进程内会话存储
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hust-soict/cas-restclient/internal/model"
)

// DefaultIdleTimeout 默认空闲超时
const DefaultIdleTimeout = 30 * time.Minute

// Store 会话存储接口
type Store interface {
	// Create 创建会话并返回会话 ID
	Create(username, role, tgt string) string
	// Get 获取会话，未知或已超时返回 nil；命中时刷新最近访问时间
	Get(id string) *model.Session
	// Invalidate 删除会话，幂等
	Invalidate(id string)
	// Len 返回当前存活的会话数
	Len() int
}

// store 互斥锁保护的内存会话表
type store struct {
	mu          sync.Mutex
	sessions    map[string]*model.Session
	idleTimeout time.Duration
}

// NewStore 创建会话存储
// idleTimeout 为 0 时使用默认的 30 分钟
func NewStore(idleTimeout time.Duration) Store {
	if idleTimeout == 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &store{
		sessions:    make(map[string]*model.Session),
		idleTimeout: idleTimeout,
	}
}

// Create 创建会话
func (s *store) Create(username, role, tgt string) string {
	sess := &model.Session{
		ID:         uuid.New().String(),
		Username:   username,
		Role:       role,
		TGT:        tgt,
		LastAccess: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return sess.ID
}

// Get 获取会话
func (s *store) Get(id string) *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}

	// 超过空闲超时即作废，惰性清理
	if sess.IsExpired(s.idleTimeout) {
		delete(s.sessions, id)
		return nil
	}

	sess.LastAccess = time.Now()
	return sess
}

// Invalidate 删除会话
func (s *store) Invalidate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len 当前会话数（含尚未惰性清理的过期会话）
func (s *store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
