// Package model 数据模型定义
package model

import (
	"time"
)

// Session 用户会话
// 仅存在于进程内存中，进程重启即失效
type Session struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Role       string    `json:"role"`
	TGT        string    `json:"tgt,omitempty"` // CAS Ticket Granting Ticket
	LastAccess time.Time `json:"last_access"`
}

// IsExpired 检查会话是否超过空闲超时
func (s *Session) IsExpired(idleTimeout time.Duration) bool {
	return time.Since(s.LastAccess) > idleTimeout
}
