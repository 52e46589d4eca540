package model

// Identity 请求级认证主体
// 由认证中间件绑定到请求上下文，随请求结束而销毁
type Identity struct {
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Authorities []string `json:"authorities"`
}

// NewIdentity 构造认证主体，权限为 "ROLE_" + 角色
func NewIdentity(username, role string) *Identity {
	return &Identity{
		Username:    username,
		Role:        role,
		Authorities: []string{"ROLE_" + role},
	}
}

// HasAnyRole 检查是否拥有任一指定角色
func (i *Identity) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		for _, authority := range i.Authorities {
			if authority == "ROLE_"+role {
				return true
			}
		}
	}
	return false
}
