package casclient

// UserDetail CAS 校验返回的用户信息
type UserDetail struct {
	Success  bool   `json:"success"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

// UserDetailSuccess 构造校验成功结果
func UserDetailSuccess(username, role string) *UserDetail {
	return &UserDetail{Success: true, Username: username, Role: role}
}

// UserDetailFailure 构造校验失败结果
func UserDetailFailure() *UserDetail {
	return &UserDetail{Success: false}
}

// LoginResult 完整登录流程结果
// Success 为 true 当且仅当 TGT、ST、校验三步全部成功
type LoginResult struct {
	Success       bool
	Message       string
	ServiceTicket string
	CastgcCookie  string
	UserDetail    *UserDetail
}

// loginSuccess 构造登录成功结果
func loginSuccess(serviceTicket, castgcCookie string, detail *UserDetail) *LoginResult {
	return &LoginResult{
		Success:       true,
		Message:       "Login successful",
		ServiceTicket: serviceTicket,
		CastgcCookie:  castgcCookie,
		UserDetail:    detail,
	}
}

// loginFailure 构造登录失败结果，可选字段全部置空
func loginFailure(message string) *LoginResult {
	return &LoginResult{Success: false, Message: message}
}

// AuthenResult 基于已有 TGT 的重认证结果
type AuthenResult struct {
	Success       bool
	Message       string
	ServiceTicket string
	UserDetail    *UserDetail
}

// authenSuccess 构造重认证成功结果
func authenSuccess(serviceTicket string, detail *UserDetail) *AuthenResult {
	return &AuthenResult{
		Success:       true,
		Message:       "Authenticate successful",
		ServiceTicket: serviceTicket,
		UserDetail:    detail,
	}
}

// authenFailure 构造重认证失败结果
func authenFailure(message string) *AuthenResult {
	return &AuthenResult{Success: false, Message: message}
}
