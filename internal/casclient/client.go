// Package casclient CAS REST 协议客户端
//
// 实现三步票据交换：TGT → ST → serviceValidate。
// 所有网络和协议错误都在本层捕获并降级为失败结果，不向上抛出。
package casclient

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// 协议错误
var (
	ErrTGTNotInLocation = errors.New("Location 头中未包含 TGT")
	ErrNoLocationHeader = errors.New("响应缺少 Location 头")
	ErrValidationFailed = errors.New("服务票据校验未通过")
	ErrUserElementEmpty = errors.New("校验响应缺少 cas:user 元素")
)

// 登录各阶段的失败消息，随 HTTP 响应原样返回
const (
	msgTGTFailed      = "Failed to obtain TGT"
	msgSTFailed       = "Failed to obtain service ticket"
	msgValidateFailed = "Service ticket validation failed"
	msgTGTMissing     = "TGT is missing"
)

// Options 客户端参数
type Options struct {
	// ServerURL CAS 服务器根地址，必须以 / 结尾
	ServerURL string
	// ServiceURL 本服务在 CAS 侧注册的 service 地址
	ServiceURL string
	// HTTPClient 出站 HTTP 客户端，通常由 tlsclient 构建
	HTTPClient *http.Client
	// Logger 日志
	Logger *zap.Logger
}

// Client CAS 协议客户端
type Client struct {
	serverURL  string
	serviceURL string
	http       *http.Client
	logger     *zap.Logger
}

// New 创建 CAS 协议客户端
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		serverURL:  opts.ServerURL,
		serviceURL: opts.ServiceURL,
		http:       httpClient,
		logger:     logger,
	}
}

// ServerURL 返回 CAS 服务器根地址
func (c *Client) ServerURL() string { return c.serverURL }

// ServiceURL 返回客户端 service 地址
func (c *Client) ServiceURL() string { return c.serviceURL }

// HTTPClient 返回底层 HTTP 客户端
func (c *Client) HTTPClient() *http.Client { return c.http }

// RequestTGT 第一步：请求 TGT
// REST 协议下不携带 service 参数，避免部分 CAS 服务器的 SSO 拒绝分支
func (c *Client) RequestTGT(ctx context.Context, username, password string) (string, error) {
	tgtURL := c.serverURL + "v1/tickets"
	c.logger.Info("请求 TGT", zap.String("url", tgtURL), zap.String("username", username))

	body := url.Values{
		"username": {username},
		"password": {password},
	}.Encode()

	resp, err := c.postForm(ctx, tgtURL, body)
	if err != nil {
		c.logger.Error("请求 TGT 失败", zap.Error(err))
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if !is2xx(resp.StatusCode) {
		err := fmt.Errorf("请求 TGT 返回非 2xx 状态: %d", resp.StatusCode)
		c.logger.Error("请求 TGT 失败", zap.Int("status", resp.StatusCode))
		return "", err
	}

	location := resp.Header.Get("Location")
	if location == "" {
		c.logger.Error("请求 TGT 失败", zap.Error(ErrNoLocationHeader))
		return "", ErrNoLocationHeader
	}

	tgt := ExtractTGT(location)
	if tgt == "" {
		c.logger.Error("请求 TGT 失败", zap.Error(ErrTGTNotInLocation), zap.String("location", location))
		return "", ErrTGTNotInLocation
	}

	c.logger.Info("TGT 获取成功", zap.String("tgt", tgt))
	return tgt, nil
}

// RequestServiceTicket 第二步：用 TGT 换取服务票据
// username/password 仅在两者均非空时附带；持有效 TGT 续票时可省略凭据
func (c *Client) RequestServiceTicket(ctx context.Context, tgt, service, username, password string) (string, error) {
	stURL := c.serverURL + "v1/tickets/" + tgt
	c.logger.Info("请求服务票据", zap.String("url", stURL), zap.String("service", service))

	// service 原样写入请求体，不做二次 URL 编码
	body := "service=" + service
	if username != "" && password != "" {
		body += "&" + url.Values{
			"username": {username},
			"password": {password},
		}.Encode()
	}

	resp, err := c.postForm(ctx, stURL, body)
	if err != nil {
		c.logger.Error("请求服务票据失败", zap.Error(err))
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("读取服务票据响应失败", zap.Error(err))
		return "", err
	}

	if !is2xx(resp.StatusCode) {
		err := fmt.Errorf("请求服务票据返回非 2xx 状态: %d", resp.StatusCode)
		c.logger.Error("请求服务票据失败", zap.Int("status", resp.StatusCode))
		return "", err
	}

	// 响应体本身即服务票据，原样返回
	st := string(data)
	c.logger.Info("服务票据获取成功", zap.String("st", st))
	return st, nil
}

// ValidateServiceTicket 第三步：校验服务票据并解析用户信息
// 任何错误都降级为失败结果
func (c *Client) ValidateServiceTicket(ctx context.Context, serviceTicket, service string) *UserDetail {
	// ticket 与 service 原样拼接，不做额外编码
	validateURL := c.serverURL + "serviceValidate?ticket=" + serviceTicket + "&service=" + service
	c.logger.Info("校验服务票据", zap.String("url", validateURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, validateURL, nil)
	if err != nil {
		c.logger.Error("构造校验请求失败", zap.Error(err))
		return UserDetailFailure()
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("校验服务票据失败", zap.Error(err))
		return UserDetailFailure()
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("读取校验响应失败", zap.Error(err))
		return UserDetailFailure()
	}

	if !is2xx(resp.StatusCode) {
		c.logger.Error("校验服务票据失败", zap.Int("status", resp.StatusCode))
		return UserDetailFailure()
	}

	detail, err := parseValidateResponse(data)
	if err != nil {
		c.logger.Error("解析校验响应失败", zap.Error(err))
		return UserDetailFailure()
	}

	c.logger.Info("服务票据校验成功",
		zap.String("username", detail.Username),
		zap.String("role", detail.Role),
	)
	return detail
}

// PerformLogin 完整登录流程：TGT → ST → 校验
// 任一步失败即终止，不重试
func (c *Client) PerformLogin(ctx context.Context, username, password string) *LoginResult {
	tgt, err := c.RequestTGT(ctx, username, password)
	if err != nil {
		return loginFailure(msgTGTFailed)
	}

	serviceTicket, err := c.RequestServiceTicket(ctx, tgt, c.serviceURL, username, password)
	if err != nil {
		return loginFailure(msgSTFailed)
	}

	detail := c.ValidateServiceTicket(ctx, serviceTicket, c.serviceURL)
	if !detail.Success {
		return loginFailure(msgValidateFailed)
	}

	// CASTGC cookie 由服务端拼装，浏览器场景下由 CAS 服务器直接种下
	castgcCookie := "CASTGC=" + tgt + "; Path=/; Secure; HttpOnly"

	return loginSuccess(serviceTicket, castgcCookie, detail)
}

// PerformAuthen 基于已有 TGT 的重认证：跳过 TGT 获取，凭据省略
// 服务票据只校验一次，用户信息直接携带在结果中
func (c *Client) PerformAuthen(ctx context.Context, tgt string) *AuthenResult {
	if tgt == "" {
		return authenFailure(msgTGTMissing)
	}

	serviceTicket, err := c.RequestServiceTicket(ctx, tgt, c.serviceURL, "", "")
	if err != nil {
		return authenFailure(msgSTFailed)
	}

	detail := c.ValidateServiceTicket(ctx, serviceTicket, c.serviceURL)
	if !detail.Success {
		return authenFailure(msgValidateFailed)
	}

	return authenSuccess(serviceTicket, detail)
}

// postForm 发送 application/x-www-form-urlencoded POST 请求
func (c *Client) postForm(ctx context.Context, rawURL, body string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.http.Do(req)
}

// is2xx 判断 HTTP 状态码是否为 2xx
func is2xx(status int) bool {
	return status >= 200 && status < 300
}

// serviceResponse cas:serviceResponse 响应结构
// 标签不限定命名空间，兼容不同 CAS 部署的 xmlns 取值
type serviceResponse struct {
	Success *authenticationSuccess `xml:"authenticationSuccess"`
}

type authenticationSuccess struct {
	User       string         `xml:"user"`
	Attributes *casAttributes `xml:"attributes"`
}

type casAttributes struct {
	GroupMembership string `xml:"groupMembership"`
}

// parseValidateResponse 解析 serviceValidate 的 XML 响应
// 先以字面量判定成功标记，再提取 cas:user 与可选的 cas:groupMembership
func parseValidateResponse(data []byte) (*UserDetail, error) {
	if !strings.Contains(string(data), "<cas:authenticationSuccess>") {
		return nil, ErrValidationFailed
	}

	var resp serviceResponse
	if err := xml.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	if resp.Success == nil {
		return nil, ErrValidationFailed
	}

	username := strings.TrimSpace(resp.Success.User)
	if username == "" {
		return nil, ErrUserElementEmpty
	}

	role := ""
	if resp.Success.Attributes != nil {
		role = strings.TrimSpace(resp.Success.Attributes.GroupMembership)
	}

	return UserDetailSuccess(username, role), nil
}
