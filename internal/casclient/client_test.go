package casclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeCAS 模拟 CAS 服务器
type fakeCAS struct {
	server *httptest.Server

	tgt      string
	st       string
	username string
	role     string

	failTGT       bool // TGT 请求返回 401
	omitLocation  bool // TGT 响应不带 Location 头
	badLocation   bool // Location 头不含 TGT-
	failST        bool // ST 请求返回 500
	failValidate  bool // 校验返回 authenticationFailure
	brokenXML     bool // 校验返回含成功标记但非法的 XML
	emptyUser     bool // 校验响应 cas:user 为空白
	validateCalls int32
	stCalls       int32
	lastSTBody    string
}

func newFakeCAS(t *testing.T) *fakeCAS {
	t.Helper()
	f := &fakeCAS{
		tgt:      "TGT-1-abc",
		st:       "ST-1-xyz",
		username: "alice",
		role:     "ADMIN",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/tickets", func(w http.ResponseWriter, r *http.Request) {
		if f.failTGT {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.badLocation {
			w.Header().Set("Location", f.server.URL+"/v1/tickets/bogus")
		} else if !f.omitLocation {
			w.Header().Set("Location", f.server.URL+"/v1/tickets/"+f.tgt)
		}
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("POST /v1/tickets/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.stCalls, 1)
		body, _ := io.ReadAll(r.Body)
		f.lastSTBody = string(body)
		if f.failST || !strings.HasSuffix(r.URL.Path, "/"+f.tgt) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, f.st)
	})
	mux.HandleFunc("GET /serviceValidate", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.validateCalls, 1)
		switch {
		case f.failValidate:
			io.WriteString(w, `<cas:serviceResponse xmlns:cas="http://www.yale.edu/tp/cas">
  <cas:authenticationFailure code="INVALID_TICKET">Ticket not recognized</cas:authenticationFailure>
</cas:serviceResponse>`)
		case f.brokenXML:
			io.WriteString(w, `<cas:authenticationSuccess><cas:user>`)
		case f.emptyUser:
			io.WriteString(w, `<cas:serviceResponse xmlns:cas="http://www.yale.edu/tp/cas"><cas:authenticationSuccess><cas:user>   </cas:user></cas:authenticationSuccess></cas:serviceResponse>`)
		default:
			var b strings.Builder
			b.WriteString(`<cas:serviceResponse xmlns:cas="http://www.yale.edu/tp/cas">`)
			b.WriteString(`<cas:authenticationSuccess>`)
			b.WriteString(`<cas:user>` + f.username + `</cas:user>`)
			if f.role != "" {
				b.WriteString(`<cas:attributes><cas:groupMembership>` + f.role + `</cas:groupMembership></cas:attributes>`)
			}
			b.WriteString(`</cas:authenticationSuccess></cas:serviceResponse>`)
			io.WriteString(w, b.String())
		}
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// client 创建指向模拟服务器的 CAS 客户端
func (f *fakeCAS) client() *Client {
	return New(Options{
		ServerURL:  f.server.URL + "/",
		ServiceURL: "http://localhost:8081",
		Logger:     zap.NewNop(),
	})
}

func TestRequestTGT_Success(t *testing.T) {
	f := newFakeCAS(t)

	tgt, err := f.client().RequestTGT(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "TGT-1-abc", tgt)
}

func TestRequestTGT_BadPassword(t *testing.T) {
	f := newFakeCAS(t)
	f.failTGT = true

	_, err := f.client().RequestTGT(context.Background(), "alice", "wrong")
	assert.Error(t, err)
}

func TestRequestTGT_NoLocationHeader(t *testing.T) {
	f := newFakeCAS(t)
	f.omitLocation = true

	_, err := f.client().RequestTGT(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, ErrNoLocationHeader)
}

func TestRequestTGT_LocationWithoutTGT(t *testing.T) {
	f := newFakeCAS(t)
	f.badLocation = true

	_, err := f.client().RequestTGT(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, ErrTGTNotInLocation)
}

func TestRequestTGT_ServerUnreachable(t *testing.T) {
	c := New(Options{ServerURL: "http://127.0.0.1:1/", Logger: zap.NewNop()})

	_, err := c.RequestTGT(context.Background(), "alice", "pw")
	assert.Error(t, err)
}

func TestRequestServiceTicket_Success(t *testing.T) {
	f := newFakeCAS(t)

	st, err := f.client().RequestServiceTicket(context.Background(), "TGT-1-abc", "http://localhost:8081", "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "ST-1-xyz", st)

	// service 原样写入请求体，凭据随后附带
	assert.True(t, strings.HasPrefix(f.lastSTBody, "service=http://localhost:8081"))
	assert.Contains(t, f.lastSTBody, "username=alice")
	assert.Contains(t, f.lastSTBody, "password="+url.QueryEscape("pw"))
}

func TestRequestServiceTicket_OmitsCredentials(t *testing.T) {
	f := newFakeCAS(t)

	// 凭据不全时只携带 service，持有效 TGT 续票
	_, err := f.client().RequestServiceTicket(context.Background(), "TGT-1-abc", "http://localhost:8081", "", "")
	require.NoError(t, err)
	assert.Equal(t, "service=http://localhost:8081", f.lastSTBody)

	_, err = f.client().RequestServiceTicket(context.Background(), "TGT-1-abc", "http://localhost:8081", "alice", "")
	require.NoError(t, err)
	assert.Equal(t, "service=http://localhost:8081", f.lastSTBody)
}

func TestRequestServiceTicket_Non2xx(t *testing.T) {
	f := newFakeCAS(t)
	f.failST = true

	_, err := f.client().RequestServiceTicket(context.Background(), "TGT-1-abc", "http://localhost:8081", "", "")
	assert.Error(t, err)
}

func TestValidateServiceTicket_SuccessWithRole(t *testing.T) {
	f := newFakeCAS(t)

	detail := f.client().ValidateServiceTicket(context.Background(), "ST-1-xyz", "http://localhost:8081")
	require.True(t, detail.Success)
	assert.Equal(t, "alice", detail.Username)
	assert.Equal(t, "ADMIN", detail.Role)
}

func TestValidateServiceTicket_SuccessWithoutRole(t *testing.T) {
	f := newFakeCAS(t)
	f.role = ""

	detail := f.client().ValidateServiceTicket(context.Background(), "ST-1-xyz", "http://localhost:8081")
	require.True(t, detail.Success)
	assert.Equal(t, "alice", detail.Username)
	assert.Empty(t, detail.Role)
}

func TestValidateServiceTicket_AuthenticationFailure(t *testing.T) {
	f := newFakeCAS(t)
	f.failValidate = true

	detail := f.client().ValidateServiceTicket(context.Background(), "ST-bogus", "http://localhost:8081")
	assert.False(t, detail.Success)
	assert.Empty(t, detail.Username)
}

func TestValidateServiceTicket_BrokenXML(t *testing.T) {
	f := newFakeCAS(t)
	f.brokenXML = true

	detail := f.client().ValidateServiceTicket(context.Background(), "ST-1-xyz", "http://localhost:8081")
	assert.False(t, detail.Success)
}

func TestValidateServiceTicket_BlankUser(t *testing.T) {
	f := newFakeCAS(t)
	f.emptyUser = true

	detail := f.client().ValidateServiceTicket(context.Background(), "ST-1-xyz", "http://localhost:8081")
	assert.False(t, detail.Success)
}

func TestPerformLogin_Happy(t *testing.T) {
	f := newFakeCAS(t)

	result := f.client().PerformLogin(context.Background(), "alice", "pw")
	require.True(t, result.Success)
	assert.Equal(t, "Login successful", result.Message)
	assert.Equal(t, "ST-1-xyz", result.ServiceTicket)
	assert.Equal(t, "CASTGC=TGT-1-abc; Path=/; Secure; HttpOnly", result.CastgcCookie)
	require.NotNil(t, result.UserDetail)
	assert.Equal(t, "alice", result.UserDetail.Username)
	assert.Equal(t, "ADMIN", result.UserDetail.Role)
}

func TestPerformLogin_TGTStageFails(t *testing.T) {
	f := newFakeCAS(t)
	f.failTGT = true

	result := f.client().PerformLogin(context.Background(), "alice", "wrong")
	require.False(t, result.Success)
	assert.Equal(t, "Failed to obtain TGT", result.Message)
	// 失败结果不携带任何可选字段
	assert.Empty(t, result.ServiceTicket)
	assert.Empty(t, result.CastgcCookie)
	assert.Nil(t, result.UserDetail)
	// 后续步骤不再执行
	assert.EqualValues(t, 0, f.stCalls)
	assert.EqualValues(t, 0, f.validateCalls)
}

func TestPerformLogin_STStageFails(t *testing.T) {
	f := newFakeCAS(t)
	f.failST = true

	result := f.client().PerformLogin(context.Background(), "alice", "pw")
	require.False(t, result.Success)
	assert.Equal(t, "Failed to obtain service ticket", result.Message)
	assert.Empty(t, result.CastgcCookie)
	assert.EqualValues(t, 0, f.validateCalls)
}

func TestPerformLogin_ValidateStageFails(t *testing.T) {
	f := newFakeCAS(t)
	f.failValidate = true

	result := f.client().PerformLogin(context.Background(), "alice", "pw")
	require.False(t, result.Success)
	assert.Equal(t, "Service ticket validation failed", result.Message)
	assert.Empty(t, result.CastgcCookie)
}

func TestPerformAuthen_MissingTGT(t *testing.T) {
	f := newFakeCAS(t)

	result := f.client().PerformAuthen(context.Background(), "")
	require.False(t, result.Success)
	assert.EqualValues(t, 0, f.stCalls)
}

func TestPerformAuthen_Success(t *testing.T) {
	f := newFakeCAS(t)

	result := f.client().PerformAuthen(context.Background(), "TGT-1-abc")
	require.True(t, result.Success)
	assert.Equal(t, "Authenticate successful", result.Message)
	assert.Equal(t, "ST-1-xyz", result.ServiceTicket)
	require.NotNil(t, result.UserDetail)
	assert.Equal(t, "alice", result.UserDetail.Username)

	// 凭据省略，服务票据只校验一次
	assert.Equal(t, "service=http://localhost:8081", f.lastSTBody)
	assert.EqualValues(t, 1, f.validateCalls)
}

func TestPerformAuthen_STStageFails(t *testing.T) {
	f := newFakeCAS(t)
	f.failST = true

	result := f.client().PerformAuthen(context.Background(), "TGT-expired")
	require.False(t, result.Success)
	assert.Equal(t, "Failed to obtain service ticket", result.Message)
}
