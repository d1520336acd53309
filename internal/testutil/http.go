package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

// APIClient 面向测试服务器的 HTTP 客户端
// Cookie 自动保存，登录后的请求携带会话
type APIClient struct {
	t    *testing.T
	base string
	http *http.Client
}

// NewAPIClient 创建测试客户端
func NewAPIClient(t *testing.T, ts *httptest.Server) *APIClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &APIClient{
		t:    t,
		base: ts.URL,
		http: &http.Client{Jar: jar, Timeout: 10 * time.Second},
	}
}

// Do 发送请求，body 非 nil 时以 JSON 编码
func (c *APIClient) Do(method, path string, body any) *http.Response {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, r)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req)
}

// PostForm 以表单提交
func (c *APIClient) PostForm(path string, form url.Values) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.base+path, strings.NewReader(form.Encode()))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.send(req)
}

func (c *APIClient) send(req *http.Request) *http.Response {
	c.t.Helper()
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// Cookie 返回客户端当前保存的指定 Cookie 值
func (c *APIClient) Cookie(name string) string {
	u, _ := url.Parse(c.base)
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// DecodeJSON 解码响应体
func DecodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// ExpectStatus 断言状态码
func ExpectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: status = %d, want %d, body = %s",
			resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, body)
	}
}
