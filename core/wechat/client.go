package wechat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// 企业微信开放API地址
const (
	defaultBaseURL   = "https://qyapi.weixin.qq.com/cgi-bin"
	authorizeBaseURL = "https://open.weixin.qq.com/connect/oauth2/authorize"
)

// ErrConnectivity marks failures to reach the WeChat Work API at all, as
// opposed to errors the API itself returned. Operators may retry these.
var ErrConnectivity = errors.New("无法连接企业微信服务器")

// Client 企业微信API客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建新的API客户端
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBaseURL 设置API基础URL（测试用）
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// apiError is the errcode/errmsg envelope every WeChat Work response carries.
type apiError struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

func (e *apiError) ok() bool { return e.ErrCode == 0 }

type tokenResponse struct {
	apiError
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type userInfoResponse struct {
	apiError
	UserID   string `json:"UserId"`
	DeviceID string `json:"DeviceId"`
}

// UserDetail is the extended profile from the user/get endpoint.
type UserDetail struct {
	apiError
	UserID     string `json:"userid"`
	Name       string `json:"name"`
	Mobile     string `json:"mobile"`
	Email      string `json:"email"`
	Avatar     string `json:"avatar"`
	Position   string `json:"position"`
	Department []int  `json:"department"`
}

// getJSON issues a GET against the API and decodes the JSON body.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build wechat request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read wechat response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode wechat response: %w", err)
	}
	return nil
}
