package wechat

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"ComfyPortal/cache"
	"ComfyPortal/config"
	"ComfyPortal/db"
	"ComfyPortal/logger"
)

// ErrConfigIncomplete is returned when the WeChat Work credentials are not
// fully configured. The service refuses to call the API with partial
// configuration.
var ErrConfigIncomplete = errors.New("企微配置不完整")

// Service wraps the WeChat Work OAuth flow: authorize URL building, token
// exchange and profile fetching. Configuration is injected at construction.
type Service struct {
	corpID      string
	agentID     string
	secret      string
	redirectURI string
	client      *Client
}

// NewService 创建企微服务
func NewService(cfg *config.Config) *Service {
	return &Service{
		corpID:      cfg.WechatCorpID,
		agentID:     cfg.WechatAgentID,
		secret:      cfg.WechatSecret,
		redirectURI: cfg.WechatRedirectURI,
		client:      NewClient(cfg.WechatAPITimeout),
	}
}

// ValidateConfig 验证企微配置是否完整
func (s *Service) ValidateConfig() error {
	if s.corpID == "" || s.agentID == "" || s.secret == "" {
		return ErrConfigIncomplete
	}
	return nil
}

// ConfigStatus reports which credential fields are present, for the
// operational config-check endpoint.
func (s *Service) ConfigStatus() map[string]bool {
	return map[string]bool{
		"corpId":  s.corpID != "",
		"agentId": s.agentID != "",
		"secret":  s.secret != "",
	}
}

// AuthURL 构造企微授权URL，state 用于防止CSRF
func (s *Service) AuthURL(state string) string {
	params := url.Values{}
	params.Set("appid", s.corpID)
	params.Set("redirect_uri", s.redirectURI)
	params.Set("response_type", "code")
	params.Set("scope", "snsapi_base")
	params.Set("state", state)

	return fmt.Sprintf("%s?%s#wechat_redirect", authorizeBaseURL, params.Encode())
}

// accessToken returns a corp access token, from the Redis cache when one is
// still live, otherwise freshly exchanged via gettoken.
func (s *Service) accessToken(ctx context.Context) (string, error) {
	if err := s.ValidateConfig(); err != nil {
		return "", err
	}

	if db.RedisClient != nil {
		if token, err := cache.GetWechatAccessToken(ctx, s.corpID); err == nil && token != "" {
			return token, nil
		}
	}

	params := url.Values{}
	params.Set("corpid", s.corpID)
	params.Set("corpsecret", s.secret)

	var resp tokenResponse
	if err := s.client.getJSON(ctx, "/gettoken", params, &resp); err != nil {
		return "", err
	}
	if !resp.ok() {
		return "", fmt.Errorf("获取access_token失败: %s", resp.ErrMsg)
	}

	if db.RedisClient != nil {
		expiresIn := time.Duration(resp.ExpiresIn) * time.Second
		if err := cache.SetWechatAccessToken(ctx, s.corpID, resp.AccessToken, expiresIn); err != nil {
			logger.Warn("缓存企微access_token失败", logger.ErrorField(err))
		}
	}
	return resp.AccessToken, nil
}

// ExchangeCode 通过授权码换取企微用户ID
func (s *Service) ExchangeCode(ctx context.Context, code string) (string, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("access_token", token)
	params.Set("code", code)

	var resp userInfoResponse
	if err := s.client.getJSON(ctx, "/auth/getuserinfo", params, &resp); err != nil {
		return "", err
	}
	if !resp.ok() {
		return "", fmt.Errorf("获取用户信息失败: %s", resp.ErrMsg)
	}
	if resp.UserID == "" {
		return "", fmt.Errorf("授权码未关联企业成员")
	}
	return resp.UserID, nil
}

// FetchUserDetail 获取企微用户详细档案
func (s *Service) FetchUserDetail(ctx context.Context, userID string) (*UserDetail, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("access_token", token)
	params.Set("userid", userID)

	var detail UserDetail
	if err := s.client.getJSON(ctx, "/user/get", params, &detail); err != nil {
		return nil, err
	}
	if !detail.ok() {
		return nil, fmt.Errorf("获取用户详情失败: %s", detail.ErrMsg)
	}
	return &detail, nil
}
