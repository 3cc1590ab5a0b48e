package wechat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ComfyPortal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		WechatCorpID:      "ww_test_corp",
		WechatAgentID:     "1000002",
		WechatSecret:      "test-secret",
		WechatRedirectURI: "http://localhost:8080/api/auth/wechat/callback",
		WechatAPITimeout:  2 * time.Second,
	}
}

func TestValidateConfig(t *testing.T) {
	svc := NewService(testConfig())
	if err := svc.ValidateConfig(); err != nil {
		t.Errorf("完整配置应通过校验: %v", err)
	}

	cfg := testConfig()
	cfg.WechatSecret = ""
	svc = NewService(cfg)
	if err := svc.ValidateConfig(); !errors.Is(err, ErrConfigIncomplete) {
		t.Errorf("缺失secret应返回ErrConfigIncomplete，实际=%v", err)
	}
}

func TestConfigStatus(t *testing.T) {
	cfg := testConfig()
	cfg.WechatAgentID = ""
	status := NewService(cfg).ConfigStatus()

	if !status["corpId"] || status["agentId"] || !status["secret"] {
		t.Errorf("配置状态不符: %+v", status)
	}
}

func TestAuthURL(t *testing.T) {
	svc := NewService(testConfig())
	u := svc.AuthURL("state-123")

	for _, want := range []string{
		"appid=ww_test_corp",
		"redirect_uri=http%3A%2F%2Flocalhost%3A8080%2Fapi%2Fauth%2Fwechat%2Fcallback",
		"scope=snsapi_base",
		"state=state-123",
	} {
		if !strings.Contains(u, want) {
			t.Errorf("授权URL缺少%s: %s", want, u)
		}
	}
	if !strings.HasSuffix(u, "#wechat_redirect") {
		t.Errorf("授权URL应以#wechat_redirect结尾: %s", u)
	}
}

// fakeWechatAPI serves the three endpoints the OAuth flow touches.
func fakeWechatAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/gettoken", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("corpsecret") != "test-secret" {
			w.Write([]byte(`{"errcode":40001,"errmsg":"invalid credential"}`))
			return
		}
		w.Write([]byte(`{"errcode":0,"errmsg":"ok","access_token":"fake-token","expires_in":7200}`))
	})
	mux.HandleFunc("/auth/getuserinfo", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("code") {
		case "good-code":
			w.Write([]byte(`{"errcode":0,"errmsg":"ok","UserId":"zhangsan","DeviceId":""}`))
		case "outsider-code":
			w.Write([]byte(`{"errcode":0,"errmsg":"ok","OpenId":"oOuter"}`))
		default:
			w.Write([]byte(`{"errcode":40029,"errmsg":"invalid code"}`))
		}
	})
	mux.HandleFunc("/user/get", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("userid") != "zhangsan" {
			w.Write([]byte(`{"errcode":60111,"errmsg":"userid not found"}`))
			return
		}
		w.Write([]byte(`{"errcode":0,"errmsg":"ok","userid":"zhangsan","name":"张三","mobile":"13800000000","email":"zhangsan@haers.com","position":"设计师","department":[1,2]}`))
	})
	return httptest.NewServer(mux)
}

func TestExchangeCode(t *testing.T) {
	api := fakeWechatAPI(t)
	defer api.Close()

	svc := NewService(testConfig())
	svc.client.SetBaseURL(api.URL)

	userID, err := svc.ExchangeCode(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("有效授权码应换取成功: %v", err)
	}
	if userID != "zhangsan" {
		t.Errorf("期望userid=zhangsan，实际=%s", userID)
	}
}

func TestExchangeCode_InvalidCode(t *testing.T) {
	api := fakeWechatAPI(t)
	defer api.Close()

	svc := NewService(testConfig())
	svc.client.SetBaseURL(api.URL)

	if _, err := svc.ExchangeCode(context.Background(), "bad-code"); err == nil {
		t.Fatal("无效授权码应返回错误")
	}
}

func TestExchangeCode_NonMemberHasNoUserID(t *testing.T) {
	api := fakeWechatAPI(t)
	defer api.Close()

	svc := NewService(testConfig())
	svc.client.SetBaseURL(api.URL)

	_, err := svc.ExchangeCode(context.Background(), "outsider-code")
	if err == nil {
		t.Fatal("非企业成员应返回错误")
	}
	if !strings.Contains(err.Error(), "授权码未关联企业成员") {
		t.Errorf("错误信息不符: %v", err)
	}
}

func TestExchangeCode_IncompleteConfig(t *testing.T) {
	cfg := testConfig()
	cfg.WechatCorpID = ""
	svc := NewService(cfg)

	if _, err := svc.ExchangeCode(context.Background(), "good-code"); !errors.Is(err, ErrConfigIncomplete) {
		t.Errorf("配置不完整应直接拒绝，实际=%v", err)
	}
}

func TestFetchUserDetail(t *testing.T) {
	api := fakeWechatAPI(t)
	defer api.Close()

	svc := NewService(testConfig())
	svc.client.SetBaseURL(api.URL)

	detail, err := svc.FetchUserDetail(context.Background(), "zhangsan")
	if err != nil {
		t.Fatalf("获取用户详情应成功: %v", err)
	}
	if detail.Name != "张三" || detail.Email != "zhangsan@haers.com" {
		t.Errorf("用户详情不符: %+v", detail)
	}
	if len(detail.Department) != 2 || detail.Department[0] != 1 {
		t.Errorf("部门列表不符: %v", detail.Department)
	}
}

func TestFetchUserDetail_UnknownUser(t *testing.T) {
	api := fakeWechatAPI(t)
	defer api.Close()

	svc := NewService(testConfig())
	svc.client.SetBaseURL(api.URL)

	if _, err := svc.FetchUserDetail(context.Background(), "ghost"); err == nil {
		t.Fatal("未知userid应返回错误")
	}
}

func TestClient_ConnectivityError(t *testing.T) {
	svc := NewService(testConfig())
	// 指向一个已关闭的端口
	dead := httptest.NewServer(http.NotFoundHandler())
	addr := dead.URL
	dead.Close()
	svc.client.SetBaseURL(addr)

	_, err := svc.ExchangeCode(context.Background(), "good-code")
	if !errors.Is(err, ErrConnectivity) {
		t.Errorf("网络不可达应返回ErrConnectivity，实际=%v", err)
	}
}
