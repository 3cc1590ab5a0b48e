package server

import (
	"errors"
	"net/http"

	"ComfyPortal/core/auth"
	"ComfyPortal/core/wechat"
	"ComfyPortal/logger"

	"github.com/google/uuid"
)

// WechatAuthURLHandler 生成企微登录授权URL
func (h *APIHandler) WechatAuthURLHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.wechatSvc.ValidateConfig(); err != nil {
		logger.Error("企微配置无效", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "企微配置无效，请联系管理员")
		return
	}

	// state 用于防止CSRF攻击
	state := uuid.New().String()
	authURL := h.wechatSvc.AuthURL(state)

	logger.Info("企微授权URL生成成功")
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Data: map[string]string{
			"authUrl": authURL,
			"state":   state,
		},
	})
}

// WechatCallbackHandler 企微登录回调处理
func (h *APIHandler) WechatCallbackHandler(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "缺少授权码")
		return
	}

	logger.Info("收到企微登录回调", logger.String("code", code))

	userID, err := h.wechatSvc.ExchangeCode(r.Context(), code)
	if err != nil {
		h.writeWechatError(w, err)
		return
	}

	detail, err := h.wechatSvc.FetchUserDetail(r.Context(), userID)
	if err != nil {
		h.writeWechatError(w, err)
		return
	}

	user, err := h.wechatBridge.ResolveUser(detail)
	if err != nil {
		logger.Error("企微登录失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "企微登录失败，请重试")
		return
	}

	token, err := auth.GenerateWechatToken(user.ID, user.Username, user.WechatUserID.String)
	if err != nil {
		logger.Error("生成Token失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "企微登录失败，请重试")
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "企微登录成功",
		Data: map[string]interface{}{
			"token": token,
			"user":  user.Public(),
		},
	})
}

// WechatConfigHandler 检查企微配置状态
func (h *APIHandler) WechatConfigHandler(w http.ResponseWriter, r *http.Request) {
	status := h.wechatSvc.ConfigStatus()
	enabled := h.wechatSvc.ValidateConfig() == nil

	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Data: map[string]interface{}{
			"enabled": enabled,
			"fields":  status,
		},
	})
}

// writeWechatError maps OAuth failures onto protocol responses: incomplete
// configuration and connectivity problems are server-side conditions, API
// rejections of the code are the caller's.
func (h *APIHandler) writeWechatError(w http.ResponseWriter, err error) {
	logger.Error("企微接口调用失败", logger.ErrorField(err))

	switch {
	case errors.Is(err, wechat.ErrConfigIncomplete):
		writeError(w, http.StatusInternalServerError, "企微配置无效，请联系管理员")
	case errors.Is(err, wechat.ErrConnectivity):
		writeError(w, http.StatusBadGateway, "无法连接企业微信服务器，请稍后重试")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}
