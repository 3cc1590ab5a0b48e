package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"ComfyPortal/core/auth"
	"ComfyPortal/logger"

	"github.com/gorilla/mux"
)

// SyncUsersHandler 手动触发全量用户同步
func (h *APIHandler) SyncUsersHandler(w http.ResponseWriter, r *http.Request) {
	logger.Info("开始手动同步用户数据...")

	result, err := h.reconciler.SyncAll(r.Context())
	if err != nil {
		logger.Error("同步用户失败", logger.ErrorField(err))
		writeJSON(w, http.StatusInternalServerError, apiResponse{
			Success: false,
			Message: "同步用户失败",
			Error:   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "用户同步完成",
		Data:    result,
	})
}

// EnterpriseLoginHandler 企业用户登录（同步账号 + 默认密码）
func (h *APIHandler) EnterpriseLoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "用户名和密码不能为空")
		return
	}

	result, err := h.reconciler.ValidateLogin(req.Username, req.Password)
	if err != nil {
		logger.Error("登录失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "登录失败")
		return
	}

	if !result.Success {
		writeError(w, http.StatusUnauthorized, result.Message)
		return
	}

	token, err := auth.GenerateToken(result.User.ID, result.User.Username)
	if err != nil {
		logger.Error("生成Token失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "登录失败")
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "登录成功",
		Data: map[string]interface{}{
			"token": token,
			"user":  result.User.Public(),
		},
	})
}

// SyncStatsHandler 返回用户总数与最近一次同步时间
func (h *APIHandler) SyncStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reconciler.Stats(r.Context())
	if err != nil {
		logger.Error("获取同步统计失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "获取同步统计失败")
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: stats})
}

// CheckUserHandler 检查用户是否存在
func (h *APIHandler) CheckUserHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	user, err := h.reconciler.FindUserByUsername(username)
	if err != nil {
		logger.Error("检查用户失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "检查用户失败")
		return
	}

	data := map[string]interface{}{"exists": user != nil}
	if user != nil {
		data["user"] = map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		}
	}

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: data})
}

// ResetPasswordHandler 管理操作：重置用户密码为默认密码
func (h *APIHandler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	if err := h.reconciler.ResetPassword(username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "用户不存在")
			return
		}
		logger.Error("重置密码失败", logger.String("username", username), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "重置密码失败")
		return
	}

	logger.Info("密码已重置为默认密码", logger.String("username", username))
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "密码重置成功",
		Data:    map[string]string{"username": username},
	})
}
