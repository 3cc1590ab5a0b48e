package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"ComfyPortal/config"
	"ComfyPortal/core/auth"
	"ComfyPortal/core/sync"
	"ComfyPortal/core/wechat"
	"ComfyPortal/repository"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	userRepo     repository.UserRepository
	creditTxRepo repository.CreditTransactionRepository
	reconciler   *sync.Reconciler
	wechatSvc    *wechat.Service
	wechatBridge *wechat.Bridge
	cfg          *config.Config
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	userRepo repository.UserRepository,
	creditTxRepo repository.CreditTransactionRepository,
	reconciler *sync.Reconciler,
	wechatSvc *wechat.Service,
	wechatBridge *wechat.Bridge,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		userRepo:     userRepo,
		creditTxRepo: creditTxRepo,
		reconciler:   reconciler,
		wechatSvc:    wechatSvc,
		wechatBridge: wechatBridge,
		cfg:          cfg,
	}
}

// apiResponse is the common envelope for JSON responses.
type apiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiResponse{Success: false, Message: message})
}

type contextKey string

const (
	ctxKeyUserID   contextKey = "userID"
	ctxKeyUsername contextKey = "username"
)

// AuthMiddleware is a middleware function that checks for a valid JWT token
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := auth.ParseToken(parts[1])
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxKeyUsername, claims.Username)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(ctxKeyUserID).(int64)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// CreditHistoryHandler 返回当前用户的积分流水
func (h *APIHandler) CreditHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	txs, err := h.creditTxRepo.ListByUser(userID, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "获取积分流水失败")
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: txs})
}
