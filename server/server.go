package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ComfyPortal/config"
	"ComfyPortal/core/auth"
	"ComfyPortal/core/sync"
	"ComfyPortal/core/wechat"
	"ComfyPortal/db"
	"ComfyPortal/logger"
	"ComfyPortal/model"
	"ComfyPortal/repository"
	"ComfyPortal/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.InfoLevel,
		OutputPath: "logs/comfyportal.log",
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
		Compress:   true,
	})

	auth.SetJWTSecret(cfg.JWTSecret)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 初始化 MinIO 客户端
	if err := storage.InitMinio(cfg); err != nil {
		log.Fatalf("Failed to initialize MinIO: %v", err)
	}

	// Connect to the database
	if err := db.ConnectDB(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.DB.Close()

	if err := db.ConnectGormDB(cfg); err != nil {
		log.Fatalf("Failed to connect to database with GORM: %v", err)
	}
	defer db.CloseGormDB()

	// Connect to Redis
	if err := db.ConnectRedis(cfg); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer db.CloseRedis()
	log.Println("Successfully connected to Redis")

	// Initialize database schema
	if err := db.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := db.AutoMigrateModels(&model.CreditTransaction{}); err != nil {
		log.Fatalf("Failed to migrate models: %v", err)
	}

	userRepo := repository.NewMySQLUserRepository(db.DB)
	creditTxRepo := repository.NewGormCreditTransactionRepository(db.GormDB)

	reconciler := sync.NewReconciler(
		func(ctx context.Context) (sync.ExternalSource, error) {
			return sync.OpenMySQLSource(ctx, cfg)
		},
		userRepo,
		creditTxRepo,
		cfg.SyncDefaultPassword,
	)

	wechatSvc := wechat.NewService(cfg)
	wechatBridge := wechat.NewBridge(userRepo, creditTxRepo)

	apiHandler := NewAPIHandler(userRepo, creditTxRepo, reconciler, wechatSvc, wechatBridge, cfg)

	// 使用 gorilla/mux 创建路由器
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 用户认证相关的API端点
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)

	// 企微登录相关的API端点
	router.HandleFunc("/api/auth/wechat/url", apiHandler.WechatAuthURLHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/auth/wechat/callback", apiHandler.WechatCallbackHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/auth/wechat/config", apiHandler.WechatConfigHandler).Methods(http.MethodGet)

	// 员工同步相关的API端点
	router.HandleFunc("/api/users/sync", apiHandler.AuthMiddleware(apiHandler.SyncUsersHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/users/sync/stats", apiHandler.AuthMiddleware(apiHandler.SyncStatsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/users/login", apiHandler.EnterpriseLoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/users/check/{username}", apiHandler.CheckUserHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/users/reset-password/{username}", apiHandler.AuthMiddleware(apiHandler.ResetPasswordHandler)).Methods(http.MethodPost)

	// 积分流水
	router.HandleFunc("/api/users/me/credits", apiHandler.AuthMiddleware(apiHandler.CreditHistoryHandler)).Methods(http.MethodGet)

	// ComfyUI图片上传代理
	router.HandleFunc("/api/upload/image", apiHandler.AuthMiddleware(apiHandler.UploadImageHandler)).Methods(http.MethodPost)

	server.Handler = router

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 在goroutine中启动服务器
	go func() {
		log.Printf("Server starting on %s...", cfg.ServerAddr)
		log.Println("Trigger user sync via POST to /api/users/sync")
		log.Println("Enterprise login via POST to /api/users/login")
		log.Println("WeChat Work login via /api/auth/wechat endpoints")
		log.Println("Upload images via POST to /api/upload/image")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待中断信号
	<-stop
	log.Println("Shutting down server...")

	// 创建一个5秒超时的上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 优雅关闭服务器
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
