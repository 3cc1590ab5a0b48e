package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// All values come from the environment (optionally via a .env file) with
// sensible defaults for local development.
type Config struct {
	ServerAddr string

	// 本地用户库 (MySQL)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// 外部员工库 (legacy MySQL, 只读)
	ExternalDBHost     string
	ExternalDBPort     string
	ExternalDBUser     string
	ExternalDBPassword string
	ExternalDBName     string
	ExternalUserTable  string

	// 同步新建账号使用的默认密码
	SyncDefaultPassword string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// 企业微信配置
	WechatCorpID      string
	WechatAgentID     string
	WechatSecret      string
	WechatRedirectURI string
	WechatAPITimeout  time.Duration

	// ComfyUI 后端
	ComfyUIURL     string
	ComfyUITimeout time.Duration

	// MinIO 对象存储
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// JWT
	JWTSecret string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// Attempt to load .env file. godotenv.Load() will not override existing env vars.
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // For password, better not to have a hardcoded default
		DBName:     getEnv("DB_NAME", "comfyportal"),

		ExternalDBHost:     getEnv("EXTERNAL_DB_HOST", "127.0.0.1"),
		ExternalDBPort:     getEnv("EXTERNAL_DB_PORT", "3307"),
		ExternalDBUser:     getEnv("EXTERNAL_DB_USER", "root"),
		ExternalDBPassword: os.Getenv("EXTERNAL_DB_PASSWORD"),
		ExternalDBName:     getEnv("EXTERNAL_DB_NAME", "haers_boot"),
		ExternalUserTable:  getEnv("EXTERNAL_USER_TABLE", "sys_user"),

		SyncDefaultPassword: getEnv("SYNC_DEFAULT_PASSWORD", "123456"),

		// Redis配置，使用默认值
		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""), // 默认无密码
		RedisDB:       getEnvInt("REDIS_DB", 0),     // 默认使用0号数据库

		WechatCorpID:      os.Getenv("WECHAT_CORP_ID"),
		WechatAgentID:     os.Getenv("WECHAT_AGENT_ID"),
		WechatSecret:      os.Getenv("WECHAT_SECRET"),
		WechatRedirectURI: getEnv("WECHAT_REDIRECT_URI", "http://localhost:8080/api/auth/wechat/callback"),
		WechatAPITimeout:  time.Duration(getEnvInt("WECHAT_API_TIMEOUT", 10)) * time.Second,

		ComfyUIURL:     getEnv("COMFYUI_URL", "http://127.0.0.1:8188"),
		ComfyUITimeout: time.Duration(getEnvInt("COMFYUI_TIMEOUT", 30)) * time.Second,

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "comfyportal"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		JWTSecret: getEnv("JWT_SECRET", "your-secret-key"),
	}
}
