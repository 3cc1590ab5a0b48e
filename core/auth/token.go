package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired = errors.New("token 已过期")
	ErrTokenInvalid = errors.New("token 无效")
)

// 本地登录 token 24小时，企微登录 7 天
const (
	localTokenTTL  = 24 * time.Hour
	wechatTokenTTL = 7 * 24 * time.Hour
)

var jwtSecret = []byte("your-secret-key")

// SetJWTSecret configures the signing secret. Call once at startup.
func SetJWTSecret(secret string) {
	if secret != "" {
		jwtSecret = []byte(secret)
	}
}

// Claims 自定义 JWT 声明
type Claims struct {
	UserID       int64  `json:"userId"`
	Username     string `json:"username"`
	WechatUserID string `json:"wechatUserId,omitempty"`
	jwt.RegisteredClaims
}

func signToken(userID int64, username, wechatUserID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:       userID,
		Username:     username,
		WechatUserID: wechatUserID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "comfyportal",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// GenerateToken issues a session token for a locally authenticated user.
func GenerateToken(userID int64, username string) (string, error) {
	return signToken(userID, username, "", localTokenTTL)
}

// GenerateWechatToken issues a session token for a WeChat Work authenticated user.
func GenerateWechatToken(userID int64, username, wechatUserID string) (string, error) {
	return signToken(userID, username, wechatUserID, wechatTokenTTL)
}

// ParseToken 解析并验证 Token
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return jwtSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
