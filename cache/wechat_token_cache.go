package cache

import (
	"context"
	"fmt"
	"time"

	"ComfyPortal/db"
	"ComfyPortal/logger"

	"github.com/redis/go-redis/v9"
)

// 企微 access_token 官方有效期为7200秒，提前5分钟过期以避免边界失效
const wechatTokenSafetyMargin = 5 * time.Minute

func wechatTokenKey(corpID string) string {
	return fmt.Sprintf("wechat:access_token:%s", corpID)
}

// SetWechatAccessToken 缓存企微 access_token
func SetWechatAccessToken(ctx context.Context, corpID, token string, expiresIn time.Duration) error {
	ttl := expiresIn - wechatTokenSafetyMargin
	if ttl <= 0 {
		ttl = expiresIn
	}

	err := db.RedisClient.Set(ctx, wechatTokenKey(corpID), token, ttl).Err()
	if err != nil {
		logger.Error("缓存企微access_token失败", logger.ErrorField(err))
		return err
	}

	logger.Debug("企微access_token已缓存", logger.Duration("ttl", ttl))
	return nil
}

// GetWechatAccessToken 读取缓存的企微 access_token
// 缓存未命中返回空串，不作为错误处理
func GetWechatAccessToken(ctx context.Context, corpID string) (string, error) {
	val, err := db.RedisClient.Get(ctx, wechatTokenKey(corpID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", err
	}
	return val, nil
}
