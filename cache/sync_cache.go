package cache

import (
	"context"
	"time"

	"ComfyPortal/db"
	"ComfyPortal/logger"

	"github.com/redis/go-redis/v9"
)

const lastSyncTimeKey = "user_sync:last_sync_time"

// SetLastSyncTime 记录最近一次用户同步完成时间
func SetLastSyncTime(ctx context.Context, t time.Time) error {
	err := db.RedisClient.Set(ctx, lastSyncTimeKey, t.Format(time.RFC3339), 0).Err()
	if err != nil {
		logger.Error("记录同步时间失败", logger.ErrorField(err))
		return err
	}
	return nil
}

// GetLastSyncTime 读取最近一次用户同步完成时间
// 从未同步过时返回零值时间，不作为错误处理
func GetLastSyncTime(ctx context.Context) (time.Time, error) {
	val, err := db.RedisClient.Get(ctx, lastSyncTimeKey).Result()
	if err != nil {
		if err == redis.Nil {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}

	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		logger.Warn("同步时间格式无效", logger.String("value", val), logger.ErrorField(err))
		return time.Time{}, nil
	}
	return t, nil
}
