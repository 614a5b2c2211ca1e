package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/masambo/jukebox-joy-scan/db"
	"github.com/masambo/jukebox-joy-scan/logger"
	"github.com/masambo/jukebox-joy-scan/model"
)

// catalogTTL 目录缓存过期时间
const catalogTTL = 10 * time.Minute

// GetCatalogKey 根据酒吧ID生成目录缓存的Redis键
func GetCatalogKey(barID int64) string {
	return fmt.Sprintf("catalog:%d", barID)
}

// CachedCatalog 是一家酒吧可浏览目录的缓存形式
type CachedCatalog struct {
	BarID    int64          `json:"barId"`
	Albums   []*model.Album `json:"albums"`
	CachedAt int64          `json:"cachedAt"`
}

// GetCatalog 读取酒吧目录缓存；未命中返回 (nil, nil)
func GetCatalog(ctx context.Context, barID int64) (*CachedCatalog, error) {
	if db.RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	data, err := db.RedisClient.Get(ctx, GetCatalogKey(barID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog cache: %w", err)
	}

	var catalog CachedCatalog
	if err := json.Unmarshal([]byte(data), &catalog); err != nil {
		// 缓存损坏时当作未命中处理，下一次写入会覆盖
		logger.Warn("Dropping corrupt catalog cache entry",
			logger.Int64("barId", barID),
			logger.ErrorField(err))
		return nil, nil
	}
	return &catalog, nil
}

// SetCatalog 写入酒吧目录缓存
func SetCatalog(ctx context.Context, barID int64, albums []*model.Album) error {
	if db.RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	catalog := CachedCatalog{
		BarID:    barID,
		Albums:   albums,
		CachedAt: time.Now().Unix(),
	}
	data, err := json.Marshal(&catalog)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := db.RedisClient.Set(ctx, GetCatalogKey(barID), data, catalogTTL).Err(); err != nil {
		return fmt.Errorf("failed to set catalog cache: %w", err)
	}
	return nil
}

// InvalidateCatalog 使酒吧目录缓存失效；提交批次或增删专辑后调用
func InvalidateCatalog(ctx context.Context, barID int64) {
	if db.RedisClient == nil {
		return
	}
	if err := db.RedisClient.Del(ctx, GetCatalogKey(barID)).Err(); err != nil {
		logger.Warn("Failed to invalidate catalog cache",
			logger.Int64("barId", barID),
			logger.ErrorField(err))
	}
}
