// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"spark-chat-go/internal/model"

	"github.com/go-redis/redis/v8"
)

// 侧边栏目录的缓存有效期。
const summaryCacheTTL = 7 * 24 * time.Hour

// SummaryCache 定义了会话摘要列表的 Redis 缓存接口。
// 缓存只是读加速：任何缓存故障都应退回数据库，不能影响正确性。
type SummaryCache interface {
	Get(ctx context.Context, ownerID string) ([]model.ChatSummaryDTO, bool, error)
	Set(ctx context.Context, ownerID string, summaries []model.ChatSummaryDTO) error
	Invalidate(ctx context.Context, ownerID string) error
}

type redisSummaryCache struct {
	redisClient *redis.Client
}

// NewSummaryCache 创建一个新的 SummaryCache 实例。
func NewSummaryCache(redisClient *redis.Client) SummaryCache {
	return &redisSummaryCache{redisClient: redisClient}
}

func summaryCacheKey(ownerID string) string {
	return fmt.Sprintf("userchats:%s", ownerID)
}

// Get 读取缓存的摘要列表。第二个返回值表示是否命中。
func (c *redisSummaryCache) Get(ctx context.Context, ownerID string) ([]model.ChatSummaryDTO, bool, error) {
	jsonData, err := c.redisClient.Get(ctx, summaryCacheKey(ownerID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("读取摘要缓存失败: %w", err)
	}
	var summaries []model.ChatSummaryDTO
	if err := json.Unmarshal([]byte(jsonData), &summaries); err != nil {
		return nil, false, fmt.Errorf("解析摘要缓存失败: %w", err)
	}
	return summaries, true, nil
}

// Set 写入摘要列表缓存。
func (c *redisSummaryCache) Set(ctx context.Context, ownerID string, summaries []model.ChatSummaryDTO) error {
	jsonData, err := json.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("序列化摘要缓存失败: %w", err)
	}
	if err := c.redisClient.Set(ctx, summaryCacheKey(ownerID), jsonData, summaryCacheTTL).Err(); err != nil {
		return fmt.Errorf("写入摘要缓存失败: %w", err)
	}
	return nil
}

// Invalidate 在目录发生变化（新建会话）后删除缓存。
func (c *redisSummaryCache) Invalidate(ctx context.Context, ownerID string) error {
	if err := c.redisClient.Del(ctx, summaryCacheKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("删除摘要缓存失败: %w", err)
	}
	return nil
}
