// Package redis 用户缓存的 Redis 实现
//
// 以 JSON 序列化整条用户记录，短 TTL 兜底，写路径主动失效。
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"auth-admin/internal/shared/model"
)

// 缓存键前缀与默认 TTL
const (
	keyUser    = "authadmin:user:"
	defaultTTL = 30 * time.Second
)

// Cache Redis 用户缓存
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New 创建 Redis 用户缓存实例
func New(addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("[Redis] Connected to %s", addr)
	return &Cache{client: client, ttl: defaultTTL}, nil
}

// NewFromURL 从 URL 创建 Redis 用户缓存实例
func NewFromURL(redisURL string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("[Redis] Connected to %s", opts.Addr)
	return &Cache{client: client, ttl: defaultTTL}, nil
}

// Close 关闭 Redis 连接
func (c *Cache) Close() error {
	return c.client.Close()
}

func userKey(id int64) string {
	return keyUser + strconv.FormatInt(id, 10)
}

// GetUser 读取缓存的用户记录，未命中返回 (nil, nil)
func (c *Cache) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	data, err := c.client.Get(ctx, userKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached user: %w", err)
	}
	var u model.User
	if err := json.Unmarshal(data, &u); err != nil {
		// 脏数据直接丢弃，按未命中处理
		c.client.Del(ctx, userKey(userID))
		return nil, nil
	}
	return &u, nil
}

// SetUser 写入用户记录缓存
//
// 走 JSON 序列化，password_hash 因 json:"-" 不会写入 Redis；
// 缓存只服务身份/状态校验，不服务口令验证。
func (c *Cache) SetUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := c.client.Set(ctx, userKey(user.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache user: %w", err)
	}
	return nil
}

// InvalidateUser 删除指定用户的缓存
func (c *Cache) InvalidateUser(ctx context.Context, userID int64) error {
	if err := c.client.Del(ctx, userKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate user cache: %w", err)
	}
	return nil
}
