// Package cache 用户主体缓存接口
//
// 认证中间件每次请求都要按令牌中的用户 ID 加载数据库中的最新状态
// （is_active / is_superuser 以持久化状态为准）。缓存层把这次查找
// 从数据库挪到 Redis，TTL 较短；用户状态变更时由 admin 服务主动失效。
package cache

import (
	"context"

	"auth-admin/internal/shared/model"
)

// UserCache 用户记录缓存
//
// GetUser 未命中时返回 (nil, nil)，缓存故障返回 error；
// 调用方在任一情况下都应回落到数据库。
type UserCache interface {
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	SetUser(ctx context.Context, user *model.User) error
	InvalidateUser(ctx context.Context, userID int64) error
	Close() error
}
