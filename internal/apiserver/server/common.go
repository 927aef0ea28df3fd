// Package server 路由配置与核心基础设施
//
// 本包实现管理后台的 HTTP 入口，包括：
//   - 用户管理（User）接口
//   - 认证凭据管理（Credential）接口
//   - 登录/令牌（Auth）接口
//   - Prometheus 指标
//
// 文件组织：
//   - common.go: Handler 定义与通用工具函数
//   - handler.go: 路由装配
//   - metrics.go: Prometheus 指标
package server

import (
	"encoding/json"
	"net/http"

	"auth-admin/internal/apiserver/admin"
	"auth-admin/internal/apiserver/auth"
	"auth-admin/internal/shared/cache"
	"auth-admin/internal/shared/storage"
)

// Handler API 处理器
//
// Handler 是所有 HTTP API 的入口，负责：
//   - 路由请求到各领域处理函数
//   - 管理存储层与缓存连接
//   - 持有认证配置与指标实例
type Handler struct {
	store     storage.PersistentStore // 持久化存储（用户/凭据）
	userCache cache.UserCache         // 用户主体缓存（可为 nil）

	authConfig auth.Config    // JWT 配置
	svc        *admin.Service // 管理域服务（权限判定 + 归一化）
	metrics    *Metrics       // Prometheus 指标
}

// NewHandler 创建 Handler 实例
//
// userCache 可为 nil：此时认证中间件每次请求直连数据库加载主体。
func NewHandler(store storage.PersistentStore, userCache cache.UserCache, authConfig auth.Config) *Handler {
	h := &Handler{
		store:      store,
		userCache:  userCache,
		authConfig: authConfig,
	}
	h.metrics = NewMetrics("authadmin")
	h.svc = admin.NewService(store, userCache, h.metrics)
	return h
}

// GetMetrics 返回指标实例
func (h *Handler) GetMetrics() *Metrics {
	return h.metrics
}

// Service 返回管理域服务
func (h *Handler) Service() *admin.Service {
	return h.svc
}

// writeJSON 将数据以 JSON 格式写入 HTTP 响应
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Health 健康检查接口
//
// 路由: GET /health
//
// 用于负载均衡器和监控系统检查服务状态。
// 返回 {"status": "ok"} 表示服务正常运行。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
