package server

import (
	"net/http"

	"auth-admin/internal/apiserver/auth"
	"auth-admin/internal/apiserver/credential"
	"auth-admin/internal/apiserver/user"
)

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 健康检查:
//   - GET /health - 服务健康检查
//
// 认证 (Auth):
//   - POST /api/v1/auth/login   - 登录（用户名 + 密码）
//   - POST /api/v1/auth/refresh - 刷新访问令牌
//   - GET  /api/v1/auth/me      - 当前用户信息
//
// 用户管理 (User):
//   - GET    /api/v1/users        - 列出可见用户
//   - GET    /api/v1/users/count  - 统计可见用户数
//   - GET    /api/v1/users/{id}   - 获取用户详情
//   - POST   /api/v1/users        - 创建用户（仅超级管理员）
//   - PATCH  /api/v1/users/{id}   - 字段级更新用户
//   - DELETE /api/v1/users/{id}   - 删除用户（仅超级管理员）
//
// 认证凭据管理 (Credential):
//   - GET    /api/v1/credentials        - 列出可见凭据
//   - GET    /api/v1/credentials/count  - 统计可见凭据数
//   - GET    /api/v1/credentials/{id}   - 获取凭据详情
//   - POST   /api/v1/credentials        - 创建凭据
//   - PATCH  /api/v1/credentials/{id}   - 更新凭据
//   - DELETE /api/v1/credentials/{id}   - 删除凭据
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", h.Health)

	// Prometheus 指标端点
	mux.Handle("GET /metrics", MetricsHandler())

	// Auth 路由
	authHandler := auth.NewHandler(h.store, h.authConfig)
	authHandler.RegisterRoutes(mux)

	// User 接口
	userHandler := user.NewHandler(h.svc)
	userHandler.RegisterRoutes(mux)

	// Credential 接口
	credHandler := credential.NewHandler(h.svc)
	credHandler.RegisterRoutes(mux)

	// 应用指标中间件
	apiHandler := h.metrics.MetricsMiddleware(mux)

	// 应用认证中间件（主体每次请求按数据库状态重新校验）
	authedHandler := auth.Middleware(h.authConfig, h.store, h.userCache)(apiHandler)

	// 应用 CORS 中间件
	return corsMiddleware(authedHandler)
}

// corsMiddleware 添加 CORS 头支持跨域请求
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
