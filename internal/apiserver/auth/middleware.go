package auth

import (
	"context"
	"log"
	"net/http"
	"strings"

	"auth-admin/internal/apiserver/policy"
	"auth-admin/internal/shared/cache"
	"auth-admin/internal/shared/model"
)

// 免认证路由白名单（前缀匹配）
var publicPrefixes = []string{
	"/api/v1/auth/login",
	"/api/v1/auth/refresh",
	"/health",
	"/metrics",
}

func isPublicRoute(path string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// PrincipalStore 中间件加载主体所需的存储接口
type PrincipalStore interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// Middleware 创建 JWT 认证中间件
//
// 每次请求都按令牌中的用户 ID 加载数据库中的最新状态：
// 被停用或已删除的用户即使持有未过期令牌也会被拒绝。
// userCache 可为 nil（直连数据库）；缓存故障时回落到数据库。
func Middleware(cfg Config, store PrincipalStore, userCache cache.UserCache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 公开路由：直接放行（不注入主体）
			if isPublicRoute(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			// 提取 Bearer Token
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				http.Error(w, `{"error":"invalid authorization header"}`, http.StatusUnauthorized)
				return
			}

			// 解析 JWT
			claims, err := ParseToken(cfg, parts[1])
			if err != nil {
				log.Printf("[auth] token parse error: %v", err)
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}
			if claims.Type != "access" {
				http.Error(w, `{"error":"invalid token type"}`, http.StatusUnauthorized)
				return
			}
			userID, err := claims.UserID()
			if err != nil {
				http.Error(w, `{"error":"invalid token subject"}`, http.StatusUnauthorized)
				return
			}

			// 加载用户最新状态（缓存优先，数据库兜底）
			user := lookupUser(r.Context(), store, userCache, userID)
			if user == nil {
				http.Error(w, `{"error":"user not found"}`, http.StatusUnauthorized)
				return
			}
			if !user.IsActive {
				http.Error(w, `{"error":"account is disabled"}`, http.StatusForbidden)
				return
			}

			p := &policy.Principal{
				ID:          user.ID,
				IsSuperuser: user.IsSuperuser,
				IsActive:    user.IsActive,
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// lookupUser 按 ID 加载用户；缓存未命中或故障时回落数据库并回填
func lookupUser(ctx context.Context, store PrincipalStore, userCache cache.UserCache, userID int64) *model.User {
	if userCache != nil {
		u, err := userCache.GetUser(ctx, userID)
		if err != nil {
			log.Printf("[auth] user cache error, falling back to db: %v", err)
		} else if u != nil {
			return u
		}
	}

	u, err := store.GetUserByID(ctx, userID)
	if err != nil {
		return nil
	}
	if userCache != nil {
		if err := userCache.SetUser(ctx, u); err != nil {
			log.Printf("[auth] user cache set error: %v", err)
		}
	}
	return u
}
