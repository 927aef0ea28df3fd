// Package admin 管理域核心服务
//
// service.go 实现带权限约束的查询与变更入口：
//   - 查询路径：按主体计算可见范围，list 与 count 共用同一范围
//   - 变更路径：在单个数据库事务中"读取-判定-归一化-写入"，
//     避免判定与写入之间的状态漂移
//
// 所有拒绝均记录审计日志并上报指标。查询路径对主体不可见的记录
// 按不存在处理，不暴露"存在但无权"的信息；变更路径对存在但无权
// 的记录显式报无权。
package admin

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/containerd/errdefs"

	"auth-admin/internal/apiserver/policy"
	"auth-admin/internal/shared/model"
	"auth-admin/internal/shared/storage"
)

// DecisionMetrics 权限判定指标采集（可选注入）
type DecisionMetrics interface {
	RecordAuthzDecision(kind, operation, outcome string)
}

// UserCacheInvalidator 用户缓存失效接口（可选注入）
//
// 用户状态变更后需要让中间件的主体缓存失效，
// 保证停用/降权在下一次请求即生效。
type UserCacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID int64) error
}

// Service 管理域服务
type Service struct {
	store   storage.PersistentStore
	cache   UserCacheInvalidator
	metrics DecisionMetrics
}

// NewService 创建管理域服务；cache 与 metrics 可为 nil
func NewService(store storage.PersistentStore, cache UserCacheInvalidator, metrics DecisionMetrics) *Service {
	return &Service{store: store, cache: cache, metrics: metrics}
}

// allow 记录一次放行判定
func (s *Service) allow(kind policy.Kind, op string) {
	if s.metrics != nil {
		s.metrics.RecordAuthzDecision(string(kind), op, "allow")
	}
}

// deny 记录一次拒绝判定并写审计日志
func (s *Service) deny(kind policy.Kind, op string, p *policy.Principal, err error) error {
	if s.metrics != nil {
		s.metrics.RecordAuthzDecision(string(kind), op, "deny")
	}
	log.Printf("[admin] DENY %s.%s principal=%s: %v", kind, op, p.String(), err)
	return err
}

// invalidateUser 用户状态变更后使缓存失效
func (s *Service) invalidateUser(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		log.Printf("[admin] WARN: invalidate user cache %d: %v", userID, err)
	}
}


// svcErr 将存储层错误收敛到服务错误域
//
// 记录不存在与记录不可见必须对调用方不可区分，统一为 errdefs.ErrNotFound。
func svcErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %v", errdefs.ErrNotFound, err)
	}
	return err
}

// ============================================================================
// 用户
// ============================================================================

// ListUsers 列出主体可见的用户
func (s *Service) ListUsers(ctx context.Context, p *policy.Principal) ([]*model.User, error) {
	s.allow(policy.KindUser, "list")
	return s.store.ListUsers(ctx, policy.ScopeFor(p, policy.KindUser))
}

// CountUsers 统计主体可见的用户数，口径与 ListUsers 一致
func (s *Service) CountUsers(ctx context.Context, p *policy.Principal) (int, error) {
	s.allow(policy.KindUser, "count")
	return s.store.CountUsers(ctx, policy.ScopeFor(p, policy.KindUser))
}

// GetUser 按 ID 查找用户；不可见的记录按不存在处理
func (s *Service) GetUser(ctx context.Context, p *policy.Principal, id int64) (*model.User, error) {
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, svcErr(err)
	}
	if !policy.CanViewUser(p, u) {
		s.deny(policy.KindUser, "get", p, fmt.Errorf("user %d not visible", id))
		return nil, fmt.Errorf("%w: user %d", errdefs.ErrNotFound, id)
	}
	s.allow(policy.KindUser, "get")
	return u, nil
}

// CreateUser 创建用户（仅超级管理员）
func (s *Service) CreateUser(ctx context.Context, p *policy.Principal, in *model.UserCreate) (*model.User, error) {
	if err := policy.CheckCreateUser(p); err != nil {
		return nil, s.deny(policy.KindUser, "create", p, err)
	}
	u, err := normalizeNewUser(in)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.allow(policy.KindUser, "create")
	log.Printf("[admin] user created: id=%d username=%s by=%s", u.ID, u.Username, p.String())
	return u, nil
}

// UpdateUser 字段级更新用户
//
// 判定与写入在同一事务内完成，针对事务内读出的持久化状态判定。
func (s *Service) UpdateUser(ctx context.Context, p *policy.Principal, id int64, patch *model.UserPatch) (*model.User, error) {
	var updated *model.User
	err := s.store.InTx(ctx, func(tx storage.PersistentStore) error {
		u, err := tx.GetUserByID(ctx, id)
		if err != nil {
			return svcErr(err)
		}
		if err := policy.CheckUpdateUser(p, u, patch); err != nil {
			return s.deny(policy.KindUser, "update", p, err)
		}
		if err := applyUserPatch(u, patch); err != nil {
			return err
		}
		if err := tx.UpdateUser(ctx, u); err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.allow(policy.KindUser, "update")
	s.invalidateUser(ctx, updated.ID)
	return updated, nil
}

// DeleteUser 删除用户（仅超级管理员）
//
// 同一事务内先解除该用户名下所有凭据的归属，再删除用户本身。
func (s *Service) DeleteUser(ctx context.Context, p *policy.Principal, id int64) error {
	if err := policy.CheckDeleteUser(p); err != nil {
		return s.deny(policy.KindUser, "delete", p, err)
	}
	err := s.store.InTx(ctx, func(tx storage.PersistentStore) error {
		if _, err := tx.GetUserByID(ctx, id); err != nil {
			return svcErr(err)
		}
		if err := tx.ClearCredentialOwner(ctx, id); err != nil {
			return err
		}
		return tx.DeleteUser(ctx, id)
	})
	if err != nil {
		return err
	}
	s.allow(policy.KindUser, "delete")
	s.invalidateUser(ctx, id)
	log.Printf("[admin] user deleted: id=%d by=%s", id, p.String())
	return nil
}

// ============================================================================
// 认证凭据
// ============================================================================

// ListCredentials 列出主体可见的凭据（公开 + 自己的私有）
func (s *Service) ListCredentials(ctx context.Context, p *policy.Principal) ([]*model.Credential, error) {
	s.allow(policy.KindCredential, "list")
	return s.store.ListCredentials(ctx, policy.ScopeFor(p, policy.KindCredential))
}

// CountCredentials 统计主体可见的凭据数，口径与 ListCredentials 一致
func (s *Service) CountCredentials(ctx context.Context, p *policy.Principal) (int, error) {
	s.allow(policy.KindCredential, "count")
	return s.store.CountCredentials(ctx, policy.ScopeFor(p, policy.KindCredential))
}

// GetCredential 按 ID 查找凭据；不可见的记录按不存在处理
func (s *Service) GetCredential(ctx context.Context, p *policy.Principal, id int64) (*model.Credential, error) {
	c, err := s.store.GetCredentialByID(ctx, id)
	if err != nil {
		return nil, svcErr(err)
	}
	if !policy.CanViewCredential(p, c) {
		s.deny(policy.KindCredential, "get", p, fmt.Errorf("credential %d not visible", id))
		return nil, fmt.Errorf("%w: credential %d", errdefs.ErrNotFound, id)
	}
	s.allow(policy.KindCredential, "get")
	return c, nil
}

// CreateCredential 创建凭据（任意登录用户）
func (s *Service) CreateCredential(ctx context.Context, p *policy.Principal, in *model.CredentialInput) (*model.Credential, error) {
	if err := policy.CheckCreateCredential(p); err != nil {
		return nil, s.deny(policy.KindCredential, "create", p, err)
	}
	c := &model.Credential{InfoStatus: model.VisibilityPrivate}
	if err := applyCredentialInput(c, in); err != nil {
		return nil, err
	}
	c.CreatedAt = c.UpdatedAt
	normalizeCredentialOwnership(p, c)
	if err := s.store.CreateCredential(ctx, c); err != nil {
		return nil, err
	}
	s.allow(policy.KindCredential, "create")
	log.Printf("[admin] credential created: id=%d status=%s by=%s", c.ID, c.InfoStatus, p.String())
	return c, nil
}

// UpdateCredential 更新凭据
//
// 可编辑性针对事务内读出的修改前状态判定：载荷中变更 info_status
// 不影响"这条记录当前是否可编辑"的结论。
func (s *Service) UpdateCredential(ctx context.Context, p *policy.Principal, id int64, in *model.CredentialInput) (*model.Credential, error) {
	var updated *model.Credential
	err := s.store.InTx(ctx, func(tx storage.PersistentStore) error {
		c, err := tx.GetCredentialByID(ctx, id)
		if err != nil {
			return svcErr(err)
		}
		if err := policy.CheckMutateCredential(p, c); err != nil {
			return s.deny(policy.KindCredential, "update", p, err)
		}
		if err := applyCredentialInput(c, in); err != nil {
			return err
		}
		normalizeCredentialOwnership(p, c)
		if err := tx.UpdateCredential(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.allow(policy.KindCredential, "update")
	return updated, nil
}

// DeleteCredential 删除凭据
func (s *Service) DeleteCredential(ctx context.Context, p *policy.Principal, id int64) error {
	err := s.store.InTx(ctx, func(tx storage.PersistentStore) error {
		c, err := tx.GetCredentialByID(ctx, id)
		if err != nil {
			return svcErr(err)
		}
		if err := policy.CheckMutateCredential(p, c); err != nil {
			return s.deny(policy.KindCredential, "delete", p, err)
		}
		return tx.DeleteCredential(ctx, id)
	})
	if err != nil {
		return err
	}
	s.allow(policy.KindCredential, "delete")
	log.Printf("[admin] credential deleted: id=%d by=%s", id, p.String())
	return nil
}
