// Package policy 行级/字段级权限判定
//
// 本包是纯决策逻辑：输入（主体, 实体类型, 操作, 目标记录），输出
// 允许/拒绝判定；对 list/count 输出可见范围（storage.Scope）。
// 不访问数据库、不产生副作用 —— 读写路径的执行统一在 admin 包。
//
// 规则汇总：
//
// 用户（user）：
//   - list/count：未登录空集；超级管理员全量；普通用户仅自己
//   - getById：普通用户仅自己（其余按不存在处理，避免探测）
//   - create/delete：仅超级管理员
//   - update：普通用户仅自己，且载荷不得包含 pp_token/is_superuser/is_active
//
// 凭据（credential）：
//   - list/count/getById：公开凭据所有登录用户可见；私有凭据仅归属者与超级管理员
//   - create：任意登录用户（归属由归一化逻辑约束）
//   - update/delete：超级管理员任意；普通用户仅自己的私有凭据
//
// 判定一律针对操作时刻的持久化状态：update 载荷中修改 info_status
// 不会改变"修改前的记录是否可编辑"的结论。
package policy

import (
	"fmt"

	"github.com/containerd/errdefs"

	"auth-admin/internal/shared/model"
	"auth-admin/internal/shared/storage"
)

// Kind 实体类型
type Kind string

const (
	KindUser       Kind = "user"
	KindCredential Kind = "credential"
)

// Principal 当前操作主体
//
// 由认证中间件从会话令牌解析并经数据库校验后注入。
// 未激活的主体等价于未登录。
type Principal struct {
	ID          int64
	IsSuperuser bool
	IsActive    bool
}

// Authenticated 是否为有效登录主体
func (p *Principal) Authenticated() bool {
	return p != nil && p.IsActive
}

// String 返回审计日志用的主体标识
func (p *Principal) String() string {
	if !p.Authenticated() {
		return "anonymous"
	}
	if p.IsSuperuser {
		return fmt.Sprintf("superuser:%d", p.ID)
	}
	return fmt.Sprintf("user:%d", p.ID)
}

// ============================================================================
// 可见范围（list / count 共用）
// ============================================================================

// ScopeFor 计算主体对指定实体类型的可见范围
//
// 返回值同时服务于 list 与 count，两者共用保证计数一致。
func ScopeFor(p *Principal, kind Kind) storage.Scope {
	if !p.Authenticated() {
		return storage.EmptyScope()
	}
	if p.IsSuperuser {
		return storage.UnrestrictedScope()
	}
	// kind 决定 Scope 的解释方式（用户表按 id，凭据表按公开/归属），
	// 翻译逻辑在 repository 层统一实现。
	_ = kind
	return storage.OwnedScope(p.ID)
}

// ============================================================================
// 单条记录判定
// ============================================================================

// CanViewUser 指定用户记录是否对主体可见
func CanViewUser(p *Principal, target *model.User) bool {
	if !p.Authenticated() {
		return false
	}
	return p.IsSuperuser || target.ID == p.ID
}

// CanViewCredential 指定凭据是否对主体可见
func CanViewCredential(p *Principal, target *model.Credential) bool {
	if !p.Authenticated() {
		return false
	}
	if p.IsSuperuser {
		return true
	}
	if target.InfoStatus.IsPublic() {
		return true
	}
	return target.UserID != nil && *target.UserID == p.ID
}

// CheckCreateUser 用户创建判定：仅超级管理员
func CheckCreateUser(p *Principal) error {
	if !p.Authenticated() {
		return fmt.Errorf("%w: login required", errdefs.ErrUnauthenticated)
	}
	if !p.IsSuperuser {
		return fmt.Errorf("%w: 只有超级管理员可以创建用户", errdefs.ErrPermissionDenied)
	}
	return nil
}

// CheckUpdateUser 用户更新判定
//
// 针对持久化的 target 记录检查，而非载荷；普通用户提交受限字段
// 是显式拒绝，不做静默丢弃。
func CheckUpdateUser(p *Principal, target *model.User, patch *model.UserPatch) error {
	if !p.Authenticated() {
		return fmt.Errorf("%w: login required", errdefs.ErrUnauthenticated)
	}
	if p.IsSuperuser {
		return nil
	}
	if target.ID != p.ID {
		return fmt.Errorf("%w: 只能修改自己的信息", errdefs.ErrPermissionDenied)
	}
	if fields := patch.RestrictedFields(); len(fields) > 0 {
		return fmt.Errorf("%w: 无权修改字段: %v", errdefs.ErrPermissionDenied, fields)
	}
	return nil
}

// CheckDeleteUser 用户删除判定：仅超级管理员
func CheckDeleteUser(p *Principal) error {
	if !p.Authenticated() {
		return fmt.Errorf("%w: login required", errdefs.ErrUnauthenticated)
	}
	if !p.IsSuperuser {
		return fmt.Errorf("%w: 只有超级管理员可以删除用户", errdefs.ErrPermissionDenied)
	}
	return nil
}

// CheckCreateCredential 凭据创建判定：任意登录用户
func CheckCreateCredential(p *Principal) error {
	if !p.Authenticated() {
		return fmt.Errorf("%w: login required", errdefs.ErrUnauthenticated)
	}
	return nil
}

// CheckMutateCredential 凭据更新/删除判定
//
// 针对持久化的 target 记录检查：普通用户只能改动自己的私有凭据，
// 公开凭据与他人的私有凭据一律拒绝。
func CheckMutateCredential(p *Principal, target *model.Credential) error {
	if !p.Authenticated() {
		return fmt.Errorf("%w: login required", errdefs.ErrUnauthenticated)
	}
	if p.IsSuperuser {
		return nil
	}
	if target.InfoStatus != model.VisibilityPrivate || target.UserID == nil || *target.UserID != p.ID {
		return fmt.Errorf("%w: 只能修改自己的私有认证凭据", errdefs.ErrPermissionDenied)
	}
	return nil
}
