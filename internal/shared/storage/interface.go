// Package storage 定义持久化存储层抽象接口
//
// 设计原则：依赖倒置 (DIP)
//   - 调用方只依赖接口，不知道具体实现
//   - 具体实现在子包中：repository/（database/sql + dbutil.Dialect）
//   - 初始化时通过依赖注入传入实现
package storage

import (
	"context"

	"auth-admin/internal/shared/model"
)

// Scope 行级可见范围
//
// 由策略层（policy 包）针对 list/count 计算得出，repository 层将其
// 翻译为 SQL WHERE 条件。list 与 count 必须共用同一个 Scope 翻译逻辑，
// 保证两者对任意主体始终一致。
type Scope struct {
	// Empty 空范围：不返回任何记录（未登录）
	Empty bool

	// Unrestricted 无限制：返回所有记录（超级管理员）
	Unrestricted bool

	// UserID 受限范围的主体用户 ID：
	//   - 用户表：仅 id == UserID 的记录
	//   - 凭据表：公开记录，或 user_id == UserID 的私有记录
	UserID int64
}

// EmptyScope 空范围
func EmptyScope() Scope { return Scope{Empty: true} }

// UnrestrictedScope 无限制范围
func UnrestrictedScope() Scope { return Scope{Unrestricted: true} }

// OwnedScope 受限于指定用户的范围
func OwnedScope(userID int64) Scope { return Scope{UserID: userID} }

// UserStore 用户存储接口
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context, scope Scope) ([]*model.User, error)
	CountUsers(ctx context.Context, scope Scope) (int, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id int64) error
}

// CredentialStore 认证凭据存储接口
type CredentialStore interface {
	CreateCredential(ctx context.Context, cred *model.Credential) error
	GetCredentialByID(ctx context.Context, id int64) (*model.Credential, error)
	ListCredentials(ctx context.Context, scope Scope) ([]*model.Credential, error)
	CountCredentials(ctx context.Context, scope Scope) (int, error)
	UpdateCredential(ctx context.Context, cred *model.Credential) error
	DeleteCredential(ctx context.Context, id int64) error

	// ClearCredentialOwner 解除指定用户名下所有凭据的归属（user_id 置 NULL）
	ClearCredentialOwner(ctx context.Context, userID int64) error
}

// PersistentStore 持久化存储汇总接口
//
// 事务语义：每个写操作（create/update/delete）连同授权所需的
// 前置读取在单个存储事务内执行，由 InTx 提供。
type PersistentStore interface {
	UserStore
	CredentialStore

	// InTx 在单个事务内执行 fn；fn 返回错误时回滚，否则提交。
	// fn 收到的 Store 视图上的所有读写都落在同一事务中。
	InTx(ctx context.Context, fn func(tx PersistentStore) error) error

	// Close 关闭底层连接
	Close() error
}
