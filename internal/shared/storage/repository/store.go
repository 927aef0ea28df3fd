// Package repository 数据库无关的存储层实现
//
// 通过 dbutil.Dialect 接口屏蔽不同数据库的 SQL 差异，
// 所有 SQL 以 PostgreSQL 风格编写，运行时由 Dialect.Rebind() 转换。
//
// 行级过滤：ListXxx/CountXxx 接收 storage.Scope，由 userScopeClause /
// credentialScopeClause 统一翻译为 WHERE 条件 —— list 与 count 永远共用
// 同一个谓词，保证计数与列表一致。
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"auth-admin/internal/shared/storage"
	"auth-admin/internal/shared/storage/dbutil"
	mysqldriver "auth-admin/internal/shared/storage/driver/mysql"
	postgresdriver "auth-admin/internal/shared/storage/driver/postgres"
	sqlitedriver "auth-admin/internal/shared/storage/driver/sqlite"
)

// querier database/sql 的 *sql.DB 与 *sql.Tx 公共子集
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store 通用存储实现
// 实现了 storage.PersistentStore 接口
type Store struct {
	db      *sql.DB
	q       querier // *sql.DB 或事务内的 *sql.Tx
	dialect dbutil.Dialect
}

var _ storage.PersistentStore = (*Store)(nil)

// NewStore 创建通用存储
func NewStore(db *sql.DB, dialect dbutil.Dialect) *Store {
	return &Store{db: db, q: db, dialect: dialect}
}

// Open 根据驱动类型创建存储并完成自动迁移
func Open(driver dbutil.DriverType, dsn string) (*Store, error) {
	var (
		db      *sql.DB
		dialect dbutil.Dialect
		err     error
	)

	switch driver {
	case dbutil.DriverSQLite:
		dialect = sqlitedriver.NewDialect()
		db, err = sqlitedriver.Open(dsn)
	case dbutil.DriverPostgres:
		dialect = postgresdriver.NewDialect()
		db, err = postgresdriver.Open(dsn)
	case dbutil.DriverMySQL:
		dialect = mysqldriver.NewDialect()
		db, err = mysqldriver.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver: %s", driver)
	}
	if err != nil {
		return nil, err
	}

	if err := dialect.AutoMigrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return NewStore(db, dialect), nil
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	return s.db.Close()
}

// DB 返回底层数据库连接（仅用于测试）
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect 返回当前方言
func (s *Store) Dialect() dbutil.Dialect {
	return s.dialect
}

// InTx 在单个事务内执行 fn
//
// 授权判定所需的前置读取与最终写入必须落在同一事务中，
// 避免"读旧状态做检查、写新状态时已被并发修改"的窗口。
// 已在事务内时直接复用当前事务（不支持嵌套事务）。
func (s *Store) InTx(ctx context.Context, fn func(tx storage.PersistentStore) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	txStore := &Store{db: s.db, q: tx, dialect: s.dialect}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// rebind 快捷方法：将 PG 风格 SQL 转换为当前方言
func (s *Store) rebind(query string) string {
	return s.dialect.Rebind(query)
}

// storageErr 将底层数据库错误转换为领域错误
func (s *Store) storageErr(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return storage.ErrNotFound
	}
	if s.dialect.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", storage.ErrDuplicate, err)
	}
	return err
}

// NullableJSON 用于安全扫描可能为 NULL 的 JSON 字段
// database/sql 无法直接将 NULL scan 到 json.RawMessage，需要通过 *[]byte 中间变量
type NullableJSON struct {
	Data *[]byte
}

// Value 返回 json.RawMessage（如果非 NULL）
func (n *NullableJSON) Value() json.RawMessage {
	if n.Data != nil {
		return json.RawMessage(*n.Data)
	}
	return nil
}

// jsonArg 将 json.RawMessage 转换为可入库的值（空值写 NULL）
func jsonArg(m json.RawMessage) interface{} {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}
