// Package mysql MySQL 数据库驱动（预留）
//
// 提供 MySQL 方言实现。当前为 stub 实现，后续可完善。
package mysql

import (
	"database/sql"
	"fmt"
	"strings"

	"auth-admin/internal/shared/storage/dbutil"
)

// Dialect MySQL 方言实现
type Dialect struct{}

var _ dbutil.Dialect = (*Dialect)(nil)

func (d *Dialect) DriverType() dbutil.DriverType {
	return dbutil.DriverMySQL
}

func (d *Dialect) Rebind(query string) string {
	return dbutil.StripPgCasts(dbutil.RebindToQuestion(query))
}

func (d *Dialect) CurrentTimestamp() string {
	return "NOW()"
}

func (d *Dialect) BooleanLiteral(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func (d *Dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// MySQL 1062 = ER_DUP_ENTRY
	return strings.Contains(err.Error(), "Error 1062")
}

func (d *Dialect) AutoMigrate(db *sql.DB) error {
	return fmt.Errorf("mysql auto-migrate not implemented yet")
}

// NewDialect 创建 MySQL 方言
func NewDialect() *Dialect {
	return &Dialect{}
}

// Open 打开 MySQL 连接（尚未实现）
func Open(dsn string) (*sql.DB, error) {
	return nil, fmt.Errorf("mysql driver not supported yet")
}
