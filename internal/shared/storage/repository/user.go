package repository

import (
	"context"
	"database/sql"

	"auth-admin/internal/shared/model"
	"auth-admin/internal/shared/storage"
)

const userColumns = `id, username, email, pp_token, password_hash, is_active, is_superuser, remark, description, created_at, updated_at`

// userScopeClause 将可见范围翻译为用户表的 WHERE 条件
//
// list 与 count 共用此函数，确保两者对同一主体返回一致的行集。
func userScopeClause(scope storage.Scope) (string, []interface{}) {
	switch {
	case scope.Empty:
		return " WHERE 1 = 0", nil
	case scope.Unrestricted:
		return "", nil
	default:
		// 普通用户只能看到自己
		return " WHERE id = $1", []interface{}{scope.UserID}
	}
}

// scanUser 从单行扫描用户
func scanUser(scan func(dest ...interface{}) error) (*model.User, error) {
	u := &model.User{}
	var remark sql.NullString
	var desc NullableJSON
	err := scan(&u.ID, &u.Username, &u.Email, &u.PPToken, &u.PasswordHash,
		&u.IsActive, &u.IsSuperuser, &remark, &desc.Data, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Remark = remark.String
	u.Description = desc.Value()
	return u, nil
}

// CreateUser 创建用户
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	err := s.q.QueryRowContext(ctx, s.rebind(
		`INSERT INTO users (username, email, pp_token, password_hash, is_active, is_superuser, remark, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`),
		user.Username, user.Email, user.PPToken, user.PasswordHash,
		user.IsActive, user.IsSuperuser, nullString(user.Remark), jsonArg(user.Description),
		user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	return s.storageErr(err)
}

// GetUserByID 通过 ID 查找用户
func (s *Store) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.q.QueryRowContext(ctx, s.rebind(
		`SELECT `+userColumns+` FROM users WHERE id = $1`), id)
	u, err := scanUser(row.Scan)
	if err != nil {
		return nil, s.storageErr(err)
	}
	return u, nil
}

// GetUserByUsername 通过用户名查找用户（登录用）
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := s.q.QueryRowContext(ctx, s.rebind(
		`SELECT `+userColumns+` FROM users WHERE username = $1`), username)
	u, err := scanUser(row.Scan)
	if err != nil {
		return nil, s.storageErr(err)
	}
	return u, nil
}

// ListUsers 按可见范围列出用户，主键顺序
func (s *Store) ListUsers(ctx context.Context, scope storage.Scope) ([]*model.User, error) {
	where, args := userScopeClause(scope)
	rows, err := s.q.QueryContext(ctx, s.rebind(
		`SELECT `+userColumns+` FROM users`+where+` ORDER BY id`), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsers 按可见范围统计用户数
// 与 ListUsers 共用 userScopeClause，保证 count == len(list)
func (s *Store) CountUsers(ctx context.Context, scope storage.Scope) (int, error) {
	where, args := userScopeClause(scope)
	var count int
	err := s.q.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(id) FROM users`+where), args...).Scan(&count)
	return count, err
}

// UpdateUser 整行更新用户（updated_at 由调用方刷新）
func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	res, err := s.q.ExecContext(ctx, s.rebind(
		`UPDATE users
		 SET username = $1, email = $2, pp_token = $3, password_hash = $4,
		     is_active = $5, is_superuser = $6, remark = $7, description = $8, updated_at = $9
		 WHERE id = $10`),
		user.Username, user.Email, user.PPToken, user.PasswordHash,
		user.IsActive, user.IsSuperuser, nullString(user.Remark), jsonArg(user.Description),
		user.UpdatedAt, user.ID,
	)
	if err != nil {
		return s.storageErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteUser 删除用户
//
// 归属该用户的凭据不随之删除，user_id 置 NULL（见 admin 包的删除事务）。
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, s.rebind(`DELETE FROM users WHERE id = $1`), id)
	if err != nil {
		return s.storageErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// nullString 空字符串写 NULL
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
