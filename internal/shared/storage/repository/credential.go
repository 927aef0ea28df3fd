package repository

import (
	"context"
	"database/sql"

	"auth-admin/internal/shared/model"
	"auth-admin/internal/shared/storage"
)

const credentialColumns = `id, info, info_status, user_id, expires_at, config_info, description, created_at, updated_at`

// credentialScopeClause 将可见范围翻译为凭据表的 WHERE 条件
//
// 普通用户可见：公开凭据，以及归属自己的私有凭据。
// list 与 count 共用此函数。
func credentialScopeClause(scope storage.Scope) (string, []interface{}) {
	switch {
	case scope.Empty:
		return " WHERE 1 = 0", nil
	case scope.Unrestricted:
		return "", nil
	default:
		return " WHERE (info_status = $1 OR (info_status = $2 AND user_id = $3))",
			[]interface{}{int(model.VisibilityPublic), int(model.VisibilityPrivate), scope.UserID}
	}
}

// scanCredential 从单行扫描凭据
func scanCredential(scan func(dest ...interface{}) error) (*model.Credential, error) {
	c := &model.Credential{}
	var info sql.NullString
	var userID sql.NullInt64
	var expiresAt sql.NullTime
	var configInfo, desc NullableJSON
	err := scan(&c.ID, &info, &c.InfoStatus, &userID, &expiresAt,
		&configInfo.Data, &desc.Data, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Info = info.String
	if userID.Valid {
		c.UserID = &userID.Int64
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		c.ExpiresAt = &t
	}
	c.ConfigInfo = configInfo.Value()
	c.Description = desc.Value()
	return c, nil
}

// CreateCredential 创建认证凭据
func (s *Store) CreateCredential(ctx context.Context, cred *model.Credential) error {
	err := s.q.QueryRowContext(ctx, s.rebind(
		`INSERT INTO auth_credentials (info, info_status, user_id, expires_at, config_info, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`),
		nullString(cred.Info), int(cred.InfoStatus), cred.UserID, cred.ExpiresAt,
		jsonArg(cred.ConfigInfo), jsonArg(cred.Description),
		cred.CreatedAt, cred.UpdatedAt,
	).Scan(&cred.ID)
	return s.storageErr(err)
}

// GetCredentialByID 通过 ID 查找认证凭据
func (s *Store) GetCredentialByID(ctx context.Context, id int64) (*model.Credential, error) {
	row := s.q.QueryRowContext(ctx, s.rebind(
		`SELECT `+credentialColumns+` FROM auth_credentials WHERE id = $1`), id)
	c, err := scanCredential(row.Scan)
	if err != nil {
		return nil, s.storageErr(err)
	}
	return c, nil
}

// ListCredentials 按可见范围列出认证凭据，主键顺序
func (s *Store) ListCredentials(ctx context.Context, scope storage.Scope) ([]*model.Credential, error) {
	where, args := credentialScopeClause(scope)
	rows, err := s.q.QueryContext(ctx, s.rebind(
		`SELECT `+credentialColumns+` FROM auth_credentials`+where+` ORDER BY id`), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []*model.Credential
	for rows.Next() {
		c, err := scanCredential(rows.Scan)
		if err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

// CountCredentials 按可见范围统计认证凭据数
// 与 ListCredentials 共用 credentialScopeClause，保证 count == len(list)
func (s *Store) CountCredentials(ctx context.Context, scope storage.Scope) (int, error) {
	where, args := credentialScopeClause(scope)
	var count int
	err := s.q.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(id) FROM auth_credentials`+where), args...).Scan(&count)
	return count, err
}

// UpdateCredential 整行更新认证凭据（updated_at 由调用方刷新）
func (s *Store) UpdateCredential(ctx context.Context, cred *model.Credential) error {
	res, err := s.q.ExecContext(ctx, s.rebind(
		`UPDATE auth_credentials
		 SET info = $1, info_status = $2, user_id = $3, expires_at = $4,
		     config_info = $5, description = $6, updated_at = $7
		 WHERE id = $8`),
		nullString(cred.Info), int(cred.InfoStatus), cred.UserID, cred.ExpiresAt,
		jsonArg(cred.ConfigInfo), jsonArg(cred.Description),
		cred.UpdatedAt, cred.ID,
	)
	if err != nil {
		return s.storageErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteCredential 删除认证凭据
func (s *Store) DeleteCredential(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, s.rebind(`DELETE FROM auth_credentials WHERE id = $1`), id)
	if err != nil {
		return s.storageErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ClearCredentialOwner 将指定用户名下的所有凭据 user_id 置 NULL
// 用于删除用户时解除归属（公开/私有均不触发级联删除）
func (s *Store) ClearCredentialOwner(ctx context.Context, userID int64) error {
	_, err := s.q.ExecContext(ctx, s.rebind(
		`UPDATE auth_credentials SET user_id = NULL, updated_at = `+s.dialect.CurrentTimestamp()+` WHERE user_id = $1`), userID)
	return err
}
