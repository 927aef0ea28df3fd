// Package repository SQLite 集成测试
//
// 使用 SQLite 内存数据库验证 repository 层所有存储接口的正确性。
// 无需外部数据库依赖，可在任何环境下运行。
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auth-admin/internal/shared/model"
	"auth-admin/internal/shared/storage"
	"auth-admin/internal/shared/storage/dbutil"
	sqlitedriver "auth-admin/internal/shared/storage/driver/sqlite"
)

// newTestStore 创建用于测试的 SQLite 内存数据库 Store
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlitedriver.Open(":memory:")
	require.NoError(t, err)
	dialect := sqlitedriver.NewDialect()
	require.NoError(t, dialect.AutoMigrate(db))
	store := NewStore(db, dialect)
	t.Cleanup(func() { store.Close() })
	return store
}

// mustCreateUser 创建测试用户
func mustCreateUser(t *testing.T, s *Store, username string, superuser bool) *model.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	u := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PPToken:      model.GeneratePPToken(),
		PasswordHash: "$2a$12$fakehash",
		IsActive:     true,
		IsSuperuser:  superuser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	require.NotZero(t, u.ID)
	return u
}

// mustCreateCredential 创建测试凭据
func mustCreateCredential(t *testing.T, s *Store, status model.Visibility, owner *int64) *model.Credential {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	c := &model.Credential{
		Info:       fmt.Sprintf("key-%d", time.Now().UnixNano()),
		InfoStatus: status,
		UserID:     owner,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, s.CreateCredential(context.Background(), c))
	require.NotZero(t, c.ID)
	return c
}

// ============================================================================
// Dialect 基础测试
// ============================================================================

func TestDialectTypes(t *testing.T) {
	d := sqlitedriver.NewDialect()
	assert.Equal(t, dbutil.DriverSQLite, d.DriverType())
	assert.Equal(t, "datetime('now')", d.CurrentTimestamp())
	assert.Equal(t, "1", d.BooleanLiteral(true))
	assert.Equal(t, "0", d.BooleanLiteral(false))
}

func TestRebind(t *testing.T) {
	d := sqlitedriver.NewDialect()
	assert.Equal(t, "SELECT * FROM t WHERE id = ? AND name = ?",
		d.Rebind("SELECT * FROM t WHERE id = $1 AND name = $2"))
	// 应去除 PG 类型转换
	assert.Equal(t, "UPDATE t SET status = ? WHERE id = ?",
		d.Rebind("UPDATE t SET status = $1::varchar WHERE id = $2"))
}

// ============================================================================
// User 测试
// ============================================================================

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := mustCreateUser(t, s, "alice", false)

	// Get by ID
	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, u.PPToken, got.PPToken)
	assert.True(t, got.IsActive)
	assert.False(t, got.IsSuperuser)

	// Get by username
	got, err = s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	// Update
	got.Email = "new@example.com"
	got.Remark = "updated"
	require.NoError(t, s.UpdateUser(ctx, got))
	got2, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got2.Email)
	assert.Equal(t, "updated", got2.Remark)

	// Delete
	require.NoError(t, s.DeleteUser(ctx, u.ID))
	_, err = s.GetUserByID(ctx, u.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUserNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetUserByID(ctx, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = s.UpdateUser(ctx, &model.User{ID: 999, Username: "x", Email: "x@x"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = s.DeleteUser(ctx, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUserDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, s, "alice", false)

	dup := &model.User{
		Username:     "alice",
		Email:        "other@example.com",
		PPToken:      model.GeneratePPToken(),
		PasswordHash: "h",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	err := s.CreateUser(ctx, dup)
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestUserJSONDescription(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	u := &model.User{
		Username:     "jsonuser",
		Email:        "j@example.com",
		PPToken:      model.GeneratePPToken(),
		PasswordHash: "h",
		IsActive:     true,
		Description:  json.RawMessage(`{"role":"管理员","tags":["a","b"]}`),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"管理员","tags":["a","b"]}`, string(got.Description))

	// 空 description 读回为 nil
	u2 := mustCreateUser(t, s, "empty", false)
	got2, err := s.GetUserByID(ctx, u2.ID)
	require.NoError(t, err)
	assert.Nil(t, got2.Description)
}

func TestUserScopes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, s, "alice", false)
	mustCreateUser(t, s, "bob", false)
	mustCreateUser(t, s, "root", true)

	// 不受限范围：全部
	all, err := s.ListUsers(ctx, storage.UnrestrictedScope())
	require.NoError(t, err)
	assert.Len(t, all, 3)
	n, err := s.CountUsers(ctx, storage.UnrestrictedScope())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// 归属范围：仅自己
	own, err := s.ListUsers(ctx, storage.OwnedScope(alice.ID))
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, alice.ID, own[0].ID)
	n, err = s.CountUsers(ctx, storage.OwnedScope(alice.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// 空范围：空集
	none, err := s.ListUsers(ctx, storage.EmptyScope())
	require.NoError(t, err)
	assert.Empty(t, none)
	n, err = s.CountUsers(ctx, storage.EmptyScope())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

// ============================================================================
// Credential 测试
// ============================================================================

func TestCredentialCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, s, "alice", false)
	expiry := time.Date(2027, 1, 2, 3, 4, 5, 0, time.UTC)

	now := time.Now().UTC().Truncate(time.Second)
	c := &model.Credential{
		Info:       "api-key-1",
		InfoStatus: model.VisibilityPrivate,
		UserID:     &alice.ID,
		ExpiresAt:  &expiry,
		ConfigInfo: json.RawMessage(`{"endpoint":"https://api.example.com"}`),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, s.CreateCredential(ctx, c))

	got, err := s.GetCredentialByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "api-key-1", got.Info)
	assert.Equal(t, model.VisibilityPrivate, got.InfoStatus)
	require.NotNil(t, got.UserID)
	assert.Equal(t, alice.ID, *got.UserID)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, got.ExpiresAt.Equal(expiry))
	assert.JSONEq(t, `{"endpoint":"https://api.example.com"}`, string(got.ConfigInfo))

	// Update：转公开并清除归属
	got.InfoStatus = model.VisibilityPublic
	got.UserID = nil
	require.NoError(t, s.UpdateCredential(ctx, got))
	got2, err := s.GetCredentialByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VisibilityPublic, got2.InfoStatus)
	assert.Nil(t, got2.UserID)

	// Delete
	require.NoError(t, s.DeleteCredential(ctx, c.ID))
	_, err = s.GetCredentialByID(ctx, c.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCredentialScopes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, s, "alice", false)
	bob := mustCreateUser(t, s, "bob", false)

	pub := mustCreateCredential(t, s, model.VisibilityPublic, nil)
	mine := mustCreateCredential(t, s, model.VisibilityPrivate, &alice.ID)
	mustCreateCredential(t, s, model.VisibilityPrivate, &bob.ID)
	mustCreateCredential(t, s, model.VisibilityPrivate, nil) // 无主私有

	// 不受限：全部 4 条
	all, err := s.ListCredentials(ctx, storage.UnrestrictedScope())
	require.NoError(t, err)
	assert.Len(t, all, 4)

	// alice 范围：公开 + 自己的私有
	visible, err := s.ListCredentials(ctx, storage.OwnedScope(alice.ID))
	require.NoError(t, err)
	require.Len(t, visible, 2)
	ids := []int64{visible[0].ID, visible[1].ID}
	assert.Contains(t, ids, pub.ID)
	assert.Contains(t, ids, mine.ID)

	// 计数与列表口径一致
	n, err := s.CountCredentials(ctx, storage.OwnedScope(alice.ID))
	require.NoError(t, err)
	assert.Equal(t, len(visible), n)

	// 空范围
	none, err := s.ListCredentials(ctx, storage.EmptyScope())
	require.NoError(t, err)
	assert.Empty(t, none)
	n, err = s.CountCredentials(ctx, storage.EmptyScope())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestClearCredentialOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, s, "alice", false)
	bob := mustCreateUser(t, s, "bob", false)

	c1 := mustCreateCredential(t, s, model.VisibilityPrivate, &alice.ID)
	c2 := mustCreateCredential(t, s, model.VisibilityPrivate, &alice.ID)
	c3 := mustCreateCredential(t, s, model.VisibilityPrivate, &bob.ID)

	require.NoError(t, s.ClearCredentialOwner(ctx, alice.ID))

	for _, id := range []int64{c1.ID, c2.ID} {
		got, err := s.GetCredentialByID(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got.UserID, "credential %d should be orphaned", id)
	}

	got, err := s.GetCredentialByID(ctx, c3.ID)
	require.NoError(t, err)
	require.NotNil(t, got.UserID)
	assert.Equal(t, bob.ID, *got.UserID)
}

// ============================================================================
// 事务测试
// ============================================================================

func TestInTxCommit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, s, "alice", false)
	mustCreateCredential(t, s, model.VisibilityPrivate, &alice.ID)

	err := s.InTx(ctx, func(tx storage.PersistentStore) error {
		if err := tx.ClearCredentialOwner(ctx, alice.ID); err != nil {
			return err
		}
		return tx.DeleteUser(ctx, alice.ID)
	})
	require.NoError(t, err)

	_, err = s.GetUserByID(ctx, alice.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	creds, err := s.ListCredentials(ctx, storage.UnrestrictedScope())
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Nil(t, creds[0].UserID)
}

func TestInTxRollback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, s, "alice", false)

	sentinel := errors.New("boom")
	err := s.InTx(ctx, func(tx storage.PersistentStore) error {
		if err := tx.DeleteUser(ctx, alice.ID); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	// 回滚后用户仍在
	_, err = s.GetUserByID(ctx, alice.ID)
	assert.NoError(t, err)
}

func TestInTxNested(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// 事务内再次调用 InTx 应复用当前事务而非死锁
	err := s.InTx(ctx, func(tx storage.PersistentStore) error {
		return tx.InTx(ctx, func(inner storage.PersistentStore) error {
			u := &model.User{
				Username:     "nested",
				Email:        "n@example.com",
				PPToken:      model.GeneratePPToken(),
				PasswordHash: "h",
				CreatedAt:    time.Now().UTC(),
				UpdatedAt:    time.Now().UTC(),
			}
			return inner.CreateUser(ctx, u)
		})
	})
	require.NoError(t, err)

	_, err = s.GetUserByUsername(ctx, "nested")
	assert.NoError(t, err)
}
