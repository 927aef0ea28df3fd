// Package user 用户接口 HTTP 测试
package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auth-admin/internal/apiserver/admin"
	"auth-admin/internal/apiserver/auth"
	"auth-admin/internal/apiserver/policy"
	"auth-admin/internal/shared/model"
	sqlitedriver "auth-admin/internal/shared/storage/driver/sqlite"
	"auth-admin/internal/shared/storage/repository"
)

func newTestHandler(t *testing.T) (*http.ServeMux, *repository.Store) {
	t.Helper()
	db, err := sqlitedriver.Open(":memory:")
	require.NoError(t, err)
	dialect := sqlitedriver.NewDialect()
	require.NoError(t, dialect.AutoMigrate(db))
	store := repository.NewStore(db, dialect)
	t.Cleanup(func() { store.Close() })

	mux := http.NewServeMux()
	NewHandler(admin.NewService(store, nil, nil)).RegisterRoutes(mux)
	return mux, store
}

func seedUser(t *testing.T, store *repository.Store, username string, superuser bool) *policy.Principal {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	u := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PPToken:      model.GeneratePPToken(),
		PasswordHash: "h",
		IsActive:     true,
		IsSuperuser:  superuser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return &policy.Principal{ID: u.ID, IsSuperuser: superuser, IsActive: true}
}

// do 以指定主体发起请求（模拟认证中间件注入）
func do(mux *http.ServeMux, p *policy.Principal, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestListAndCountEndpoints(t *testing.T) {
	mux, store := newTestHandler(t)
	root := seedUser(t, store, "root", true)
	seedUser(t, store, "alice", false)

	rec := do(mux, root, "GET", "/api/v1/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listResp struct {
		Users []*model.User `json:"users"`
		Total int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	assert.Len(t, listResp.Users, 2)
	assert.Equal(t, 2, listResp.Total)

	rec = do(mux, root, "GET", "/api/v1/users/count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var countResp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &countResp))
	assert.Equal(t, 2, countResp.Count)
}

func TestCreateEndpoint_StatusMapping(t *testing.T) {
	mux, store := newTestHandler(t)
	root := seedUser(t, store, "root", true)
	alice := seedUser(t, store, "alice", false)

	// 非超管 → 403
	rec := do(mux, alice, "POST", "/api/v1/users", `{"username":"x","email":"x@example.com","password":"p"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// 超管 → 201
	rec = do(mux, root, "POST", "/api/v1/users", `{"username":"carol","email":"carol@example.com","password":"p"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// 重复用户名 → 409
	rec = do(mux, root, "POST", "/api/v1/users", `{"username":"carol","email":"other@example.com","password":"p"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// 缺字段 → 400
	rec = do(mux, root, "POST", "/api/v1/users", `{"username":"","email":"e@example.com","password":"p"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 非法 JSON → 400
	rec = do(mux, root, "POST", "/api/v1/users", `{broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatchEndpoint_StatusMapping(t *testing.T) {
	mux, store := newTestHandler(t)
	alice := seedUser(t, store, "alice", false)
	bob := seedUser(t, store, "bob", false)

	// 受限字段 → 403
	rec := do(mux, alice, "PATCH", "/api/v1/users/1", `{"is_superuser":true}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// 他人记录 → 403
	rec = do(mux, alice, "PATCH", "/api/v1/users/2", `{"email":"x@example.com"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// 不存在的记录 → 404
	rec = do(mux, alice, "PATCH", "/api/v1/users/99", `{"email":"x@example.com"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// 自己 → 200
	rec = do(mux, alice, "PATCH", "/api/v1/users/1", `{"email":"new@example.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	// 非法 ID → 400
	rec = do(mux, bob, "PATCH", "/api/v1/users/abc", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteEndpoint_StatusMapping(t *testing.T) {
	mux, store := newTestHandler(t)
	root := seedUser(t, store, "root", true)
	alice := seedUser(t, store, "alice", false)

	// 普通用户 → 403
	rec := do(mux, alice, "DELETE", "/api/v1/users/2", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// 超管删除 → 200
	rec = do(mux, root, "DELETE", "/api/v1/users/2", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// 再删 → 404
	rec = do(mux, root, "DELETE", "/api/v1/users/2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestResponseNeverLeaksPasswordHash 所有响应不得携带密码哈希
func TestResponseNeverLeaksPasswordHash(t *testing.T) {
	mux, store := newTestHandler(t)
	root := seedUser(t, store, "root", true)

	for _, path := range []string{"/api/v1/users", "/api/v1/users/1"} {
		rec := do(mux, root, "GET", path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotContains(t, rec.Body.String(), "password", path)
	}
}
