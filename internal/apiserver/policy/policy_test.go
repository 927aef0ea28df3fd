// Package policy 权限判定逻辑测试
package policy

import (
	"testing"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auth-admin/internal/shared/model"
)

func ptr[T any](v T) *T { return &v }

var (
	anonymous *Principal
	inactive  = &Principal{ID: 9, IsActive: false}
	admin     = &Principal{ID: 1, IsSuperuser: true, IsActive: true}
	alice     = &Principal{ID: 2, IsActive: true}
	bob       = &Principal{ID: 3, IsActive: true}
)

// ============================================================================
// 主体与可见范围
// ============================================================================

func TestPrincipal_Authenticated(t *testing.T) {
	assert.False(t, anonymous.Authenticated())
	assert.False(t, inactive.Authenticated())
	assert.True(t, admin.Authenticated())
	assert.True(t, alice.Authenticated())
}

func TestPrincipal_String(t *testing.T) {
	assert.Equal(t, "anonymous", anonymous.String())
	assert.Equal(t, "anonymous", inactive.String())
	assert.Equal(t, "superuser:1", admin.String())
	assert.Equal(t, "user:2", alice.String())
}

func TestScopeFor(t *testing.T) {
	for _, kind := range []Kind{KindUser, KindCredential} {
		assert.True(t, ScopeFor(anonymous, kind).Empty, "未登录应得到空范围")
		assert.True(t, ScopeFor(inactive, kind).Empty, "未激活等同于未登录")
		assert.True(t, ScopeFor(admin, kind).Unrestricted)

		scope := ScopeFor(alice, kind)
		assert.False(t, scope.Empty)
		assert.False(t, scope.Unrestricted)
		assert.Equal(t, alice.ID, scope.UserID)
	}
}

// ============================================================================
// 用户记录判定
// ============================================================================

func TestCanViewUser(t *testing.T) {
	self := &model.User{ID: 2}
	other := &model.User{ID: 3}

	assert.False(t, CanViewUser(anonymous, self))
	assert.True(t, CanViewUser(admin, other))
	assert.True(t, CanViewUser(alice, self))
	assert.False(t, CanViewUser(alice, other))
}

func TestCheckCreateUser(t *testing.T) {
	assert.True(t, errdefs.IsUnauthorized(CheckCreateUser(anonymous)))
	assert.True(t, errdefs.IsPermissionDenied(CheckCreateUser(alice)))
	assert.NoError(t, CheckCreateUser(admin))
}

func TestCheckDeleteUser(t *testing.T) {
	assert.True(t, errdefs.IsUnauthorized(CheckDeleteUser(anonymous)))
	assert.True(t, errdefs.IsPermissionDenied(CheckDeleteUser(bob)))
	assert.NoError(t, CheckDeleteUser(admin))
}

func TestCheckUpdateUser_Self(t *testing.T) {
	target := &model.User{ID: 2}
	patch := &model.UserPatch{Email: ptr("new@example.com")}

	require.NoError(t, CheckUpdateUser(alice, target, patch))
}

func TestCheckUpdateUser_OtherUser(t *testing.T) {
	target := &model.User{ID: 3}
	patch := &model.UserPatch{Email: ptr("new@example.com")}

	err := CheckUpdateUser(alice, target, patch)
	assert.True(t, errdefs.IsPermissionDenied(err))

	// 超级管理员可以修改任何用户
	assert.NoError(t, CheckUpdateUser(admin, target, patch))
}

// TestCheckUpdateUser_RestrictedFields 普通用户提交受限字段应显式拒绝
func TestCheckUpdateUser_RestrictedFields(t *testing.T) {
	target := &model.User{ID: 2}

	cases := []struct {
		name  string
		patch *model.UserPatch
	}{
		{"pp_token", &model.UserPatch{PPToken: ptr("pp_deadbeefdeadbeef")}},
		{"is_superuser", &model.UserPatch{IsSuperuser: ptr(true)}},
		{"is_active", &model.UserPatch{IsActive: ptr(false)}},
		{"组合字段", &model.UserPatch{
			Email:       ptr("x@example.com"),
			IsSuperuser: ptr(true),
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckUpdateUser(alice, target, tc.patch)
			assert.True(t, errdefs.IsPermissionDenied(err))

			// 同样的载荷超级管理员可以提交
			assert.NoError(t, CheckUpdateUser(admin, target, tc.patch))
		})
	}
}

// TestCheckUpdateUser_RestrictedFieldSameValue 受限字段即使值不变也拒绝
func TestCheckUpdateUser_RestrictedFieldSameValue(t *testing.T) {
	target := &model.User{ID: 2, IsActive: true}
	patch := &model.UserPatch{IsActive: ptr(true)}

	err := CheckUpdateUser(alice, target, patch)
	assert.True(t, errdefs.IsPermissionDenied(err), "判定依据字段是否出现，而非值是否变化")
}

// ============================================================================
// 凭据判定
// ============================================================================

func TestCanViewCredential(t *testing.T) {
	public := &model.Credential{ID: 1, InfoStatus: model.VisibilityPublic}
	alicePrivate := &model.Credential{ID: 2, InfoStatus: model.VisibilityPrivate, UserID: ptr(int64(2))}
	bobPrivate := &model.Credential{ID: 3, InfoStatus: model.VisibilityPrivate, UserID: ptr(int64(3))}
	orphanPrivate := &model.Credential{ID: 4, InfoStatus: model.VisibilityPrivate}

	assert.False(t, CanViewCredential(anonymous, public))

	assert.True(t, CanViewCredential(alice, public))
	assert.True(t, CanViewCredential(alice, alicePrivate))
	assert.False(t, CanViewCredential(alice, bobPrivate))
	assert.False(t, CanViewCredential(alice, orphanPrivate))

	assert.True(t, CanViewCredential(admin, bobPrivate))
	assert.True(t, CanViewCredential(admin, orphanPrivate))
}

func TestCheckCreateCredential(t *testing.T) {
	assert.True(t, errdefs.IsUnauthorized(CheckCreateCredential(anonymous)))
	assert.True(t, errdefs.IsUnauthorized(CheckCreateCredential(inactive)))
	assert.NoError(t, CheckCreateCredential(alice))
	assert.NoError(t, CheckCreateCredential(admin))
}

func TestCheckMutateCredential(t *testing.T) {
	public := &model.Credential{ID: 1, InfoStatus: model.VisibilityPublic, UserID: ptr(int64(2))}
	alicePrivate := &model.Credential{ID: 2, InfoStatus: model.VisibilityPrivate, UserID: ptr(int64(2))}
	bobPrivate := &model.Credential{ID: 3, InfoStatus: model.VisibilityPrivate, UserID: ptr(int64(3))}
	orphanPrivate := &model.Credential{ID: 4, InfoStatus: model.VisibilityPrivate}

	assert.True(t, errdefs.IsUnauthorized(CheckMutateCredential(anonymous, public)))

	// 普通用户：仅自己的私有凭据
	assert.NoError(t, CheckMutateCredential(alice, alicePrivate))
	assert.True(t, errdefs.IsPermissionDenied(CheckMutateCredential(alice, public)),
		"公开凭据即使归属自己也不可修改")
	assert.True(t, errdefs.IsPermissionDenied(CheckMutateCredential(alice, bobPrivate)))
	assert.True(t, errdefs.IsPermissionDenied(CheckMutateCredential(alice, orphanPrivate)))

	// 超级管理员不受限
	assert.NoError(t, CheckMutateCredential(admin, public))
	assert.NoError(t, CheckMutateCredential(admin, bobPrivate))
	assert.NoError(t, CheckMutateCredential(admin, orphanPrivate))
}
