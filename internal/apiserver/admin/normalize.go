// Package admin 管理域核心服务
//
// normalize.go 负责写入前的载荷归一化：
//   - 用户：pp_token 生成、密码哈希、激活/超管默认值
//   - 凭据：info 长度校验、信息状态与归属的一致化、过期时间 UTC 归一
//
// 归一化发生在权限判定通过之后、落库之前，保证写入数据库的记录
// 始终满足模型层声明的不变量（公开凭据无归属等）。
package admin

import (
	"fmt"
	"strings"
	"time"

	"github.com/containerd/errdefs"

	"auth-admin/internal/apiserver/auth"
	"auth-admin/internal/apiserver/policy"
	"auth-admin/internal/shared/model"
)

// normalizeNewUser 将创建载荷归一化为可落库的用户记录
//
// pp_token 由服务端生成，请求中携带的值被忽略；
// is_active 缺省为激活，is_superuser 缺省为普通用户。
func normalizeNewUser(in *model.UserCreate) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username 不能为空", errdefs.ErrInvalidArgument)
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email 不能为空", errdefs.ErrInvalidArgument)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password 不能为空", errdefs.ErrInvalidArgument)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	u := &model.User{
		Username:     username,
		Email:        email,
		PPToken:      model.GeneratePPToken(),
		PasswordHash: hash,
		IsActive:     true,
		IsSuperuser:  false,
		Remark:       in.Remark,
		Description:  in.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.IsSuperuser != nil {
		u.IsSuperuser = *in.IsSuperuser
	}
	return u, nil
}

// applyUserPatch 将字段级更新载荷合并到已加载的用户记录
//
// 受限字段（is_superuser / is_active）已在权限判定阶段对普通用户
// 拦截；pp_token 创建时生成后终身不可变，载荷中的值对任何主体
// 一律忽略。密码字段重新哈希。
func applyUserPatch(u *model.User, patch *model.UserPatch) error {
	if patch.Username != nil {
		name := strings.TrimSpace(*patch.Username)
		if name == "" {
			return fmt.Errorf("%w: username 不能为空", errdefs.ErrInvalidArgument)
		}
		u.Username = name
	}
	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		if email == "" {
			return fmt.Errorf("%w: email 不能为空", errdefs.ErrInvalidArgument)
		}
		u.Email = email
	}
	if patch.Password != nil {
		if *patch.Password == "" {
			return fmt.Errorf("%w: password 不能为空", errdefs.ErrInvalidArgument)
		}
		hash, err := auth.HashPassword(*patch.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	}
	if patch.IsActive != nil {
		u.IsActive = *patch.IsActive
	}
	if patch.IsSuperuser != nil {
		u.IsSuperuser = *patch.IsSuperuser
	}
	if patch.Remark != nil {
		u.Remark = *patch.Remark
	}
	if patch.Description != nil {
		u.Description = *patch.Description
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// applyCredentialInput 将载荷合并到凭据记录（创建时传入零值记录）
func applyCredentialInput(c *model.Credential, in *model.CredentialInput) error {
	if in.Info != nil {
		if len(*in.Info) > model.InfoMaxLength {
			return fmt.Errorf("%w: info 长度超过 %d", errdefs.ErrInvalidArgument, model.InfoMaxLength)
		}
		c.Info = *in.Info
	}
	if in.InfoStatus != nil {
		c.InfoStatus = *in.InfoStatus
	}
	if in.UserID != nil {
		c.UserID = in.UserID
	}
	if in.ExpiresAt != nil {
		t := model.NormalizeExpiry(*in.ExpiresAt)
		c.ExpiresAt = &t
	}
	if in.ConfigInfo != nil {
		c.ConfigInfo = *in.ConfigInfo
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// normalizeCredentialOwnership 按最终信息状态收敛凭据归属
//
// 规则（创建与更新后统一执行）：
//   - 公开凭据不归属任何用户，user_id 强制置 NULL
//   - 私有凭据：普通用户强制归属自己（无视载荷指定的 user_id）；
//     超级管理员可指定任意归属，未指定时归属操作者本人
func normalizeCredentialOwnership(p *policy.Principal, c *model.Credential) {
	if c.InfoStatus.IsPublic() {
		c.UserID = nil
		return
	}
	if !p.IsSuperuser {
		id := p.ID
		c.UserID = &id
		return
	}
	if c.UserID == nil {
		id := p.ID
		c.UserID = &id
	}
}
