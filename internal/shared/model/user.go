// Package model 定义核心数据模型
//
// user.go 包含用户相关的数据模型定义：
//   - User：管理后台用户
//   - UserCreate / UserPatch：创建与字段级更新载荷
package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PPTokenPrefix PP 平台 token 前缀
const PPTokenPrefix = "pp_"

// User 用户
//
// PPToken 在创建时生成一次，之后不可变更；password_hash 永不出现在 JSON 中。
type User struct {
	ID           int64           `json:"id" db:"id"`
	Username     string          `json:"username" db:"username"`
	Email        string          `json:"email" db:"email"`
	PPToken      string          `json:"pp_token" db:"pp_token"` // PP平台token
	PasswordHash string          `json:"-" db:"password_hash"`   // never expose in JSON
	IsActive     bool            `json:"is_active" db:"is_active"`
	IsSuperuser  bool            `json:"is_superuser" db:"is_superuser"`
	Remark       string          `json:"remark,omitempty" db:"remark"`           // 备注信息
	Description  json.RawMessage `json:"description,omitempty" db:"description"` // 补充信息（JSON）
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// GeneratePPToken 生成 PP 平台 token
// 格式：pp_ + 16 位十六进制（UUID v4 去掉连字符后截取）
func GeneratePPToken() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return PPTokenPrefix + hex[:16]
}

// UserCreate 用户创建载荷
type UserCreate struct {
	Username    string          `json:"username"`
	Email       string          `json:"email"`
	Password    string          `json:"password"`
	IsActive    *bool           `json:"is_active"`
	IsSuperuser *bool           `json:"is_superuser"`
	Remark      string          `json:"remark"`
	Description json.RawMessage `json:"description"`
}

// UserPatch 用户字段级更新载荷
//
// 指针字段表达"字段是否出现在请求中"：nil 表示未提交，非 nil 表示提交了新值。
// 禁改字段检查（pp_token / is_superuser / is_active）依赖这一存在性语义。
type UserPatch struct {
	Username    *string          `json:"username"`
	Email       *string          `json:"email"`
	Password    *string          `json:"password"`
	PPToken     *string          `json:"pp_token"`
	IsActive    *bool            `json:"is_active"`
	IsSuperuser *bool            `json:"is_superuser"`
	Remark      *string          `json:"remark"`
	Description *json.RawMessage `json:"description"`
}

// RestrictedFields 返回载荷中出现的受限字段名（非超级用户不可提交）
func (p *UserPatch) RestrictedFields() []string {
	var fields []string
	if p.PPToken != nil {
		fields = append(fields, "pp_token")
	}
	if p.IsSuperuser != nil {
		fields = append(fields, "is_superuser")
	}
	if p.IsActive != nil {
		fields = append(fields, "is_active")
	}
	return fields
}
