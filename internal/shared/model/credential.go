// Package model 定义核心数据模型
//
// credential.go 包含认证凭据相关的数据模型定义：
//   - Credential：认证凭据
//   - Visibility：信息状态枚举（公开/私有）
//   - CredentialInput：创建与更新共用的载荷
package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// Visibility - 信息状态
// ============================================================================

// Visibility 信息状态：0-公开(public)，1-私有(private)
//
// 数据库中以整数存储。JSON 反序列化采用宽松解析：
// 接受整数、数字字符串和 "PUBLIC"/"PRIVATE"（不分大小写），
// 无法解析时回退为私有，而不是报错。
type Visibility int

const (
	// VisibilityPublic 公开：所有已登录用户可见，仅超级管理员可修改
	VisibilityPublic Visibility = 0

	// VisibilityPrivate 私有：仅归属用户和超级管理员可见/可修改
	VisibilityPrivate Visibility = 1
)

// String 返回可读的状态名
func (v Visibility) String() string {
	if v == VisibilityPublic {
		return "PUBLIC"
	}
	return "PRIVATE"
}

// IsPublic 是否公开状态
func (v Visibility) IsPublic() bool {
	return v == VisibilityPublic
}

// ParseVisibility 宽松解析信息状态
//
// 接受 "PUBLIC"/"PRIVATE"（不分大小写）和数字字符串；
// 其余输入一律回退为私有。
func ParseVisibility(s string) Visibility {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PUBLIC":
		return VisibilityPublic
	case "PRIVATE":
		return VisibilityPrivate
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return visibilityFromInt(n)
	}
	return VisibilityPrivate
}

// visibilityFromInt 将整数收敛到合法枚举域
func visibilityFromInt(n int) Visibility {
	if n == int(VisibilityPublic) {
		return VisibilityPublic
	}
	return VisibilityPrivate
}

// UnmarshalJSON 宽松反序列化：整数、数字字符串、状态名均可
func (v *Visibility) UnmarshalJSON(data []byte) error {
	// null 不走 int 分支（Unmarshal 对 null 是 no-op，会误判为 0）
	if string(data) == "null" {
		*v = VisibilityPrivate
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*v = visibilityFromInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = ParseVisibility(s)
		return nil
	}
	*v = VisibilityPrivate
	return nil
}

// ============================================================================
// Credential - 认证凭据
// ============================================================================

// InfoMaxLength 认证信息最大长度
const InfoMaxLength = 100

// Credential 认证凭据
//
// 目标不变量：公开凭据的 UserID 必须为 NULL；
// 私有凭据归属由创建/更新时的归一化逻辑决定（见 admin 包）。
type Credential struct {
	ID          int64           `json:"id" db:"id"`
	Info        string          `json:"info,omitempty" db:"info"`                 // 认证信息
	InfoStatus  Visibility      `json:"info_status" db:"info_status"`             // 信息状态: 0-公开, 1-私有
	UserID      *int64          `json:"user_id,omitempty" db:"user_id"`           // 关联用户（公开时为 NULL）
	ExpiresAt   *time.Time      `json:"expires_at,omitempty" db:"expires_at"`     // 过期时间（UTC，无时区偏移）
	ConfigInfo  json.RawMessage `json:"config_info,omitempty" db:"config_info"`   // 配置信息（JSON）
	Description json.RawMessage `json:"description,omitempty" db:"description"`   // 补充信息（JSON）
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// CredentialInput 凭据创建/更新载荷
//
// 指针字段表达"字段是否出现在请求中"（同 UserPatch）。
type CredentialInput struct {
	Info        *string          `json:"info"`
	InfoStatus  *Visibility      `json:"info_status"`
	UserID      *int64           `json:"user_id"`
	ExpiresAt   *time.Time       `json:"expires_at"`
	ConfigInfo  *json.RawMessage `json:"config_info"`
	Description *json.RawMessage `json:"description"`
}

// NormalizeExpiry 将带时区的过期时间转换为 UTC 并去除偏移信息
//
// 数据库按无时区 DATETIME 存储，带偏移的输入先换算为 UTC。
func NormalizeExpiry(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), u.Second(), u.Nanosecond(), time.UTC)
}
