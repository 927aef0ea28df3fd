// Package main 初始化管理员用户的命令行工具
//
// 用法：
//
//	create-admin [flags]
//
// 默认创建 admin/admin123 超级管理员（可用 flag 覆盖）；
// --with-test-users 额外创建一组测试账户。
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"auth-admin/internal/apiserver/auth"
	"auth-admin/internal/config"
	"auth-admin/internal/shared/model"
	"auth-admin/internal/shared/storage"
	"auth-admin/internal/shared/storage/repository"
)

func main() {
	username := flag.String("username", "admin", "管理员用户名")
	email := flag.String("email", "admin@example.com", "管理员邮箱")
	password := flag.String("password", "admin123", "管理员初始密码")
	withTestUsers := flag.Bool("with-test-users", false, "额外创建测试账户")
	flag.Parse()

	cfg := config.Load()
	store, err := repository.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if err := createAdminUser(ctx, store, *username, *email, *password); err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}

	if *withTestUsers {
		if err := createTestUsers(ctx, store); err != nil {
			log.Fatalf("Failed to create test users: %v", err)
		}
	}

	fmt.Println("初始化完成")
}

// createAdminUser 创建初始超级管理员；已存在时仅打印信息
func createAdminUser(ctx context.Context, store *repository.Store, username, email, password string) error {
	existing, err := store.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if existing != nil {
		fmt.Println("管理员用户已存在")
		fmt.Printf("用户名: %s\n", existing.Username)
		fmt.Printf("邮箱: %s\n", existing.Email)
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	desc, _ := json.Marshal(map[string]interface{}{
		"role":        "系统管理员",
		"permissions": []string{"all"},
		"created_by":  "system",
	})

	now := time.Now().UTC()
	u := &model.User{
		Username:     username,
		Email:        email,
		PPToken:      model.GeneratePPToken(),
		PasswordHash: hash,
		IsActive:     true,
		IsSuperuser:  true,
		Remark:       "系统初始管理员用户",
		Description:  desc,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateUser(ctx, u); err != nil {
		return err
	}

	fmt.Println("管理员用户创建成功")
	fmt.Printf("用户名: %s\n", u.Username)
	fmt.Printf("邮箱: %s\n", u.Email)
	fmt.Printf("PP令牌: %s\n", u.PPToken)
	fmt.Println("请在生产环境中修改默认密码")
	return nil
}

// createTestUsers 创建测试账户（密码统一 password123），已存在的跳过
func createTestUsers(ctx context.Context, store *repository.Store) error {
	hash, err := auth.HashPassword("password123")
	if err != nil {
		return err
	}

	type seed struct {
		username    string
		email       string
		isSuperuser bool
		remark      string
		description map[string]interface{}
	}
	seeds := []seed{
		{
			username:    "testuser",
			email:       "test@example.com",
			isSuperuser: false,
			remark:      "测试普通用户",
			description: map[string]interface{}{"role": "普通用户", "department": "测试部门"},
		},
		{
			username:    "manager",
			email:       "manager@example.com",
			isSuperuser: true,
			remark:      "测试管理员用户",
			description: map[string]interface{}{"role": "部门管理员", "department": "管理部门"},
		},
	}

	for _, s := range seeds {
		existing, err := store.GetUserByUsername(ctx, s.username)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if existing != nil {
			continue
		}

		desc, _ := json.Marshal(s.description)
		now := time.Now().UTC()
		u := &model.User{
			Username:     s.username,
			Email:        s.email,
			PPToken:      model.GeneratePPToken(),
			PasswordHash: hash,
			IsActive:     true,
			IsSuperuser:  s.isSuperuser,
			Remark:       s.remark,
			Description:  desc,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := store.CreateUser(ctx, u); err != nil {
			return err
		}
		fmt.Printf("创建测试用户: %s\n", s.username)
	}
	return nil
}
