package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"floodwatch/backend/internal/config"
	"floodwatch/backend/internal/domain"
	"floodwatch/backend/internal/storage/sql"
)

// 签发仪表盘等消费方使用的 API 密钥。
func main() {
	name := flag.String("name", "", "密钥名称（必填），如 dashboard")
	userID := flag.String("user", "", "所属用户标识（可选）")
	limit := flag.Int("limit", 60, "每分钟调用配额")
	flag.Parse()

	if *name == "" {
		fmt.Println("用法:")
		fmt.Println("  go run cmd/create-apikey/main.go -name=dashboard [-user=ops] [-limit=60]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("错误: 配置加载失败: %v\n", err)
		os.Exit(1)
	}
	if cfg.Database.DSN == "" {
		fmt.Println("错误: 需要设置 FLOODWATCH_DATABASE_DSN")
		os.Exit(1)
	}

	store, err := sql.NewStore(cfg.Database.DSN, sql.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		fmt.Printf("错误: 存储初始化失败: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	keyValue, err := generateKey()
	if err != nil {
		fmt.Printf("错误: 密钥生成失败: %v\n", err)
		os.Exit(1)
	}

	key := &domain.APIKey{
		ID:                 uuid.New().String(),
		UserID:             *userID,
		Key:                keyValue,
		Name:               *name,
		RateLimitPerMinute: *limit,
		IsActive:           true,
		CreatedAt:          time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.SaveAPIKey(ctx, key); err != nil {
		fmt.Printf("错误: 密钥保存失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ API 密钥创建成功")
	fmt.Printf("  ID:    %s\n", key.ID)
	fmt.Printf("  名称:  %s\n", key.Name)
	fmt.Printf("  配额:  每分钟 %d 次\n", key.RateLimitPerMinute)
	fmt.Printf("  密钥:  %s\n", key.Key)
	fmt.Println()
	fmt.Println("密钥只显示这一次，请妥善保存。")
}

// generateKey 生成带前缀的随机密钥
func generateKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return "fw_live_" + base64.RawURLEncoding.EncodeToString(raw), nil
}
