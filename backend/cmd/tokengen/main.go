// tokengen 为本地联调签发 / 吊销 Access Token
//
//	go run ./backend/cmd/tokengen -user <uuid>
//	go run ./backend/cmd/tokengen -revoke <token>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"shiftclock/backend/config"
	"shiftclock/backend/pkg/jwt"
	"shiftclock/backend/pkg/redis"
)

func main() {
	userID := flag.String("user", "", "签发 Token 的用户 ID")
	revoke := flag.String("revoke", "", "需要吊销的 Token")
	cfgPath := flag.String("config", "", "配置文件路径（默认 ./config/config.yaml）")
	flag.Parse()

	if (*userID == "") == (*revoke == "") {
		fmt.Fprintln(os.Stderr, "用法: tokengen -user <userID> | -revoke <token>")
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	mgr := jwt.NewManager(&cfg.Auth)

	if *userID != "" {
		token, err := mgr.GenerateAccessToken(*userID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "签发失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Access Token（%s 有效）:\n%s\n", cfg.Auth.AccessTokenTTL, token)
		return
	}

	claims, err := mgr.ParseToken(*revoke)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Token 无效: %v\n", err)
		os.Exit(1)
	}

	rdb, err := redis.NewClient(&cfg.Redis, zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "连接 Redis 失败: %v\n", err)
		os.Exit(1)
	}
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.BlacklistToken(ctx, claims.ID, claims.RemainingTTL(time.Now())); err != nil {
		fmt.Fprintf(os.Stderr, "吊销失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("已吊销 %s 的 Token（jti=%s）\n", claims.UserID, claims.ID)
}
