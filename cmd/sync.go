package cmd

import (
	"context"
	"fmt"
	"log"

	"ComfyPortal/config"
	"ComfyPortal/core/sync"
	"ComfyPortal/db"
	"ComfyPortal/logger"
	"ComfyPortal/repository"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "员工账号同步",
	Long:  `从外部员工库全量同步用户到本地用户表，输出成功/失败/跳过计数。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("开始同步员工账号...")

		cfg := config.Load()
		logger.InitLogger(logger.Config{Level: logger.InfoLevel})

		if err := db.ConnectDB(cfg); err != nil {
			log.Fatalf("无法连接本地数据库: %v", err)
		}
		defer db.DB.Close()

		if err := db.InitDB(); err != nil {
			log.Fatalf("初始化数据库失败: %v", err)
		}

		// Redis 可选：只用于记录同步时间，不可用时跳过
		if err := db.ConnectRedis(cfg); err != nil {
			fmt.Printf("Redis不可用，跳过同步时间记录: %v\n", err)
		} else {
			defer db.CloseRedis()
		}

		userRepo := repository.NewMySQLUserRepository(db.DB)
		reconciler := sync.NewReconciler(
			func(ctx context.Context) (sync.ExternalSource, error) {
				return sync.OpenMySQLSource(ctx, cfg)
			},
			userRepo,
			nil,
			cfg.SyncDefaultPassword,
		)

		result, err := reconciler.SyncAll(context.Background())
		if err != nil {
			log.Fatalf("同步失败: %v", err)
		}

		fmt.Printf("\n同步完成: 成功 %d 个, 失败 %d 个, 跳过 %d 个, 共 %d 行\n",
			result.SuccessCount, result.ErrorCount, result.SkipCount, result.TotalCount)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Example = `  # 全量同步一次员工账号
  comfyportal sync`
}
