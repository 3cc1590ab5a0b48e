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

var resetpwdCmd = &cobra.Command{
	Use:   "resetpwd <username>",
	Short: "重置用户密码为默认密码",
	Long:  `管理操作：将指定用户的密码重置为同步默认密码。`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		username := args[0]

		cfg := config.Load()
		logger.InitLogger(logger.Config{Level: logger.InfoLevel})

		if err := db.ConnectDB(cfg); err != nil {
			log.Fatalf("无法连接本地数据库: %v", err)
		}
		defer db.DB.Close()

		userRepo := repository.NewMySQLUserRepository(db.DB)
		reconciler := sync.NewReconciler(
			func(ctx context.Context) (sync.ExternalSource, error) {
				return sync.OpenMySQLSource(ctx, cfg)
			},
			userRepo,
			nil,
			cfg.SyncDefaultPassword,
		)

		if err := reconciler.ResetPassword(username); err != nil {
			log.Fatalf("重置密码失败: %v", err)
		}

		fmt.Printf("用户 %s 的密码已重置为默认密码\n", username)
	},
}

func init() {
	rootCmd.AddCommand(resetpwdCmd)
}
