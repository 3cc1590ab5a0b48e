package cmd

import (
	"ComfyPortal/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动ComfyPortal服务器",
	Long:  `启动ComfyPortal的HTTP服务器，提供本地/企微登录、员工同步和ComfyUI上传代理接口`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
