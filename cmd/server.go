package cmd

import (
	"github.com/spf13/cobra"

	"github.com/masambo/jukebox-joy-scan/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动JukeJoy服务器",
	Long:  `启动JukeJoy点唱机目录系统的HTTP服务器，提供目录浏览和批量扫描API`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
